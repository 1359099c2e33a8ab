package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	cases := map[Code]Metadata{
		CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, ExposeMessage: true},
		CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", ExposeMessage: true},
		CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", ExposeMessage: true},
		CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true, ExposeMessage: true},
		CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", ExposeMessage: true},
		CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}
	for code, want := range cases {
		assert.Equal(t, want, MetadataFor(code), code)
	}
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestServerSideCodesHideMessages(t *testing.T) {
	for code, meta := range metadataByCode {
		if meta.HTTPStatus >= http.StatusInternalServerError {
			assert.False(t, meta.ExposeMessage, code)
		}
	}
}

func TestConstructorsAndUnwrap(t *testing.T) {
	base := Newf(CodeValidation, "missing %s", "foo")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing foo", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, map[string]any{"field": "foo"}, base.WithDetails(map[string]any{"field": "foo"}).Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "CONFLICT: ctx", wrapped.Error())
	assert.Nil(t, Wrap(CodeConflict, nil, "ctx").Unwrap())
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.WithDetails("x"))
	assert.Nil(t, As(nil))
}

func TestStateConflictCarriesTransition(t *testing.T) {
	err := StateConflict("order", "delivered", "cancelled")
	require.Equal(t, CodeStateConflict, err.Code())
	assert.Equal(t, map[string]string{"from": "delivered", "to": "cancelled"}, err.Details())
	assert.Contains(t, err.Message(), "delivered")
}

func TestIsCodeUnwrapsChain(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", New(CodeNotFound, "order not found"))
	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeNotFound))
}
