package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

type errorBody struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details"`
		RequestID string         `json:"request_id"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCreated(w, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation exposes message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]any{"field": "demo"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "bad input",
			wantDetails: true,
		},
		{
			name:    "not found hides details",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(map[string]any{"id": "x"}),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "order not found",
		},
		{
			name:    "wrapped typed error",
			err:     fmt.Errorf("load: %w", pkgerrors.New(pkgerrors.CodeForbidden, "not your order")),
			status:  http.StatusForbidden,
			code:    pkgerrors.CodeForbidden,
			message: "not your order",
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("pq: connection reset"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "internal message stays private",
			err:     pkgerrors.New(pkgerrors.CodeInternal, "select failed on orders"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
		{
			name:    "nil error",
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: "internal server error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, string(tc.code), body.Error.Code)
			assert.Equal(t, tc.message, body.Error.Message)
			assert.Equal(t, tc.wantDetails, body.Error.Details != nil)
		})
	}
}

func TestWriteErrorStateConflictCarriesTransition(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.StateConflict("order", "delivered", "cancelled"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, map[string]any{"from": "delivered", "to": "cancelled"}, body.Error.Details)
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-Id", "req-123")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))

	assert.Equal(t, "req-123", decodeError(t, w).Error.RequestID)
}

func TestWriteErrorLogsByStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf, Format: "json"})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeValidation, "bad"))
	assert.Contains(t, buf.String(), `"request.rejected"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), `"request.error"`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestWriteSuccessUnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]any{"ch": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, w).Error.Code)
}

func TestWriteCSV(t *testing.T) {
	t.Run("streams attachment", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteCSV(context.Background(), nil, w, "orders.csv", func(out io.Writer) error {
			_, err := io.WriteString(out, "a,b\r\n")
			return err
		})
		assert.Equal(t, `attachment; filename="orders.csv"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "a,b\r\n", w.Body.String())
	})
	t.Run("error before first byte", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteCSV(context.Background(), nil, w, "orders.csv", func(io.Writer) error {
			return pkgerrors.New(pkgerrors.CodeForbidden, "nope")
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	})
	t.Run("error mid stream keeps partial body", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteCSV(context.Background(), nil, w, "orders.csv", func(out io.Writer) error {
			_, _ = io.WriteString(out, "a,b\r\n")
			return errors.New("cursor closed")
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "a,b\r\n", w.Body.String())
	})
}
