package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

type lineItem struct {
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"money"`
}

type orderBody struct {
	Phone string     `json:"phone" validate:"required,phone"`
	Items []lineItem `json:"items" validate:"required,min=1,dive"`
}

func decodeString(t *testing.T, body string) (orderBody, error) {
	t.Helper()
	var out orderBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return out, DecodeJSONBody(req, &out)
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decodeString(t, `{"phone":"+254 700 000000","items":[{"quantity":2,"unit_price":"12.50"}]}`)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.5")))
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	_, err := decodeString(t, `{"phone":"abc","items":[{"quantity":0,"unit_price":"1.999"}]}`)
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	details, ok := appErr.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid phone number", details["phone"])
	assert.Equal(t, "is required", details["items[0].quantity"])
	assert.Contains(t, details["items[0].unit_price"], "two decimal places")
}

func TestDecodeJSONBodyRejectsNegativeMoney(t *testing.T) {
	_, err := decodeString(t, `{"phone":"0700000000","items":[{"quantity":1,"unit_price":"-1"}]}`)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyShapeErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"unknown field":  `{"phone":"0700000000","items":[],"extra":true}`,
		"trailing value": `{"phone":"0700000000","items":[{"quantity":1,"unit_price":"1"}]} {}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeString(t, body)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"`+strings.Repeat("1", 64)+`"}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var out orderBody
	err := DecodeJSONBody(req, &out)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "request body too large", appErr.Message())
}
