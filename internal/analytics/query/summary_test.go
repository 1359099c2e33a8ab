package query

import (
	"testing"
	"time"

	"github.com/angelmondragon/giftops-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

func TestValidateRequest(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		req  types.SummaryRequest
		ok   bool
	}{
		{"valid", types.SummaryRequest{Since: now.AddDate(0, -1, 0), Until: now}, true},
		{"missing since", types.SummaryRequest{Until: now}, false},
		{"inverted", types.SummaryRequest{Since: now, Until: now.Add(-time.Hour)}, false},
		{"too wide", types.SummaryRequest{Since: now.AddDate(-2, 0, 0), Until: now}, false},
	}
	for _, tc := range cases {
		err := ValidateRequest(tc.req)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestNewSummaryServiceNeedsClient(t *testing.T) {
	if _, err := NewSummaryService(nil, "order_lifecycle_events"); err == nil {
		t.Fatal("expected error without client")
	}
}
