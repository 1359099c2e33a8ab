package invoices

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotalsRoundsPerLine(t *testing.T) {
	totals, err := ComputeTotals([]LineInput{
		{Description: "Gift boxes", Quantity: 3, UnitPrice: dec("33.335")},
		{Description: "Ribbon", Quantity: 1, UnitPrice: dec("10")},
	}, dec("16"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.Lines[0].LineTotal.Equal(dec("100.01")) {
		t.Fatalf("line total = %s, want 100.01", totals.Lines[0].LineTotal)
	}
	if !totals.SubTotal.Equal(dec("110.01")) {
		t.Fatalf("sub total = %s, want 110.01", totals.SubTotal)
	}
	if !totals.TaxAmount.Equal(dec("17.60")) {
		t.Fatalf("tax = %s, want 17.60", totals.TaxAmount)
	}
	if !totals.Total.Equal(totals.SubTotal.Add(totals.TaxAmount)) {
		t.Fatalf("total %s != sub total + tax", totals.Total)
	}
	if totals.Quantity() != 4 {
		t.Fatalf("quantity = %d, want 4", totals.Quantity())
	}
}

func TestComputeTotalsRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		lines []LineInput
		rate  decimal.Decimal
	}{
		"no lines":       {nil, decimal.Zero},
		"zero quantity":  {[]LineInput{{Description: "x", Quantity: 0, UnitPrice: dec("1")}}, decimal.Zero},
		"negative price": {[]LineInput{{Description: "x", Quantity: 1, UnitPrice: dec("-1")}}, decimal.Zero},
		"tax above 100":  {[]LineInput{{Description: "x", Quantity: 1, UnitPrice: dec("1")}}, dec("101")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeTotals(tc.lines, tc.rate)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestInvoiceNumber(t *testing.T) {
	id := uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000000")
	got := InvoiceNumber(id, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	if got != "INV-202602-3F2A9C1E" {
		t.Fatalf("invoice number = %s", got)
	}
}
