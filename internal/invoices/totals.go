package invoices

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Totals holds the server-side invoice arithmetic.
type Totals struct {
	Lines     []types.InvoiceLine
	SubTotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals prices each line at quantity x unit price rounded to cents,
// then applies taxRate (a percentage) to the subtotal.
func ComputeTotals(lines []LineInput, taxRate decimal.Decimal) (Totals, error) {
	problems := map[string]string{}
	if len(lines) == 0 {
		problems["items"] = "at least one line is required"
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		problems["tax_rate"] = "must be between 0 and 100"
	}

	out := Totals{Lines: make([]types.InvoiceLine, 0, len(lines)), SubTotal: decimal.Zero}
	for i, line := range lines {
		if line.Quantity <= 0 {
			problems[fmt.Sprintf("items[%d].quantity", i)] = "must be positive"
		}
		if line.UnitPrice.IsNegative() {
			problems[fmt.Sprintf("items[%d].unit_price", i)] = "cannot be negative"
		}
		total := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		out.Lines = append(out.Lines, types.InvoiceLine{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice.Round(2),
			LineTotal:   total,
		})
		out.SubTotal = out.SubTotal.Add(total)
	}
	if len(problems) > 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid invoice").WithDetails(problems)
	}
	out.TaxAmount = out.SubTotal.Mul(taxRate).Div(hundred).Round(2)
	out.Total = out.SubTotal.Add(out.TaxAmount)
	return out, nil
}

// Quantity is the number of units billed across all lines.
func (t Totals) Quantity() int {
	n := 0
	for _, line := range t.Lines {
		n += line.Quantity
	}
	return n
}
