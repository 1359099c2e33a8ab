package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is a billed line on a supplier invoice.
type InvoiceLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// BulkOrderLine is a product and quantity requested in a bulk order.
type BulkOrderLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100000"`
	Notes     string    `json:"notes,omitempty" validate:"max=500"`
}

// StringList is stored as a jsonb array.
type StringList []string
