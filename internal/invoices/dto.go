package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type LineInput struct {
	Description string          `json:"description" validate:"required,max=200"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"money"`
}

// CreateInput is a supplier invoice submission. A nil TaxRate takes the
// awarded bid's rate when a stock request is referenced, otherwise zero.
type CreateInput struct {
	StockRequestID *uuid.UUID       `json:"stock_request_id,omitempty"`
	Items          []LineInput      `json:"items" validate:"required,min=1,dive"`
	TaxRate        *decimal.Decimal `json:"tax_rate,omitempty" validate:"omitempty,money"`
	Notes          *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
}

type ListFilters struct {
	Status     *enums.InvoiceStatus
	SupplierID *uuid.UUID
}

type ListParams struct {
	ListFilters
	pagination.Params
}

type InvoiceDTO struct {
	ID             uuid.UUID           `json:"id"`
	InvoiceNumber  string              `json:"invoice_number"`
	SupplierID     uuid.UUID           `json:"supplier_id"`
	StockRequestID *uuid.UUID          `json:"stock_request_id,omitempty"`
	Items          []types.InvoiceLine `json:"items"`
	TaxRate        decimal.Decimal     `json:"tax_rate"`
	SubTotal       decimal.Decimal     `json:"sub_total"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	Status         enums.InvoiceStatus `json:"status"`
	Notes          *string             `json:"notes,omitempty"`
	DueDate        *time.Time          `json:"due_date,omitempty"`
	ReviewedBy     *uuid.UUID          `json:"reviewed_by,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func FromModel(m *models.Invoice) *InvoiceDTO {
	if m == nil {
		return nil
	}
	return &InvoiceDTO{
		ID:             m.ID,
		InvoiceNumber:  m.InvoiceNumber,
		SupplierID:     m.SupplierID,
		StockRequestID: m.StockRequestID,
		Items:          m.Items,
		TaxRate:        m.TaxRate,
		SubTotal:       m.SubTotal,
		TaxAmount:      m.TaxAmount,
		TotalAmount:    m.TotalAmount,
		Status:         m.Status,
		Notes:          m.Notes,
		DueDate:        m.DueDate,
		ReviewedBy:     m.ReviewedBy,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
