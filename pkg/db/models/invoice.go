package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// Invoice is a supplier billing document, optionally tied to a stock request.
type Invoice struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceNumber  string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	SupplierID     uuid.UUID           `gorm:"column:supplier_id;type:uuid;not null;index"`
	StockRequestID *uuid.UUID          `gorm:"column:stock_request_id;type:uuid"`
	Items          []types.InvoiceLine `gorm:"column:items;type:jsonb;serializer:json;not null"`
	TaxRate        decimal.Decimal     `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	SubTotal       decimal.Decimal     `gorm:"column:sub_total;type:numeric(12,2);not null"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status         enums.InvoiceStatus `gorm:"column:status;type:text;not null"`
	Notes          *string             `gorm:"column:notes"`
	DueDate        *time.Time          `gorm:"column:due_date"`
	ReviewedBy     *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
