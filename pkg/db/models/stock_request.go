package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// StockRequest is a replenishment request that suppliers bid on.
type StockRequest struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID                `gorm:"column:product_id;type:uuid;not null"`
	ProductName       string                   `gorm:"column:product_name;not null"`
	RequestedQuantity int                      `gorm:"column:requested_quantity;not null"`
	Notes             *string                  `gorm:"column:notes"`
	Status            enums.StockRequestStatus `gorm:"column:status;type:text;not null"`
	WinningBidID      *uuid.UUID               `gorm:"column:winning_bid_id;type:uuid"`
	SupplierID        *uuid.UUID               `gorm:"column:supplier_id;type:uuid"`
	SupplierPrice     *decimal.Decimal         `gorm:"column:supplier_price;type:numeric(12,2)"`
	TaxRate           *decimal.Decimal         `gorm:"column:tax_rate;type:numeric(5,2)"`
	AwardedAt         *time.Time               `gorm:"column:awarded_at"`
	AwardedBy         *uuid.UUID               `gorm:"column:awarded_by;type:uuid"`
	FulfilledQuantity *int                     `gorm:"column:fulfilled_quantity"`
	InvoiceID         *uuid.UUID               `gorm:"column:invoice_id;type:uuid"`
	ReceivedQuantity  *int                     `gorm:"column:received_quantity"`
	ReceivedAt        *time.Time               `gorm:"column:received_at"`
	Discrepancy       *int                     `gorm:"column:discrepancy"`
	ClosedReason      *string                  `gorm:"column:closed_reason"`
	CreatedBy         uuid.UUID                `gorm:"column:created_by;type:uuid;not null"`
	Bids              []Bid                    `gorm:"foreignKey:StockRequestID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *StockRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Bid is a supplier's offer on a stock request. Rows are insert-only.
type Bid struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockRequestID uuid.UUID       `gorm:"column:stock_request_id;type:uuid;not null;index"`
	SupplierID     uuid.UUID       `gorm:"column:supplier_id;type:uuid;not null"`
	SupplierName   string          `gorm:"column:supplier_name;not null"`
	PricePerUnit   decimal.Decimal `gorm:"column:price_per_unit;type:numeric(12,2);not null"`
	TaxRate        decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	Notes          *string         `gorm:"column:notes"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Bid) TableName() string {
	return "stock_request_bids"
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
