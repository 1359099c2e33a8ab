package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// BulkOrderRequest is a corporate or large-quantity order awaiting a quote.
type BulkOrderRequest struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	CompanyName      string                `gorm:"column:company_name;not null"`
	ContactName      string                `gorm:"column:contact_name;not null"`
	ContactPhone     string                `gorm:"column:contact_phone;not null"`
	ContactEmail     string                `gorm:"column:contact_email;not null"`
	Items            []types.BulkOrderLine `gorm:"column:items;type:jsonb;serializer:json;not null"`
	DesiredDate      *time.Time            `gorm:"column:desired_date"`
	ShippingAddress  types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	ShippingRegionID uuid.UUID             `gorm:"column:shipping_region_id;type:uuid;not null"`
	ShippingMethodID uuid.UUID             `gorm:"column:shipping_method_id;type:uuid;not null"`
	PaymentMethod    enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	Status           enums.BulkOrderStatus `gorm:"column:status;type:text;not null"`
	QuotedPrices     types.PriceMap        `gorm:"column:quoted_unit_prices;type:jsonb;serializer:json"`
	QuotedTotal      *decimal.Decimal      `gorm:"column:quoted_total;type:numeric(12,2)"`
	AdminNotes       *string               `gorm:"column:admin_notes"`
	OrderID          *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BulkOrderRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
