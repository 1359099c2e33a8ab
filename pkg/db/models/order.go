package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// Order is a customer purchase moving through the delivery lifecycle.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        int64                 `gorm:"column:order_number;not null;default:nextval('order_number_seq')"`
	CustomerID         uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	CustomerName       string                `gorm:"column:customer_name;not null"`
	CustomerEmail      string                `gorm:"column:customer_email;not null"`
	CustomerPhone      *string               `gorm:"column:customer_phone"`
	Status             enums.OrderStatus     `gorm:"column:status;type:text;not null"`
	PaymentStatus      enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	ShippingAddress    types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	ShippingRegionID   uuid.UUID             `gorm:"column:shipping_region_id;type:uuid;not null"`
	ShippingMethodID   uuid.UUID             `gorm:"column:shipping_method_id;type:uuid;not null"`
	ShippingCost       decimal.Decimal       `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	SubTotal           decimal.Decimal       `gorm:"column:sub_total;type:numeric(12,2);not null"`
	Total              decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	GiftDetails        *types.GiftDetails    `gorm:"column:gift_details;type:jsonb;serializer:json"`
	RiderID            *uuid.UUID            `gorm:"column:rider_id;type:uuid"`
	RiderName          *string               `gorm:"column:rider_name"`
	Color              *string               `gorm:"column:color"`
	Rating             *types.OrderRating    `gorm:"column:rating;type:jsonb;serializer:json"`
	BulkOrderRequestID *uuid.UUID            `gorm:"column:bulk_order_request_id;type:uuid"`
	Notes              *string               `gorm:"column:notes"`
	Items              []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History            []OrderHistoryEntry   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is one purchased product line.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string            `gorm:"column:product_name;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal      decimal.Decimal   `gorm:"column:line_total;type:numeric(12,2);not null"`
	Customizations map[string]string `gorm:"column:customizations;type:jsonb;serializer:json"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderHistoryEntry is an immutable record of a status the order entered.
type OrderHistoryEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Seq       int               `gorm:"column:seq;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Notes     *string           `gorm:"column:notes"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	ActorRole enums.Role        `gorm:"column:actor_role;type:text;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;not null"`
}

func (OrderHistoryEntry) TableName() string {
	return "order_history_entries"
}

func (h *OrderHistoryEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
