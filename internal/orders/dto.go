package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// ItemInput is one checkout line.
type ItemInput struct {
	ProductID      uuid.UUID         `json:"product_id" validate:"required"`
	Quantity       int               `json:"quantity" validate:"required,min=1,max=999"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

// CreateOrderInput is the checkout payload.
type CreateOrderInput struct {
	Items            []ItemInput           `json:"items" validate:"required,min=1,dive"`
	PaymentMethod    enums.PaymentMethod   `json:"payment_method" validate:"required"`
	ShippingAddress  types.ShippingAddress `json:"shipping_address" validate:"required"`
	ShippingRegionID uuid.UUID             `json:"shipping_region_id" validate:"required"`
	ShippingMethodID uuid.UUID             `json:"shipping_method_id" validate:"required"`
	CustomerPhone    *string               `json:"customer_phone,omitempty" validate:"omitempty,max=32,phone"`
	GiftDetails      *types.GiftDetails    `json:"gift_details,omitempty"`
	Notes            *string               `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// BulkItem is a quoted line from a confirmed bulk request.
type BulkItem struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Notes     string
}

// BulkOrderInput carries a confirmed bulk request into an order.
type BulkOrderInput struct {
	BulkOrderRequestID uuid.UUID
	Items              []BulkItem
	PaymentMethod      enums.PaymentMethod
	ShippingAddress    types.ShippingAddress
	ShippingRegionID   uuid.UUID
	ShippingMethodID   uuid.UUID
	CustomerPhone      *string
	Notes              *string
}

// ListFilters narrows order listings. Nil fields are ignored.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	RiderID       *uuid.UUID
	CustomerID    *uuid.UUID
}

// ListParams combines filters and cursor pagination.
type ListParams struct {
	ListFilters
	pagination.Params
}

type ItemDTO struct {
	ID             uuid.UUID         `json:"id"`
	ProductID      uuid.UUID         `json:"product_id"`
	ProductName    string            `json:"product_name"`
	Quantity       int               `json:"quantity"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	LineTotal      decimal.Decimal   `json:"line_total"`
	Customizations map[string]string `json:"customizations,omitempty"`
}

type HistoryDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Notes     *string           `json:"notes,omitempty"`
	ActorID   *uuid.UUID        `json:"actor_id,omitempty"`
	ActorRole enums.Role        `json:"actor_role"`
	Timestamp time.Time         `json:"timestamp"`
}

// OrderDTO is the API representation of an order.
type OrderDTO struct {
	ID                 uuid.UUID             `json:"id"`
	OrderNumber        int64                 `json:"order_number"`
	CustomerID         uuid.UUID             `json:"customer_id"`
	CustomerName       string                `json:"customer_name"`
	CustomerEmail      string                `json:"customer_email"`
	CustomerPhone      *string               `json:"customer_phone,omitempty"`
	Status             enums.OrderStatus     `json:"status"`
	PaymentStatus      enums.PaymentStatus   `json:"payment_status"`
	PaymentMethod      enums.PaymentMethod   `json:"payment_method"`
	ShippingAddress    types.ShippingAddress `json:"shipping_address"`
	ShippingRegionID   uuid.UUID             `json:"shipping_region_id"`
	ShippingMethodID   uuid.UUID             `json:"shipping_method_id"`
	ShippingCost       decimal.Decimal       `json:"shipping_cost"`
	SubTotal           decimal.Decimal       `json:"sub_total"`
	Total              decimal.Decimal       `json:"total"`
	GiftDetails        *types.GiftDetails    `json:"gift_details,omitempty"`
	RiderID            *uuid.UUID            `json:"rider_id,omitempty"`
	RiderName          *string               `json:"rider_name,omitempty"`
	Color              *string               `json:"color,omitempty"`
	Rating             *types.OrderRating    `json:"rating,omitempty"`
	BulkOrderRequestID *uuid.UUID            `json:"bulk_order_request_id,omitempty"`
	Notes              *string               `json:"notes,omitempty"`
	Items              []ItemDTO             `json:"items"`
	DeliveryHistory    []HistoryDTO          `json:"delivery_history,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// RiderLoad is the number of in-flight orders held by a rider.
type RiderLoad struct {
	RiderID uuid.UUID
	Active  int
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		CustomerName:       o.CustomerName,
		CustomerEmail:      o.CustomerEmail,
		CustomerPhone:      o.CustomerPhone,
		Status:             o.Status,
		PaymentStatus:      o.PaymentStatus,
		PaymentMethod:      o.PaymentMethod,
		ShippingAddress:    o.ShippingAddress,
		ShippingRegionID:   o.ShippingRegionID,
		ShippingMethodID:   o.ShippingMethodID,
		ShippingCost:       o.ShippingCost,
		SubTotal:           o.SubTotal,
		Total:              o.Total,
		GiftDetails:        o.GiftDetails,
		RiderID:            o.RiderID,
		RiderName:          o.RiderName,
		Color:              o.Color,
		Rating:             o.Rating,
		BulkOrderRequestID: o.BulkOrderRequestID,
		Notes:              o.Notes,
		Items:              make([]ItemDTO, 0, len(o.Items)),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			LineTotal:      item.LineTotal,
			Customizations: item.Customizations,
		})
	}
	dto.DeliveryHistory = HistoryFromModels(o.History)
	return dto
}

func HistoryFromModels(rows []models.OrderHistoryEntry) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryDTO{
			Status:    row.Status,
			Notes:     row.Notes,
			ActorID:   row.ActorID,
			ActorRole: row.ActorRole,
			Timestamp: row.CreatedAt,
		})
	}
	return out
}
