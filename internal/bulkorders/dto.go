package bulkorders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type SubmitInput struct {
	CompanyName      string                `json:"company_name" validate:"required,max=200"`
	ContactName      string                `json:"contact_name" validate:"required,max=120"`
	ContactPhone     string                `json:"contact_phone" validate:"required,max=32,phone"`
	ContactEmail     string                `json:"contact_email" validate:"required,email"`
	Items            []types.BulkOrderLine `json:"items" validate:"required,min=1,dive"`
	DesiredDate      *time.Time            `json:"desired_date,omitempty"`
	ShippingAddress  types.ShippingAddress `json:"shipping_address" validate:"required"`
	ShippingRegionID uuid.UUID             `json:"shipping_region_id" validate:"required"`
	ShippingMethodID uuid.UUID             `json:"shipping_method_id" validate:"required"`
	PaymentMethod    enums.PaymentMethod   `json:"payment_method" validate:"required"`
}

// QuoteInput prices every requested product. A nil Total is derived from
// the lines.
type QuoteInput struct {
	UnitPrices map[uuid.UUID]decimal.Decimal `json:"unit_prices" validate:"required,dive,money"`
	Total      *decimal.Decimal              `json:"total,omitempty" validate:"omitempty,money"`
	AdminNotes *string                       `json:"admin_notes,omitempty" validate:"omitempty,max=2000"`
}

type ListFilters struct {
	Status     *enums.BulkOrderStatus
	CustomerID *uuid.UUID
}

type ListParams struct {
	ListFilters
	pagination.Params
}

type BulkOrderDTO struct {
	ID               uuid.UUID             `json:"id"`
	CustomerID       uuid.UUID             `json:"customer_id"`
	CompanyName      string                `json:"company_name"`
	ContactName      string                `json:"contact_name"`
	ContactPhone     string                `json:"contact_phone"`
	ContactEmail     string                `json:"contact_email"`
	Items            []types.BulkOrderLine `json:"items"`
	DesiredDate      *time.Time            `json:"desired_date,omitempty"`
	ShippingAddress  types.ShippingAddress `json:"shipping_address"`
	ShippingRegionID uuid.UUID             `json:"shipping_region_id"`
	ShippingMethodID uuid.UUID             `json:"shipping_method_id"`
	PaymentMethod    enums.PaymentMethod   `json:"payment_method"`
	Status           enums.BulkOrderStatus `json:"status"`
	QuotedUnitPrices types.PriceMap        `json:"quoted_unit_prices,omitempty"`
	QuotedTotal      *decimal.Decimal      `json:"quoted_total,omitempty"`
	AdminNotes       *string               `json:"admin_notes,omitempty"`
	OrderID          *uuid.UUID            `json:"order_id,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func FromModel(m *models.BulkOrderRequest) *BulkOrderDTO {
	return &BulkOrderDTO{
		ID:               m.ID,
		CustomerID:       m.CustomerID,
		CompanyName:      m.CompanyName,
		ContactName:      m.ContactName,
		ContactPhone:     m.ContactPhone,
		ContactEmail:     m.ContactEmail,
		Items:            m.Items,
		DesiredDate:      m.DesiredDate,
		ShippingAddress:  m.ShippingAddress,
		ShippingRegionID: m.ShippingRegionID,
		ShippingMethodID: m.ShippingMethodID,
		PaymentMethod:    m.PaymentMethod,
		Status:           m.Status,
		QuotedUnitPrices: m.QuotedPrices,
		QuotedTotal:      m.QuotedTotal,
		AdminNotes:       m.AdminNotes,
		OrderID:          m.OrderID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
