package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
)

type RegionInput struct {
	Name   string   `json:"name" validate:"required,max=120"`
	County string   `json:"county" validate:"required,max=120"`
	Towns  []string `json:"towns" validate:"omitempty,dive,required,max=120"`
	Active *bool    `json:"active,omitempty"`
}

type MethodInput struct {
	Name      string          `json:"name" validate:"required,max=120"`
	BasePrice decimal.Decimal `json:"base_price"`
	Duration  string          `json:"duration" validate:"required,max=120"`
	Active    *bool           `json:"active,omitempty"`
}

type RateInput struct {
	RegionID    uuid.UUID       `json:"region_id" validate:"required"`
	MethodID    uuid.UUID       `json:"method_id" validate:"required"`
	CustomPrice decimal.Decimal `json:"custom_price"`
	Active      *bool           `json:"active,omitempty"`
}

type RegionDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	County    string    `json:"county"`
	Towns     []string  `json:"towns"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MethodDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	BasePrice decimal.Decimal `json:"base_price"`
	Duration  string          `json:"duration"`
	Active    bool            `json:"active"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type RateDTO struct {
	ID          uuid.UUID       `json:"id"`
	RegionID    uuid.UUID       `json:"region_id"`
	MethodID    uuid.UUID       `json:"method_id"`
	CustomPrice decimal.Decimal `json:"custom_price"`
	Active      bool            `json:"active"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// QuoteDTO is the resolved price returned to checkout.
type QuoteDTO struct {
	RegionID uuid.UUID       `json:"region_id"`
	MethodID uuid.UUID       `json:"method_id"`
	Price    decimal.Decimal `json:"price"`
	Duration string          `json:"duration"`
}

func regionToDTO(r models.ShippingRegion) RegionDTO {
	towns := []string(r.Towns)
	if towns == nil {
		towns = []string{}
	}
	return RegionDTO{ID: r.ID, Name: r.Name, County: r.County, Towns: towns, Active: r.Active, UpdatedAt: r.UpdatedAt}
}

func methodToDTO(m models.ShippingMethod) MethodDTO {
	return MethodDTO{ID: m.ID, Name: m.Name, BasePrice: m.BasePrice, Duration: m.Duration, Active: m.Active, UpdatedAt: m.UpdatedAt}
}

func rateToDTO(r models.ShippingRate) RateDTO {
	return RateDTO{ID: r.ID, RegionID: r.RegionID, MethodID: r.MethodID, CustomPrice: r.CustomPrice, Active: r.Active, UpdatedAt: r.UpdatedAt}
}
