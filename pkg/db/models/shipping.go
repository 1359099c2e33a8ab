package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// ShippingRegion groups towns within a county for pricing.
type ShippingRegion struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string           `gorm:"column:name;not null"`
	County    string           `gorm:"column:county;not null"`
	Towns     types.StringList `gorm:"column:towns;type:jsonb;serializer:json"`
	Active    bool             `gorm:"column:active;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ShippingRegion) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ShippingMethod is a delivery option with a default price.
type ShippingMethod struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	BasePrice decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null"`
	Duration  string          `gorm:"column:duration;not null"`
	Active    bool            `gorm:"column:active;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *ShippingMethod) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// ShippingRate overrides a method's base price for one region.
type ShippingRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RegionID    uuid.UUID       `gorm:"column:region_id;type:uuid;not null"`
	MethodID    uuid.UUID       `gorm:"column:method_id;type:uuid;not null"`
	CustomPrice decimal.Decimal `gorm:"column:custom_price;type:numeric(12,2);not null"`
	Active      bool            `gorm:"column:active;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ShippingRate) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
