package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// Product is a catalog entry.
type Product struct {
	ID                   uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string                     `gorm:"column:name;not null"`
	Description          *string                    `gorm:"column:description"`
	Category             string                     `gorm:"column:category;not null"`
	Price                decimal.Decimal            `gorm:"column:price;type:numeric(12,2);not null"`
	Images               types.StringList           `gorm:"column:images;type:jsonb;serializer:json"`
	StockQuantity        int                        `gorm:"column:stock_quantity;not null"`
	Active               bool                       `gorm:"column:active;not null"`
	CustomizationGroupID *uuid.UUID                 `gorm:"column:customization_group_id;type:uuid"`
	CustomizationOptions types.CustomizationOptions `gorm:"column:customization_options;type:jsonb;serializer:json"`
	CreatedAt            time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// CustomizationGroupDefinition is a reusable option set shared by products.
type CustomizationGroupDefinition struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                     `gorm:"column:name;not null"`
	Description *string                    `gorm:"column:description"`
	Options     types.CustomizationOptions `gorm:"column:options;type:jsonb;serializer:json"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CustomizationGroupDefinition) TableName() string {
	return "customization_group_definitions"
}

func (g *CustomizationGroupDefinition) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
