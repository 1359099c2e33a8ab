package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// ProductInput is the create/replace payload for a product.
type ProductInput struct {
	Name                 string                     `json:"name" validate:"required,max=200"`
	Description          *string                    `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category             string                     `json:"category" validate:"required,max=80"`
	Price                decimal.Decimal            `json:"price" validate:"money"`
	Images               []string                   `json:"images" validate:"omitempty,max=12,dive,url"`
	StockQuantity        int                        `json:"stock_quantity" validate:"min=0"`
	Active               *bool                      `json:"active,omitempty"`
	CustomizationGroupID *uuid.UUID                 `json:"customization_group_id,omitempty"`
	CustomizationOptions types.CustomizationOptions `json:"customization_options" validate:"omitempty,dive"`
}

// GroupInput is the create/replace payload for a customization group.
type GroupInput struct {
	Name        string                     `json:"name" validate:"required,max=120"`
	Description *string                    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Options     types.CustomizationOptions `json:"options" validate:"omitempty,dive"`
}

// ListInput filters product listings.
type ListInput struct {
	Category   string
	Query      string
	ActiveOnly bool
	Pagination pagination.Params
}

type ProductDTO struct {
	ID                   uuid.UUID                  `json:"id"`
	Name                 string                     `json:"name"`
	Description          *string                    `json:"description,omitempty"`
	Category             string                     `json:"category"`
	Price                decimal.Decimal            `json:"price" validate:"money"`
	Images               []string                   `json:"images"`
	StockQuantity        int                        `json:"stock_quantity"`
	Active               bool                       `json:"active"`
	CustomizationGroupID *uuid.UUID                 `json:"customization_group_id,omitempty"`
	CustomizationOptions types.CustomizationOptions `json:"customization_options"`
	EffectiveOptions     types.CustomizationOptions `json:"effective_options"`
	CreatedAt            time.Time                  `json:"created_at"`
	UpdatedAt            time.Time                  `json:"updated_at"`
}

type GroupDTO struct {
	ID          uuid.UUID                  `json:"id"`
	Name        string                     `json:"name"`
	Description *string                    `json:"description,omitempty"`
	Options     types.CustomizationOptions `json:"options"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// UploadKind selects the bucket prefix and who may upload.
type UploadKind string

const (
	UploadProductImage       UploadKind = "product_image"
	UploadCustomizationImage UploadKind = "customization_image"
)

type UploadInput struct {
	Kind        UploadKind `json:"kind"`
	FileName    string     `json:"file_name" validate:"required,max=200"`
	ContentType string     `json:"content_type" validate:"required"`
}

// UploadURLDTO carries the signed PUT URL and the URL to store afterwards.
type UploadURLDTO struct {
	UploadURL   string    `json:"upload_url"`
	PublicURL   string    `json:"public_url"`
	ObjectName  string    `json:"object_name"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CatalogItem is what checkout needs to price one product.
type CatalogItem struct {
	Product models.Product
	Options types.CustomizationOptions
}

func toProductDTO(p models.Product, group *models.CustomizationGroupDefinition) ProductDTO {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	inline := p.CustomizationOptions
	if inline == nil {
		inline = types.CustomizationOptions{}
	}
	effective := EffectiveOptions(p, group)
	if effective == nil {
		effective = types.CustomizationOptions{}
	}
	return ProductDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		Category:             p.Category,
		Price:                p.Price,
		Images:               images,
		StockQuantity:        p.StockQuantity,
		Active:               p.Active,
		CustomizationGroupID: p.CustomizationGroupID,
		CustomizationOptions: inline,
		EffectiveOptions:     effective,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toGroupDTO(g models.CustomizationGroupDefinition) GroupDTO {
	options := g.Options
	if options == nil {
		options = types.CustomizationOptions{}
	}
	return GroupDTO{ID: g.ID, Name: g.Name, Description: g.Description, Options: options, UpdatedAt: g.UpdatedAt}
}
