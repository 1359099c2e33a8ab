package stockrequests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

type CreateInput struct {
	ProductID         uuid.UUID `json:"product_id" validate:"required"`
	RequestedQuantity int       `json:"requested_quantity" validate:"required,min=1"`
	Notes             *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type BidInput struct {
	PricePerUnit decimal.Decimal `json:"price_per_unit" validate:"required"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Notes        *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ListFilters narrows listings. VisibleToSupplier is set by the service for
// supplier callers and is never read from the request.
type ListFilters struct {
	Status            *enums.StockRequestStatus
	ProductID         *uuid.UUID
	VisibleToSupplier *uuid.UUID
}

type ListParams struct {
	ListFilters
	pagination.Params
}

type BidDTO struct {
	ID           uuid.UUID       `json:"id"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Notes        *string         `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StockRequestDTO is the API view. Suppliers only see their own bids.
type StockRequestDTO struct {
	ID                uuid.UUID                `json:"id"`
	ProductID         uuid.UUID                `json:"product_id"`
	ProductName       string                   `json:"product_name"`
	RequestedQuantity int                      `json:"requested_quantity"`
	Notes             *string                  `json:"notes,omitempty"`
	Status            enums.StockRequestStatus `json:"status"`
	Bids              []BidDTO                 `json:"bids"`
	BestBidID         *uuid.UUID               `json:"best_bid_id,omitempty"`
	WinningBidID      *uuid.UUID               `json:"winning_bid_id,omitempty"`
	SupplierID        *uuid.UUID               `json:"supplier_id,omitempty"`
	SupplierPrice     *decimal.Decimal         `json:"supplier_price,omitempty"`
	TaxRate           *decimal.Decimal         `json:"tax_rate,omitempty"`
	AwardedAt         *time.Time               `json:"awarded_at,omitempty"`
	AwardedBy         *uuid.UUID               `json:"awarded_by,omitempty"`
	FulfilledQuantity *int                     `json:"fulfilled_quantity,omitempty"`
	InvoiceID         *uuid.UUID               `json:"invoice_id,omitempty"`
	ReceivedQuantity  *int                     `json:"received_quantity,omitempty"`
	ReceivedAt        *time.Time               `json:"received_at,omitempty"`
	Discrepancy       *int                     `json:"discrepancy,omitempty"`
	ClosedReason      *string                  `json:"closed_reason,omitempty"`
	CreatedBy         uuid.UUID                `json:"created_by"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// FromModel converts a request. A non-nil supplierID restricts the bids to
// that supplier's own.
func FromModel(r *models.StockRequest, supplierID *uuid.UUID) *StockRequestDTO {
	if r == nil {
		return nil
	}
	dto := &StockRequestDTO{
		ID:                r.ID,
		ProductID:         r.ProductID,
		ProductName:       r.ProductName,
		RequestedQuantity: r.RequestedQuantity,
		Notes:             r.Notes,
		Status:            r.Status,
		Bids:              make([]BidDTO, 0, len(r.Bids)),
		WinningBidID:      r.WinningBidID,
		SupplierID:        r.SupplierID,
		SupplierPrice:     r.SupplierPrice,
		TaxRate:           r.TaxRate,
		AwardedAt:         r.AwardedAt,
		AwardedBy:         r.AwardedBy,
		FulfilledQuantity: r.FulfilledQuantity,
		InvoiceID:         r.InvoiceID,
		ReceivedQuantity:  r.ReceivedQuantity,
		ReceivedAt:        r.ReceivedAt,
		Discrepancy:       r.Discrepancy,
		ClosedReason:      r.ClosedReason,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	for _, bid := range r.Bids {
		if supplierID != nil && bid.SupplierID != *supplierID {
			continue
		}
		dto.Bids = append(dto.Bids, BidDTO{
			ID:           bid.ID,
			SupplierID:   bid.SupplierID,
			SupplierName: bid.SupplierName,
			PricePerUnit: bid.PricePerUnit,
			TaxRate:      bid.TaxRate,
			Notes:        bid.Notes,
			CreatedAt:    bid.CreatedAt,
		})
	}
	if supplierID == nil {
		if best, ok := BestBid(r.Bids); ok {
			id := best.ID
			dto.BestBidID = &id
		}
	}
	return dto
}
