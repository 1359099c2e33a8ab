package stockrequests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

// Repository defines persistence for stock requests and their bids.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.StockRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockRequest, error)
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.StockRequest, error)
	InsertBid(ctx context.Context, bid *models.Bid) error
	GuardedUpdate(ctx context.Context, guard db.Guard, updates map[string]any) (bool, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Inventory reads products and books received stock.
type Inventory interface {
	LoadCatalogTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]products.CatalogItem, error)
	IncrementStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
}
