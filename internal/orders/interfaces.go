package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their child tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	// AppendHistory assigns the next sequence number and inserts the entry.
	AppendHistory(ctx context.Context, entry *models.OrderHistoryEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEntry, error)
	List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	GuardedUpdate(ctx context.Context, guard db.Guard, updates map[string]any) (bool, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	CountActiveByRider(ctx context.Context, riderIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Catalog prices checkout lines from the product catalog.
type Catalog interface {
	LoadCatalogTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]products.CatalogItem, error)
}

// ShippingResolver prices the delivery leg.
type ShippingResolver interface {
	ResolveTx(ctx context.Context, tx *gorm.DB, regionID, methodID uuid.UUID) (decimal.Decimal, error)
}
