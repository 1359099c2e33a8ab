package stockrequests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.StockRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockRequest, error) {
	var request models.StockRequest
	err := r.db.WithContext(ctx).
		Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.StockRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.StockRequest{}).
		Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") })
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ProductID != nil {
		query = query.Where("product_id = ?", *filters.ProductID)
	}
	if filters.VisibleToSupplier != nil {
		// open for bidding, or already won by this supplier
		query = query.Where("(status IN ?) OR (supplier_id = ?)",
			[]enums.StockRequestStatus{enums.StockRequestStatusPendingBids, enums.StockRequestStatusPendingAward},
			*filters.VisibleToSupplier)
	}
	var rows []models.StockRequest
	if err := query.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) InsertBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *repository) GuardedUpdate(ctx context.Context, guard db.Guard, updates map[string]any) (bool, error) {
	guard.Table = "stock_requests"
	return db.GuardedUpdate(r.db.WithContext(ctx), guard, updates)
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
