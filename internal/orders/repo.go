package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

var activeRiderStatuses = []enums.OrderStatus{
	enums.OrderStatusAssigned,
	enums.OrderStatusOutForDelivery,
	enums.OrderStatusDeliveryAttempted,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	// order_number comes from the database sequence, so it is read back after insert
	if err := r.db.WithContext(ctx).Omit(clause.Associations, "order_number").Create(order).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Pluck("order_number", &order.OrderNumber).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderHistoryEntry) error {
	var next int
	err := r.db.WithContext(ctx).Model(&models.OrderHistoryEntry{}).
		Where("order_id = ?", entry.OrderID).
		Select("COALESCE(MAX(seq), 0) + 1").
		Scan(&next).Error
	if err != nil {
		return err
	}
	entry.Seq = next
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("seq ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEntry, error) {
	var rows []models.OrderHistoryEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.RiderID != nil {
		query = query.Where("rider_id = ?", *filters.RiderID)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	var rows []models.Order
	if err := query.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) GuardedUpdate(ctx context.Context, guard db.Guard, updates map[string]any) (bool, error) {
	guard.Table = "orders"
	return db.GuardedUpdate(r.db.WithContext(ctx), guard, updates)
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStaleUnpaid returns pending, unpaid, non-COD orders created before cutoff.
func (r *repository) ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_method <> ?", enums.PaymentMethodCOD).
		Where("payment_status IN ?", enums.UnsettledPaymentStatuses).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountActiveByRider(ctx context.Context, riderIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(riderIDs))
	if len(riderIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		RiderID uuid.UUID
		Active  int
	}
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Select("rider_id, COUNT(*) AS active").
		Where("rider_id IN ?", riderIDs).
		Where("status IN ?", activeRiderStatuses).
		Group("rider_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.RiderID] = row.Active
	}
	return out, nil
}
