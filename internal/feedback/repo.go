package feedback

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateThread(ctx context.Context, thread *models.FeedbackThread) error
	AddMessage(ctx context.Context, message *models.FeedbackMessage) error
	FindThread(ctx context.Context, id uuid.UUID) (*models.FeedbackThread, error)
	ListThreads(ctx context.Context, customerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.FeedbackThread, error)
	Messages(ctx context.Context, threadID uuid.UUID) ([]models.FeedbackMessage, error)
	GuardedUpdate(ctx context.Context, guard db.Guard, updates map[string]any) (bool, error)
	OrderCustomer(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
}

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

func (r *repository) CreateThread(ctx context.Context, thread *models.FeedbackThread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *repository) AddMessage(ctx context.Context, message *models.FeedbackMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) FindThread(ctx context.Context, id uuid.UUID) (*models.FeedbackThread, error) {
	var thread models.FeedbackThread
	if err := r.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListThreads orders by created_at so the cursor stays stable while new
// messages arrive.
func (r *repository) ListThreads(ctx context.Context, customerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.FeedbackThread, error) {
	query := r.db.WithContext(ctx).Model(&models.FeedbackThread{})
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	var rows []models.FeedbackThread
	if err := query.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Messages(ctx context.Context, threadID uuid.UUID) ([]models.FeedbackMessage, error) {
	var rows []models.FeedbackMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) GuardedUpdate(ctx context.Context, guard db.Guard, updates map[string]any) (bool, error) {
	guard.Table = "feedback_threads"
	return db.GuardedUpdate(r.db.WithContext(ctx), guard, updates)
}

func (r *repository) OrderCustomer(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Select("id", "customer_id").First(&order, "id = ?", orderID).Error; err != nil {
		return uuid.Nil, err
	}
	return order.CustomerID, nil
}
