package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

// Repository persists products and customization groups.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListProducts(ctx context.Context, input ListInput, cursor *pagination.Cursor) ([]models.Product, error)
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error

	CreateGroup(ctx context.Context, group *models.CustomizationGroupDefinition) error
	UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	FindGroup(ctx context.Context, id uuid.UUID) (*models.CustomizationGroupDefinition, error)
	FindGroups(ctx context.Context, ids []uuid.UUID) ([]models.CustomizationGroupDefinition, error)
	ListGroups(ctx context.Context) ([]models.CustomizationGroupDefinition, error)
	DetachGroup(ctx context.Context, groupID uuid.UUID) error
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

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListProducts(ctx context.Context, input ListInput, cursor *pagination.Cursor) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if input.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if category := strings.TrimSpace(input.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if q := strings.TrimSpace(input.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var products []models.Product
	err := query.Scopes(pagination.Keyset(cursor, pagination.LimitWithBuffer(input.Pagination.Limit))).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// IncrementStock adds qty to the on-hand count in a single statement.
func (r *repository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateGroup(ctx context.Context, group *models.CustomizationGroupDefinition) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) UpdateGroup(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.CustomizationGroupDefinition{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CustomizationGroupDefinition{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.CustomizationGroupDefinition, error) {
	var group models.CustomizationGroupDefinition
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) FindGroups(ctx context.Context, ids []uuid.UUID) ([]models.CustomizationGroupDefinition, error) {
	var groups []models.CustomizationGroupDefinition
	if len(ids) == 0 {
		return groups, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repository) ListGroups(ctx context.Context) ([]models.CustomizationGroupDefinition, error) {
	var groups []models.CustomizationGroupDefinition
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// DetachGroup clears the group reference on every product using it.
func (r *repository) DetachGroup(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("customization_group_id = ?", groupID).
		Update("customization_group_id", nil).Error
}
