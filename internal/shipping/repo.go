package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
)

// Repository persists shipping regions, methods and rates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRegion(ctx context.Context, region *models.ShippingRegion) error
	UpdateRegion(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindRegion(ctx context.Context, id uuid.UUID) (*models.ShippingRegion, error)
	ListRegions(ctx context.Context, activeOnly bool) ([]models.ShippingRegion, error)

	CreateMethod(ctx context.Context, method *models.ShippingMethod) error
	UpdateMethod(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindMethod(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error)
	ListMethods(ctx context.Context, activeOnly bool) ([]models.ShippingMethod, error)

	FindRate(ctx context.Context, regionID, methodID uuid.UUID) (*models.ShippingRate, error)
	CreateRate(ctx context.Context, rate *models.ShippingRate) error
	UpdateRate(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListRates(ctx context.Context) ([]models.ShippingRate, error)
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

func (r *repository) CreateRegion(ctx context.Context, region *models.ShippingRegion) error {
	return r.db.WithContext(ctx).Create(region).Error
}

func (r *repository) UpdateRegion(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, &models.ShippingRegion{}, id, updates)
}

func (r *repository) FindRegion(ctx context.Context, id uuid.UUID) (*models.ShippingRegion, error) {
	var region models.ShippingRegion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&region).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *repository) ListRegions(ctx context.Context, activeOnly bool) ([]models.ShippingRegion, error) {
	var regions []models.ShippingRegion
	query := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *repository) CreateMethod(ctx context.Context, method *models.ShippingMethod) error {
	return r.db.WithContext(ctx).Create(method).Error
}

func (r *repository) UpdateMethod(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, &models.ShippingMethod{}, id, updates)
}

func (r *repository) FindMethod(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error) {
	var method models.ShippingMethod
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) ListMethods(ctx context.Context, activeOnly bool) ([]models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	query := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *repository) FindRate(ctx context.Context, regionID, methodID uuid.UUID) (*models.ShippingRate, error) {
	var rate models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("region_id = ? AND method_id = ?", regionID, methodID).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateRate(ctx context.Context, rate *models.ShippingRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) UpdateRate(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.update(ctx, &models.ShippingRate{}, id, updates)
}

func (r *repository) ListRates(ctx context.Context) ([]models.ShippingRate, error) {
	var rates []models.ShippingRate
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repository) update(ctx context.Context, model any, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
