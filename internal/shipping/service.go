package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// Service exposes shipping price resolution and admin management.
type Service interface {
	Quote(ctx context.Context, regionID, methodID uuid.UUID) (*QuoteDTO, error)
	// ResolveTx prices a (region, method) pair inside an open transaction.
	ResolveTx(ctx context.Context, tx *gorm.DB, regionID, methodID uuid.UUID) (decimal.Decimal, error)

	CreateRegion(ctx context.Context, input RegionInput) (*RegionDTO, error)
	UpdateRegion(ctx context.Context, id uuid.UUID, input RegionInput) (*RegionDTO, error)
	DeactivateRegion(ctx context.Context, id uuid.UUID) error
	ListRegions(ctx context.Context, activeOnly bool) ([]RegionDTO, error)

	CreateMethod(ctx context.Context, input MethodInput) (*MethodDTO, error)
	UpdateMethod(ctx context.Context, id uuid.UUID, input MethodInput) (*MethodDTO, error)
	ListMethods(ctx context.Context, activeOnly bool) ([]MethodDTO, error)

	UpsertRate(ctx context.Context, input RateInput) (*RateDTO, error)
	DeactivateRate(ctx context.Context, id uuid.UUID) error
	ListRates(ctx context.Context) ([]RateDTO, error)
}

type service struct {
	repo Repository
	tx   db.TxRunner
}

func NewService(repo Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Quote(ctx context.Context, regionID, methodID uuid.UUID) (*QuoteDTO, error) {
	price, method, err := s.resolve(ctx, s.repo, regionID, methodID)
	if err != nil {
		return nil, err
	}
	return &QuoteDTO{RegionID: regionID, MethodID: methodID, Price: price, Duration: method.Duration}, nil
}

func (s *service) ResolveTx(ctx context.Context, tx *gorm.DB, regionID, methodID uuid.UUID) (decimal.Decimal, error) {
	price, _, err := s.resolve(ctx, s.repo.WithTx(tx), regionID, methodID)
	return price, err
}

func (s *service) resolve(ctx context.Context, repo Repository, regionID, methodID uuid.UUID) (decimal.Decimal, *models.ShippingMethod, error) {
	if regionID == uuid.Nil || methodID == uuid.Nil {
		return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "region and method are required")
	}
	region, err := repo.FindRegion(ctx, regionID)
	if err != nil {
		return decimal.Zero, nil, notFoundOr(err, "shipping region not found", "load shipping region")
	}
	if !region.Active {
		return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping region is not available")
	}
	rates, err := repo.ListRates(ctx)
	if err != nil {
		return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shipping rates")
	}
	methods, err := repo.ListMethods(ctx, false)
	if err != nil {
		return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shipping methods")
	}
	price, err := ResolvePrice(regionID, methodID, rates, methods)
	if err != nil {
		return decimal.Zero, nil, err
	}
	method := &models.ShippingMethod{ID: methodID}
	for i := range methods {
		if methods[i].ID == methodID {
			method = &methods[i]
			break
		}
	}
	if !method.Active {
		return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping method is not available")
	}
	return price, method, nil
}

func (s *service) CreateRegion(ctx context.Context, input RegionInput) (*RegionDTO, error) {
	region := models.ShippingRegion{
		Name:   strings.TrimSpace(input.Name),
		County: strings.TrimSpace(input.County),
		Towns:  normalizeTowns(input.Towns),
		Active: input.Active == nil || *input.Active,
	}
	if err := s.repo.CreateRegion(ctx, &region); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shipping region")
	}
	dto := regionToDTO(region)
	return &dto, nil
}

func (s *service) UpdateRegion(ctx context.Context, id uuid.UUID, input RegionInput) (*RegionDTO, error) {
	updates := map[string]any{
		"name":   strings.TrimSpace(input.Name),
		"county": strings.TrimSpace(input.County),
		"towns":  normalizeTowns(input.Towns),
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	var out *RegionDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateRegion(ctx, id, updates); err != nil {
			return notFoundOr(err, "shipping region not found", "update shipping region")
		}
		region, err := repo.FindRegion(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload shipping region")
		}
		dto := regionToDTO(*region)
		out = &dto
		return nil
	})
	return out, err
}

func (s *service) DeactivateRegion(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.UpdateRegion(ctx, id, map[string]any{"active": false}); err != nil {
		return notFoundOr(err, "shipping region not found", "deactivate shipping region")
	}
	return nil
}

func (s *service) ListRegions(ctx context.Context, activeOnly bool) ([]RegionDTO, error) {
	regions, err := s.repo.ListRegions(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipping regions")
	}
	out := make([]RegionDTO, 0, len(regions))
	for _, region := range regions {
		out = append(out, regionToDTO(region))
	}
	return out, nil
}

func (s *service) CreateMethod(ctx context.Context, input MethodInput) (*MethodDTO, error) {
	if err := validatePrice(input.BasePrice, "base_price"); err != nil {
		return nil, err
	}
	method := models.ShippingMethod{
		Name:      strings.TrimSpace(input.Name),
		BasePrice: input.BasePrice.Round(2),
		Duration:  strings.TrimSpace(input.Duration),
		Active:    input.Active == nil || *input.Active,
	}
	if err := s.repo.CreateMethod(ctx, &method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shipping method")
	}
	dto := methodToDTO(method)
	return &dto, nil
}

func (s *service) UpdateMethod(ctx context.Context, id uuid.UUID, input MethodInput) (*MethodDTO, error) {
	if err := validatePrice(input.BasePrice, "base_price"); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":       strings.TrimSpace(input.Name),
		"base_price": input.BasePrice.Round(2),
		"duration":   strings.TrimSpace(input.Duration),
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	var out *MethodDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateMethod(ctx, id, updates); err != nil {
			return notFoundOr(err, "shipping method not found", "update shipping method")
		}
		method, err := repo.FindMethod(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload shipping method")
		}
		dto := methodToDTO(*method)
		out = &dto
		return nil
	})
	return out, err
}

func (s *service) ListMethods(ctx context.Context, activeOnly bool) ([]MethodDTO, error) {
	methods, err := s.repo.ListMethods(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipping methods")
	}
	out := make([]MethodDTO, 0, len(methods))
	for _, method := range methods {
		out = append(out, methodToDTO(method))
	}
	return out, nil
}

// UpsertRate creates the override for a pair or updates the existing one.
func (s *service) UpsertRate(ctx context.Context, input RateInput) (*RateDTO, error) {
	if err := validatePrice(input.CustomPrice, "custom_price"); err != nil {
		return nil, err
	}
	active := input.Active == nil || *input.Active
	var out *RateDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindRegion(ctx, input.RegionID); err != nil {
			return notFoundOr(err, "shipping region not found", "load shipping region")
		}
		if _, err := repo.FindMethod(ctx, input.MethodID); err != nil {
			return notFoundOr(err, "shipping method not found", "load shipping method")
		}

		existing, err := repo.FindRate(ctx, input.RegionID, input.MethodID)
		switch {
		case err == nil:
			if err := repo.UpdateRate(ctx, existing.ID, map[string]any{
				"custom_price": input.CustomPrice.Round(2),
				"active":       active,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shipping rate")
			}
			existing.CustomPrice = input.CustomPrice.Round(2)
			existing.Active = active
			dto := rateToDTO(*existing)
			out = &dto
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			rate := models.ShippingRate{
				RegionID:    input.RegionID,
				MethodID:    input.MethodID,
				CustomPrice: input.CustomPrice.Round(2),
				Active:      active,
			}
			if err := repo.CreateRate(ctx, &rate); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "shipping rate already exists for this region and method")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shipping rate")
			}
			dto := rateToDTO(rate)
			out = &dto
			return nil
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shipping rate")
		}
	})
	return out, err
}

func (s *service) DeactivateRate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.UpdateRate(ctx, id, map[string]any{"active": false}); err != nil {
		return notFoundOr(err, "shipping rate not found", "deactivate shipping rate")
	}
	return nil
}

func (s *service) ListRates(ctx context.Context) ([]RateDTO, error) {
	rates, err := s.repo.ListRates(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipping rates")
	}
	out := make([]RateDTO, 0, len(rates))
	for _, rate := range rates {
		out = append(out, rateToDTO(rate))
	}
	return out, nil
}

func validatePrice(price decimal.Decimal, field string) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must not be negative").
			WithDetails(map[string]string{field: "must be >= 0"})
	}
	return nil
}

func normalizeTowns(towns []string) types.StringList {
	out := make(types.StringList, 0, len(towns))
	for _, town := range towns {
		if trimmed := strings.TrimSpace(town); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}
