package products

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// Service exposes catalog management and reads.
type Service interface {
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error)
	ArchiveProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID, activeOnly bool) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)

	CreateGroup(ctx context.Context, input GroupInput) (*GroupDTO, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, input GroupInput) (*GroupDTO, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	ListGroups(ctx context.Context) ([]GroupDTO, error)

	ImageUploadURL(ctx context.Context, actor types.Actor, input UploadInput) (*UploadURLDTO, error)

	// LoadCatalogTx returns the products with their effective options.
	LoadCatalogTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]CatalogItem, error)
	IncrementStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error
}

// URLSigner issues signed upload URLs for object storage.
type URLSigner interface {
	SignedUploadURL(bucket, object, contentType string, expires time.Duration) (string, error)
	PublicURL(bucket, object string) string
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type service struct {
	repo      Repository
	tx        db.TxRunner
	signer    URLSigner
	uploadTTL time.Duration
	now       func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, signer URLSigner, uploadTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if uploadTTL <= 0 {
		uploadTTL = 15 * time.Minute
	}
	return &service{repo: repo, tx: tx, signer: signer, uploadTTL: uploadTTL, now: time.Now}, nil
}

func (s *service) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	var out *ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		group, err := s.loadGroupRef(ctx, repo, input.CustomizationGroupID)
		if err != nil {
			return err
		}
		product := models.Product{
			Name:                 strings.TrimSpace(input.Name),
			Description:          input.Description,
			Category:             strings.TrimSpace(input.Category),
			Price:                input.Price.Round(2),
			Images:               types.StringList(input.Images),
			StockQuantity:        input.StockQuantity,
			Active:               input.Active == nil || *input.Active,
			CustomizationGroupID: input.CustomizationGroupID,
			CustomizationOptions: input.CustomizationOptions,
		}
		if err := repo.CreateProduct(ctx, &product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
		}
		dto := toProductDTO(product, group)
		out = &dto
		return nil
	})
	return out, err
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":                   strings.TrimSpace(input.Name),
		"description":            input.Description,
		"category":               strings.TrimSpace(input.Category),
		"price":                  input.Price.Round(2),
		"images":                 types.StringList(input.Images),
		"stock_quantity":         input.StockQuantity,
		"customization_group_id": input.CustomizationGroupID,
		"customization_options":  input.CustomizationOptions,
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}

	var out *ProductDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		group, err := s.loadGroupRef(ctx, repo, input.CustomizationGroupID)
		if err != nil {
			return err
		}
		if err := repo.UpdateProduct(ctx, id, updates); err != nil {
			return notFoundOr(err, "product not found", "update product")
		}
		product, err := repo.FindProduct(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
		}
		dto := toProductDTO(*product, group)
		out = &dto
		return nil
	})
	return out, err
}

// ArchiveProduct hides the product from the storefront. Products are kept
// because past orders reference them.
func (s *service) ArchiveProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.UpdateProduct(ctx, id, map[string]any{"active": false}); err != nil {
		return notFoundOr(err, "product not found", "archive product")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID, activeOnly bool) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if activeOnly && !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	group, err := s.loadGroupRef(ctx, s.repo, product.CustomizationGroupID)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		return nil, err
	}
	dto := toProductDTO(*product, group)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListProducts(ctx, input, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	groups, err := s.groupsFor(ctx, s.repo, rows)
	if err != nil {
		return nil, err
	}
	page := pagination.Trim(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, product := range page.Items {
		var group *models.CustomizationGroupDefinition
		if product.CustomizationGroupID != nil {
			group = groups[*product.CustomizationGroupID]
		}
		out.Items = append(out.Items, toProductDTO(product, group))
	}
	return &out, nil
}

func (s *service) CreateGroup(ctx context.Context, input GroupInput) (*GroupDTO, error) {
	if problems := validateOptions(input.Options); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customization options").WithDetails(problems)
	}
	group := models.CustomizationGroupDefinition{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Options:     input.Options,
	}
	if err := s.repo.CreateGroup(ctx, &group); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customization group")
	}
	dto := toGroupDTO(group)
	return &dto, nil
}

func (s *service) UpdateGroup(ctx context.Context, id uuid.UUID, input GroupInput) (*GroupDTO, error) {
	if problems := validateOptions(input.Options); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customization options").WithDetails(problems)
	}
	var out *GroupDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		err := repo.UpdateGroup(ctx, id, map[string]any{
			"name":        strings.TrimSpace(input.Name),
			"description": input.Description,
			"options":     input.Options,
		})
		if err != nil {
			return notFoundOr(err, "customization group not found", "update customization group")
		}
		group, err := repo.FindGroup(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload customization group")
		}
		dto := toGroupDTO(*group)
		out = &dto
		return nil
	})
	return out, err
}

// DeleteGroup removes the group and points its products back at their
// inline options.
func (s *service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DetachGroup(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "detach customization group")
		}
		if err := repo.DeleteGroup(ctx, id); err != nil {
			return notFoundOr(err, "customization group not found", "delete customization group")
		}
		return nil
	})
}

func (s *service) ListGroups(ctx context.Context) ([]GroupDTO, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customization groups")
	}
	out := make([]GroupDTO, 0, len(groups))
	for _, group := range groups {
		out = append(out, toGroupDTO(group))
	}
	return out, nil
}

func (s *service) ImageUploadURL(ctx context.Context, actor types.Actor, input UploadInput) (*UploadURLDTO, error) {
	if s.signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uploads are not configured")
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported content type").
			WithDetails(map[string]string{"content_type": "must be image/jpeg, image/png, image/webp or image/gif"})
	}

	var prefix string
	switch input.Kind {
	case UploadProductImage:
		if !actor.Role.In(enums.RoleAdmin, enums.RoleInventoryManager) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product images are managed by staff")
		}
		prefix = "products"
	case UploadCustomizationImage, "":
		if actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		prefix = path.Join("customizations", actor.UserID.String())
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown upload kind")
	}

	base := sanitizeFileName(strings.TrimSuffix(input.FileName, path.Ext(input.FileName)))
	object := path.Join(prefix, fmt.Sprintf("%s-%s%s", uuid.NewString(), base, ext))
	uploadURL, err := s.signer.SignedUploadURL("", object, contentType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	return &UploadURLDTO{
		UploadURL:   uploadURL,
		PublicURL:   s.signer.PublicURL("", object),
		ObjectName:  object,
		ContentType: contentType,
		ExpiresAt:   s.now().Add(s.uploadTTL).UTC(),
	}, nil
}

func (s *service) LoadCatalogTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]CatalogItem, error) {
	repo := s.repo.WithTx(tx)
	rows, err := repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	groups, err := s.groupsFor(ctx, repo, rows)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]CatalogItem, len(rows))
	for _, product := range rows {
		var group *models.CustomizationGroupDefinition
		if product.CustomizationGroupID != nil {
			group = groups[*product.CustomizationGroupID]
		}
		out[product.ID] = CatalogItem{Product: product, Options: EffectiveOptions(product, group)}
	}
	return out, nil
}

func (s *service) IncrementStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) error {
	if err := s.repo.WithTx(tx).IncrementStock(ctx, id, qty); err != nil {
		return notFoundOr(err, "product not found", "increment stock")
	}
	return nil
}

func (s *service) loadGroupRef(ctx context.Context, repo Repository, id *uuid.UUID) (*models.CustomizationGroupDefinition, error) {
	if id == nil {
		return nil, nil
	}
	group, err := repo.FindGroup(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customization group not found").
				WithDetails(map[string]string{"customization_group_id": "not found"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customization group")
	}
	return group, nil
}

func (s *service) groupsFor(ctx context.Context, repo Repository, rows []models.Product) (map[uuid.UUID]*models.CustomizationGroupDefinition, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := []uuid.UUID{}
	for _, product := range rows {
		if product.CustomizationGroupID == nil {
			continue
		}
		if _, ok := seen[*product.CustomizationGroupID]; ok {
			continue
		}
		seen[*product.CustomizationGroupID] = struct{}{}
		ids = append(ids, *product.CustomizationGroupID)
	}
	groups, err := repo.FindGroups(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customization groups")
	}
	out := make(map[uuid.UUID]*models.CustomizationGroupDefinition, len(groups))
	for i := range groups {
		out[groups[i].ID] = &groups[i]
	}
	return out, nil
}

func validateProductInput(input ProductInput) error {
	problems := validateOptions(input.CustomizationOptions)
	if input.Price.IsNegative() || input.Price.IsZero() {
		problems["price"] = "must be greater than 0"
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(problems)
	}
	return nil
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "image"
	}
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}

func notFoundOr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}
