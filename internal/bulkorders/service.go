package bulkorders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/orders"
	"github.com/angelmondragon/giftops-backend/internal/products"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

var quoteRoles = []enums.Role{enums.RoleAdmin, enums.RoleCustomerService}

// Catalog checks requested products exist.
type Catalog interface {
	LoadCatalogTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]products.CatalogItem, error)
}

// OrderCreator turns a confirmed request into an order inside the caller's
// transaction.
type OrderCreator interface {
	CreateFromBulk(ctx context.Context, tx *gorm.DB, actor types.Actor, customerID uuid.UUID, input orders.BulkOrderInput) (*models.Order, error)
}

type Service interface {
	Submit(ctx context.Context, actor types.Actor, input SubmitInput) (*BulkOrderDTO, error)
	Quote(ctx context.Context, actor types.Actor, id uuid.UUID, input QuoteInput) (*BulkOrderDTO, error)
	Reject(ctx context.Context, actor types.Actor, id uuid.UUID, notes string) (*BulkOrderDTO, error)
	Cancel(ctx context.Context, actor types.Actor, id uuid.UUID) (*BulkOrderDTO, error)
	Confirm(ctx context.Context, actor types.Actor, id uuid.UUID) (*BulkOrderDTO, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*BulkOrderDTO, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[BulkOrderDTO], error)
}

type ServiceParams struct {
	Repo    Repository
	Tx      db.TxRunner
	Outbox  outbox.Emitter
	Catalog Catalog
	Orders  OrderCreator
}

type service struct {
	repo    Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	catalog Catalog
	orders  OrderCreator
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("bulk order repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Catalog == nil:
		return nil, fmt.Errorf("catalog required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order creator required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		catalog: params.Catalog,
		orders:  params.Orders,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, actor types.Actor, input SubmitInput) (*BulkOrderDTO, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can request bulk orders")
	}
	problems := map[string]string{}
	if strings.TrimSpace(input.CompanyName) == "" {
		problems["company_name"] = "required"
	}
	if len(input.Items) == 0 {
		problems["items"] = "at least one item is required"
	}
	if !input.PaymentMethod.IsValid() {
		problems["payment_method"] = "must be cod, mpesa or card"
	}
	for i, line := range input.Items {
		if line.Quantity <= 0 {
			problems[fmt.Sprintf("items[%d].quantity", i)] = "must be positive"
		}
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid bulk order").WithDetails(problems)
	}

	var request *models.BulkOrderRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			ids = append(ids, line.ProductID)
		}
		catalog, err := s.catalog.LoadCatalogTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i, line := range input.Items {
			if entry, ok := catalog[line.ProductID]; !ok || !entry.Product.Active {
				problems[fmt.Sprintf("items[%d].product_id", i)] = "product not available"
			}
		}
		if len(problems) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid bulk order").WithDetails(problems)
		}

		now := s.now()
		request = &models.BulkOrderRequest{
			ID:               uuid.New(),
			CustomerID:       actor.UserID,
			CompanyName:      strings.TrimSpace(input.CompanyName),
			ContactName:      strings.TrimSpace(input.ContactName),
			ContactPhone:     strings.TrimSpace(input.ContactPhone),
			ContactEmail:     strings.ToLower(strings.TrimSpace(input.ContactEmail)),
			Items:            input.Items,
			DesiredDate:      input.DesiredDate,
			ShippingAddress:  input.ShippingAddress.Normalize(),
			ShippingRegionID: input.ShippingRegionID,
			ShippingMethodID: input.ShippingMethodID,
			PaymentMethod:    input.PaymentMethod,
			Status:           enums.BulkOrderStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bulk order request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(request), nil
}

func (s *service) Quote(ctx context.Context, actor types.Actor, id uuid.UUID, input QuoteInput) (*BulkOrderDTO, error) {
	if !actor.Role.In(quoteRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not quote bulk orders")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := load(ctx, repo, id)
		if err != nil {
			return err
		}
		if request.Status != enums.BulkOrderStatusPending {
			return pkgerrors.StateConflict("bulk_order", string(request.Status), string(enums.BulkOrderStatusQuoted))
		}
		prices, total, err := priceQuote(request.Items, input)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"status":             enums.BulkOrderStatusQuoted,
			"quoted_unit_prices": prices,
			"quoted_total":       total,
			"updated_at":         s.now(),
		}
		if input.AdminNotes != nil {
			updates["admin_notes"] = strings.TrimSpace(*input.AdminNotes)
		}
		if err := s.move(ctx, repo, request, enums.BulkOrderStatusQuoted, updates); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventBulkOrderQuoted, request.ID, actor, payloads.BulkOrderQuotedEvent{
			BulkOrderID: request.ID,
			CustomerID:  request.CustomerID,
			CompanyName: request.CompanyName,
			QuotedTotal: total,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// priceQuote requires a non-negative price for every requested product.
func priceQuote(lines []types.BulkOrderLine, input QuoteInput) (types.PriceMap, decimal.Decimal, error) {
	problems := map[string]string{}
	prices := types.PriceMap{}
	sum := decimal.Zero
	for i, line := range lines {
		price, ok := input.UnitPrices[line.ProductID]
		if !ok || price.IsNegative() {
			problems[fmt.Sprintf("unit_prices.%s", line.ProductID)] = fmt.Sprintf("price required for items[%d]", i)
			continue
		}
		price = price.Round(2)
		prices[line.ProductID.String()] = price
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	total := sum.Round(2)
	if input.Total != nil {
		if input.Total.IsNegative() {
			problems["total"] = "cannot be negative"
		}
		total = input.Total.Round(2)
	}
	if len(problems) > 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid quote").WithDetails(problems)
	}
	return prices, total, nil
}

func (s *service) Reject(ctx context.Context, actor types.Actor, id uuid.UUID, notes string) (*BulkOrderDTO, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can reject bulk orders")
	}
	return s.close(ctx, actor, id, enums.BulkOrderStatusRejected, notes)
}

func (s *service) Cancel(ctx context.Context, actor types.Actor, id uuid.UUID) (*BulkOrderDTO, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can cancel a bulk order")
	}
	return s.close(ctx, actor, id, enums.BulkOrderStatusCancelled, "")
}

func (s *service) close(ctx context.Context, actor types.Actor, id uuid.UUID, to enums.BulkOrderStatus, notes string) (*BulkOrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := s.visible(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if !request.Status.IsOpen() {
			return pkgerrors.StateConflict("bulk_order", string(request.Status), string(to))
		}
		updates := map[string]any{"status": to, "updated_at": s.now()}
		if n := strings.TrimSpace(notes); n != "" {
			updates["admin_notes"] = n
		}
		return s.move(ctx, repo, request, to, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Confirm(ctx context.Context, actor types.Actor, id uuid.UUID) (*BulkOrderDTO, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can confirm a bulk order")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := s.visible(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if request.Status != enums.BulkOrderStatusQuoted {
			return pkgerrors.StateConflict("bulk_order", string(request.Status), string(enums.BulkOrderStatusConfirmed))
		}

		items := make([]orders.BulkItem, 0, len(request.Items))
		for _, line := range request.Items {
			price, ok := request.QuotedPrices[line.ProductID.String()]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "quote is missing a product price")
			}
			items = append(items, orders.BulkItem{ProductID: line.ProductID, Quantity: line.Quantity, UnitPrice: price, Notes: line.Notes})
		}
		phone := request.ContactPhone
		order, err := s.orders.CreateFromBulk(ctx, tx, actor, request.CustomerID, orders.BulkOrderInput{
			BulkOrderRequestID: request.ID,
			Items:              items,
			PaymentMethod:      request.PaymentMethod,
			ShippingAddress:    request.ShippingAddress,
			ShippingRegionID:   request.ShippingRegionID,
			ShippingMethodID:   request.ShippingMethodID,
			CustomerPhone:      &phone,
			Notes:              request.AdminNotes,
		})
		if err != nil {
			return err
		}
		return s.move(ctx, repo, request, enums.BulkOrderStatusConfirmed, map[string]any{
			"status":     enums.BulkOrderStatusConfirmed,
			"order_id":   order.ID,
			"updated_at": s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*BulkOrderDTO, error) {
	request, err := s.visible(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	return FromModel(request), nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[BulkOrderDTO], error) {
	filters := params.ListFilters
	switch {
	case actor.Role == enums.RoleCustomer:
		id := actor.UserID
		filters.CustomerID = &id
	case !actor.Role.IsStaff():
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view bulk orders")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bulk orders")
	}
	page := pagination.Trim(rows, params.Limit, func(m models.BulkOrderRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	out := pagination.Page[BulkOrderDTO]{Items: make([]BulkOrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) visible(ctx context.Context, repo Repository, actor types.Actor, id uuid.UUID) (*models.BulkOrderRequest, error) {
	if actor.Role != enums.RoleCustomer && !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view bulk orders")
	}
	request, err := load(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.RoleCustomer && request.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bulk order not found")
	}
	return request, nil
}

func (s *service) move(ctx context.Context, repo Repository, request *models.BulkOrderRequest, to enums.BulkOrderStatus, updates map[string]any) error {
	ok, err := repo.GuardedUpdate(ctx, db.Guard{ID: request.ID, Expect: map[string]any{"status": request.Status}}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update bulk order")
	}
	if !ok {
		return pkgerrors.StateConflict("bulk_order", string(request.Status), string(to))
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id uuid.UUID, actor types.Actor, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBulkOrder,
		AggregateID:   id,
		Actor:         outbox.ActorFrom(actor),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func load(ctx context.Context, repo Repository, id uuid.UUID) (*models.BulkOrderRequest, error) {
	request, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bulk order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bulk order")
	}
	return request, nil
}
