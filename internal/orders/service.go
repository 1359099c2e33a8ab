package orders

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service owns the order lifecycle. Every mutation runs in one transaction
// and returns the order as re-read after commit.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateOrderInput) (*OrderDTO, error)
	CreateFromBulk(ctx context.Context, tx *gorm.DB, actor types.Actor, customerID uuid.UUID, input BulkOrderInput) (*models.Order, error)
	Transition(ctx context.Context, actor types.Actor, orderID uuid.UUID, to enums.OrderStatus, notes string) (*OrderDTO, error)
	AssignRider(ctx context.Context, actor types.Actor, orderID, riderID uuid.UUID, notes string) (*OrderDTO, error)
	Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error)
	Rate(ctx context.Context, actor types.Actor, orderID uuid.UUID, score int, comment string) (*OrderDTO, error)
	SetColor(ctx context.Context, actor types.Actor, orderID uuid.UUID, color string) (*OrderDTO, error)
	UpdatePayment(ctx context.Context, actor types.Actor, orderID uuid.UUID, status enums.PaymentStatus) (*OrderDTO, error)
	Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[OrderDTO], error)
	History(ctx context.Context, actor types.Actor, orderID uuid.UUID) ([]HistoryDTO, error)

	// Lookup reads an order without visibility checks for internal callers.
	Lookup(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	StaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	RiderLoads(ctx context.Context, riderIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type ServiceParams struct {
	Repo     Repository
	Tx       db.TxRunner
	Outbox   outbox.Emitter
	Catalog  Catalog
	Shipping ShippingResolver
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	catalog  Catalog
	shipping ShippingResolver
	now      func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("shipping resolver required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		catalog:  params.Catalog,
		shipping: params.Shipping,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateOrderInput) (*OrderDTO, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can check out")
	}
	if err := validateCheckout(input.PaymentMethod, input.ShippingAddress, input.ShippingRegionID, input.ShippingMethodID); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	var orderID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		items, err := s.priceCheckoutItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		order, err := s.insert(ctx, tx, actor, actor.UserID, draft{
			items:         items,
			paymentMethod: input.PaymentMethod,
			address:       input.ShippingAddress,
			regionID:      input.ShippingRegionID,
			methodID:      input.ShippingMethodID,
			phone:         input.CustomerPhone,
			gift:          input.GiftDetails,
			notes:         input.Notes,
		})
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) CreateFromBulk(ctx context.Context, tx *gorm.DB, actor types.Actor, customerID uuid.UUID, input BulkOrderInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := validateCheckout(input.PaymentMethod, input.ShippingAddress, input.ShippingRegionID, input.ShippingMethodID); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk order has no items")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.catalog.LoadCatalogTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for i, line := range input.Items {
		entry, ok := catalog[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not found").
				WithDetails(map[string]string{fmt.Sprintf("items[%d].product_id", i): "not found"})
		}
		if line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid bulk line").
				WithDetails(map[string]string{fmt.Sprintf("items[%d]", i): "quantity and unit price required"})
		}
		var customizations map[string]string
		if note := strings.TrimSpace(line.Notes); note != "" {
			customizations = map[string]string{"notes": note}
		}
		items = append(items, newItem(entry.Product, line.Quantity, line.UnitPrice, customizations))
	}

	bulkID := input.BulkOrderRequestID
	return s.insert(ctx, tx, actor, customerID, draft{
		items:         items,
		paymentMethod: input.PaymentMethod,
		address:       input.ShippingAddress,
		regionID:      input.ShippingRegionID,
		methodID:      input.ShippingMethodID,
		phone:         input.CustomerPhone,
		notes:         input.Notes,
		bulkID:        &bulkID,
	})
}

type draft struct {
	items         []models.OrderItem
	paymentMethod enums.PaymentMethod
	address       types.ShippingAddress
	regionID      uuid.UUID
	methodID      uuid.UUID
	phone         *string
	gift          *types.GiftDetails
	notes         *string
	bulkID        *uuid.UUID
}

// insert writes the order, its lines and the opening history entry.
func (s *service) insert(ctx context.Context, tx *gorm.DB, actor types.Actor, customerID uuid.UUID, d draft) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	customer, err := repo.FindUser(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}

	shippingCost, err := s.shipping.ResolveTx(ctx, tx, d.regionID, d.methodID)
	if err != nil {
		return nil, err
	}

	subTotal := decimal.Zero
	for _, item := range d.items {
		subTotal = subTotal.Add(item.LineTotal)
	}

	phone := d.phone
	if phone == nil {
		phone = customer.Phone
	}
	now := s.now()
	order := &models.Order{
		ID:                 uuid.New(),
		CustomerID:         customer.ID,
		CustomerName:       customer.DisplayName,
		CustomerEmail:      customer.Email,
		CustomerPhone:      phone,
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		PaymentMethod:      d.paymentMethod,
		ShippingAddress:    d.address.Normalize(),
		ShippingRegionID:   d.regionID,
		ShippingMethodID:   d.methodID,
		ShippingCost:       shippingCost,
		SubTotal:           subTotal,
		Total:              subTotal.Add(shippingCost),
		GiftDetails:        d.gift,
		BulkOrderRequestID: d.bulkID,
		Notes:              d.notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	for i := range d.items {
		d.items[i].OrderID = order.ID
	}
	if err := repo.CreateItems(ctx, d.items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
	}
	order.Items = d.items
	if err := s.appendHistory(ctx, repo, order.ID, enums.OrderStatusPending, "", actor, now); err != nil {
		return nil, err
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         outbox.ActorFrom(actor),
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			CustomerID:    order.CustomerID,
			Status:        order.Status,
			PaymentMethod: order.PaymentMethod,
			Total:         order.Total,
			BulkOrderID:   d.bulkID,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
	}
	return order, nil
}

func (s *service) priceCheckoutItems(ctx context.Context, tx *gorm.DB, lines []ItemInput) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.catalog.LoadCatalogTx(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	problems := map[string]string{}
	items := make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		prefix := fmt.Sprintf("items[%d]", i)
		entry, ok := catalog[line.ProductID]
		if !ok || !entry.Product.Active {
			problems[prefix+".product_id"] = "product not available"
			continue
		}
		if line.Quantity <= 0 {
			problems[prefix+".quantity"] = "must be positive"
			continue
		}
		extra, optionProblems := products.PriceSelections(entry.Options, line.Customizations)
		for name, msg := range optionProblems {
			problems[fmt.Sprintf("%s.customizations.%s", prefix, name)] = msg
		}
		unit := entry.Product.Price.Add(extra)
		items = append(items, newItem(entry.Product, line.Quantity, unit, trimSelections(line.Customizations)))
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order items").WithDetails(problems)
	}
	return items, nil
}

func newItem(product models.Product, qty int, unit decimal.Decimal, customizations map[string]string) models.OrderItem {
	unit = unit.Round(2)
	return models.OrderItem{
		ID:             uuid.New(),
		ProductID:      product.ID,
		ProductName:    product.Name,
		Quantity:       qty,
		UnitPrice:      unit,
		LineTotal:      unit.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		Customizations: customizations,
	}
}

func (s *service) Transition(ctx context.Context, actor types.Actor, orderID uuid.UUID, to enums.OrderStatus, notes string) (*OrderDTO, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]string{"status": string(to)})
	}
	if to == enums.OrderStatusCancelled {
		return s.Cancel(ctx, actor, orderID, notes)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := CheckTransition(order, to, actor); err != nil {
			return err
		}
		now := s.now()
		if err := s.move(ctx, repo, order, to, map[string]any{}, now); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, order.ID, to, notes, actor, now); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderStatusChanged, order.ID, actor, payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			From:        order.Status,
			To:          to,
			RiderID:     order.RiderID,
			Notes:       notes,
			Total:       order.Total,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) AssignRider(ctx context.Context, actor types.Actor, orderID, riderID uuid.UUID, notes string) (*OrderDTO, error) {
	if riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := checkAssignment(order, actor); err != nil {
			return err
		}
		rider, err := repo.FindUser(ctx, riderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rider")
		}
		if rider == nil || rider.Role != enums.RoleRider || !rider.CanLogin() {
			return pkgerrors.New(pkgerrors.CodeValidation, "rider is not available").
				WithDetails(map[string]string{"rider_id": "must be an approved, enabled rider"})
		}

		now := s.now()
		updates := map[string]any{"rider_id": rider.ID, "rider_name": rider.DisplayName}
		if err := s.move(ctx, repo, order, enums.OrderStatusAssigned, updates, now); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, order.ID, enums.OrderStatusAssigned, notes, actor, now); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderRiderAssigned, order.ID, actor, payloads.OrderRiderAssignedEvent{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			CustomerID:      order.CustomerID,
			From:            order.Status,
			RiderID:         rider.ID,
			RiderName:       rider.DisplayName,
			PreviousRiderID: order.RiderID,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := CheckCancel(order, actor); err != nil {
			return err
		}
		now := s.now()
		updates := map[string]any{"rider_id": nil, "rider_name": nil}
		if err := s.move(ctx, repo, order, enums.OrderStatusCancelled, updates, now); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, order.ID, enums.OrderStatusCancelled, reason, actor, now); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderCancelled, order.ID, actor, payloads.OrderCancelledEvent{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			CustomerID:      order.CustomerID,
			From:            order.Status,
			ReleasedRiderID: order.RiderID,
			Reason:          reason,
			CancelledAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) Rate(ctx context.Context, actor types.Actor, orderID uuid.UUID, score int, comment string) (*OrderDTO, error) {
	if score < 1 || score > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 1 and 5").
			WithDetails(map[string]string{"score": "must be between 1 and 5"})
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if actor.Role != enums.RoleCustomer || order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the customer can rate this order")
		}
		if order.Rating != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already rated")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been delivered").
				WithDetails(map[string]string{"status": string(order.Status)})
		}

		now := s.now()
		rating := types.OrderRating{Score: score, Comment: strings.TrimSpace(comment), RatedAt: now}
		ok, err := repo.GuardedUpdate(ctx, db.Guard{
			ID:         order.ID,
			Expect:     map[string]any{"status": enums.OrderStatusDelivered},
			ExpectNull: []string{"rating"},
		}, map[string]any{"rating": rating, "updated_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rate order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already rated")
		}
		return s.emit(ctx, tx, enums.EventOrderRated, order.ID, actor, payloads.OrderRatedEvent{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			RiderID:    order.RiderID,
			Score:      score,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) SetColor(ctx context.Context, actor types.Actor, orderID uuid.UUID, color string) (*OrderDTO, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can tag orders")
	}
	color = strings.TrimSpace(color)
	var value any
	if color != "" {
		if !colorPattern.MatchString(color) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "color must be a #rrggbb hex value").
				WithDetails(map[string]string{"color": "must be a #rrggbb hex value"})
		}
		value = strings.ToLower(color)
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadOrder(ctx, repo, orderID); err != nil {
			return err
		}
		if _, err := repo.GuardedUpdate(ctx, db.Guard{ID: orderID}, map[string]any{"color": value, "updated_at": s.now()}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set order color")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) UpdatePayment(ctx context.Context, actor types.Actor, orderID uuid.UUID, status enums.PaymentStatus) (*OrderDTO, error) {
	if !actor.Role.In(enums.RoleFinanceManager, enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only finance can update payments")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status").
			WithDetails(map[string]string{"payment_status": string(status)})
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := checkPaymentMove(order.PaymentStatus, status); err != nil {
			return err
		}
		ok, err := repo.GuardedUpdate(ctx, db.Guard{
			ID:     order.ID,
			Expect: map[string]any{"payment_status": order.PaymentStatus},
		}, map[string]any{"payment_status": status, "updated_at": s.now()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
		}
		if !ok {
			return pkgerrors.StateConflict("payment", string(order.PaymentStatus), string(status))
		}
		return s.emit(ctx, tx, enums.EventOrderPaymentUpdated, order.ID, actor, payloads.OrderPaymentUpdatedEvent{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			From:       order.PaymentStatus,
			To:         status,
			Total:      order.Total,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, orderID)
}

func (s *service) Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(order, actor); err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[OrderDTO], error) {
	filters := params.ListFilters
	switch {
	case actor.Role == enums.RoleCustomer:
		id := actor.UserID
		filters.CustomerID = &id
	case actor.Role == enums.RoleRider:
		id := actor.UserID
		filters.RiderID = &id
	case !actor.Role.IsStaff():
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not list orders")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) History(ctx context.Context, actor types.Actor, orderID uuid.UUID) ([]HistoryDTO, error) {
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(order, actor); err != nil {
		return nil, err
	}
	return HistoryFromModels(order.History), nil
}

func (s *service) Lookup(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return loadOrder(ctx, s.repo, orderID)
}

func (s *service) StaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := s.repo.ListStaleUnpaid(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale unpaid orders")
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (s *service) RiderLoads(ctx context.Context, riderIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts, err := s.repo.CountActiveByRider(ctx, riderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count rider assignments")
	}
	return counts, nil
}

// move applies the status change only if the row still holds the status it
// was read with.
func (s *service) move(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, updates map[string]any, now time.Time) error {
	updates["status"] = to
	updates["updated_at"] = now
	ok, err := repo.GuardedUpdate(ctx, db.Guard{
		ID:     order.ID,
		Expect: map[string]any{"status": order.Status},
	}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !ok {
		return pkgerrors.StateConflict("order", string(order.Status), string(to))
	}
	return nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, orderID uuid.UUID, status enums.OrderStatus, notes string, actor types.Actor, at time.Time) error {
	entry := &models.OrderHistoryEntry{
		OrderID:   orderID,
		Status:    status,
		ActorID:   actor.UserIDPtr(),
		ActorRole: actor.Role,
		CreatedAt: at,
	}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		entry.Notes = &trimmed
	}
	if err := repo.AppendHistory(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append order history")
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, actor types.Actor, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         outbox.ActorFrom(actor),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) reload(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func checkVisible(order *models.Order, actor types.Actor) error {
	switch {
	case actor.Role == enums.RoleCustomer:
		if order.CustomerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
	case actor.Role == enums.RoleRider:
		if order.RiderID == nil || *order.RiderID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this rider")
		}
	case !actor.Role.IsStaff():
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not view orders")
	}
	return nil
}

func validateCheckout(method enums.PaymentMethod, address types.ShippingAddress, regionID, methodID uuid.UUID) error {
	problems := map[string]string{}
	if !method.IsValid() {
		problems["payment_method"] = "must be cod, mpesa or card"
	}
	address = address.Normalize()
	if address.Line1 == "" {
		problems["shipping_address.line1"] = "required"
	}
	if address.Town == "" {
		problems["shipping_address.town"] = "required"
	}
	if regionID == uuid.Nil {
		problems["shipping_region_id"] = "required"
	}
	if methodID == uuid.Nil {
		problems["shipping_method_id"] = "required"
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout").WithDetails(problems)
	}
	return nil
}

func trimSelections(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}
