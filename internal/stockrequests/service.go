package stockrequests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/outbox"
	"github.com/angelmondragon/giftops-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

var (
	requesterRoles = []enums.Role{enums.RoleInventoryManager, enums.RoleAdmin}
	financeRoles   = []enums.Role{enums.RoleFinanceManager, enums.RoleAdmin}
	viewerRoles    = []enums.Role{enums.RoleAdmin, enums.RoleFinanceManager, enums.RoleInventoryManager, enums.RoleSupplier}
	maxTaxRate     = decimal.NewFromInt(100)
)

// Service runs the replenishment workflow: request, bid, award, fulfil, receive.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateInput) (*StockRequestDTO, error)
	SubmitBid(ctx context.Context, actor types.Actor, requestID uuid.UUID, input BidInput) (*StockRequestDTO, error)
	Award(ctx context.Context, actor types.Actor, requestID, bidID uuid.UUID) (*StockRequestDTO, error)
	RejectFinance(ctx context.Context, actor types.Actor, requestID uuid.UUID, reason string) (*StockRequestDTO, error)
	Cancel(ctx context.Context, actor types.Actor, requestID uuid.UUID, reason string) (*StockRequestDTO, error)
	AcknowledgeAward(ctx context.Context, actor types.Actor, requestID uuid.UUID) (*StockRequestDTO, error)
	Receive(ctx context.Context, actor types.Actor, requestID uuid.UUID, receivedQuantity int, notes string) (*StockRequestDTO, error)
	Get(ctx context.Context, actor types.Actor, requestID uuid.UUID) (*StockRequestDTO, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[StockRequestDTO], error)

	// LookupTx and MarkFulfilled join the invoice-creation transaction.
	LookupTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.StockRequest, error)
	MarkFulfilled(ctx context.Context, tx *gorm.DB, requestID, supplierID uuid.UUID, quantity int, invoiceID uuid.UUID) error
}

type ServiceParams struct {
	Repo      Repository
	Tx        db.TxRunner
	Outbox    outbox.Emitter
	Inventory Inventory
}

type service struct {
	repo      Repository
	tx        db.TxRunner
	outbox    outbox.Emitter
	inventory Inventory
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stock request repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		inventory: params.Inventory,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateInput) (*StockRequestDTO, error) {
	if !actor.Role.In(requesterRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not request stock")
	}
	if input.ProductID == uuid.Nil || input.RequestedQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product and positive quantity are required")
	}

	var id uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog, err := s.inventory.LoadCatalogTx(ctx, tx, []uuid.UUID{input.ProductID})
		if err != nil {
			return err
		}
		entry, ok := catalog[input.ProductID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "product not found").
				WithDetails(map[string]string{"product_id": "not found"})
		}
		request := &models.StockRequest{
			ID:                uuid.New(),
			ProductID:         entry.Product.ID,
			ProductName:       entry.Product.Name,
			RequestedQuantity: input.RequestedQuantity,
			Notes:             trimmed(input.Notes),
			Status:            enums.StockRequestStatusPendingBids,
			CreatedBy:         actor.UserID,
		}
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create stock request")
		}
		id = request.ID
		return s.emit(ctx, tx, enums.EventStockRequestCreated, request.ID, actor, payloads.StockRequestCreatedEvent{
			StockRequestID:    request.ID,
			ProductID:         request.ProductID,
			ProductName:       request.ProductName,
			RequestedQuantity: request.RequestedQuantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor, id)
}

func (s *service) SubmitBid(ctx context.Context, actor types.Actor, requestID uuid.UUID, input BidInput) (*StockRequestDTO, error) {
	if actor.Role != enums.RoleSupplier {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only suppliers can bid")
	}
	problems := map[string]string{}
	if !input.PricePerUnit.IsPositive() {
		problems["price_per_unit"] = "must be positive"
	}
	if input.TaxRate.IsNegative() || input.TaxRate.GreaterThan(maxTaxRate) {
		problems["tax_rate"] = "must be between 0 and 100"
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid bid").WithDetails(problems)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := load(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if !request.Status.AcceptsBids() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock request is not accepting bids").
				WithDetails(map[string]string{"status": string(request.Status)})
		}
		supplier, err := repo.FindUser(ctx, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load supplier")
		}

		now := s.now()
		bid := &models.Bid{
			ID:             uuid.New(),
			StockRequestID: request.ID,
			SupplierID:     supplier.ID,
			SupplierName:   supplier.DisplayName,
			PricePerUnit:   input.PricePerUnit.Round(2),
			TaxRate:        input.TaxRate.Round(2),
			Notes:          trimmed(input.Notes),
			CreatedAt:      now,
		}
		if err := repo.InsertBid(ctx, bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert bid")
		}

		// the first bid opens the award window; later bids only confirm it is still open
		guard := db.Guard{ID: request.ID, Expect: map[string]any{"status": request.Status}, ExpectNull: []string{"winning_bid_id"}}
		updates := map[string]any{"updated_at": now}
		status := request.Status
		if status == enums.StockRequestStatusPendingBids {
			status = enums.StockRequestStatusPendingAward
			updates["status"] = status
		}
		ok, err := repo.GuardedUpdate(ctx, guard, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock request changed while bidding")
		}
		return s.emit(ctx, tx, enums.EventStockRequestBidSubmitted, request.ID, actor, payloads.BidSubmittedEvent{
			StockRequestID: request.ID,
			BidID:          bid.ID,
			SupplierID:     bid.SupplierID,
			PricePerUnit:   bid.PricePerUnit,
			Status:         status,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor, requestID)
}

func (s *service) Award(ctx context.Context, actor types.Actor, requestID, bidID uuid.UUID) (*StockRequestDTO, error) {
	if !actor.Role.In(financeRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not award bids")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := load(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if request.Status != enums.StockRequestStatusPendingAward || request.WinningBidID != nil {
			return pkgerrors.StateConflict("stock_request", string(request.Status), string(enums.StockRequestStatusAwarded))
		}
		var bid *models.Bid
		for i := range request.Bids {
			if request.Bids[i].ID == bidID {
				bid = &request.Bids[i]
				break
			}
		}
		if bid == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "bid not found on this stock request")
		}

		now := s.now()
		ok, err := repo.GuardedUpdate(ctx, db.Guard{
			ID:         request.ID,
			Expect:     map[string]any{"status": enums.StockRequestStatusPendingAward},
			ExpectNull: []string{"winning_bid_id"},
		}, map[string]any{
			"status":         enums.StockRequestStatusAwarded,
			"winning_bid_id": bid.ID,
			"supplier_id":    bid.SupplierID,
			"supplier_price": bid.PricePerUnit,
			"tax_rate":       bid.TaxRate,
			"awarded_at":     now,
			"awarded_by":     actor.UserIDPtr(),
			"updated_at":     now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "award bid")
		}
		if !ok {
			return pkgerrors.StateConflict("stock_request", string(request.Status), string(enums.StockRequestStatusAwarded))
		}
		return s.emit(ctx, tx, enums.EventStockRequestAwarded, request.ID, actor, payloads.StockRequestAwardedEvent{
			StockRequestID: request.ID,
			ProductName:    request.ProductName,
			BidID:          bid.ID,
			SupplierID:     bid.SupplierID,
			PricePerUnit:   bid.PricePerUnit,
			Quantity:       request.RequestedQuantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor, requestID)
}

func (s *service) RejectFinance(ctx context.Context, actor types.Actor, requestID uuid.UUID, reason string) (*StockRequestDTO, error) {
	if !actor.Role.In(financeRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not reject stock requests")
	}
	return s.close(ctx, actor, requestID, enums.StockRequestStatusRejectedFinance, reason, func(status enums.StockRequestStatus) bool {
		return status.AcceptsBids()
	})
}

func (s *service) Cancel(ctx context.Context, actor types.Actor, requestID uuid.UUID, reason string) (*StockRequestDTO, error) {
	if !actor.Role.In(requesterRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not cancel stock requests")
	}
	return s.close(ctx, actor, requestID, enums.StockRequestStatusCancelled, reason, func(status enums.StockRequestStatus) bool {
		return !status.IsTerminal()
	})
}

func (s *service) close(ctx context.Context, actor types.Actor, requestID uuid.UUID, to enums.StockRequestStatus, reason string, allowed func(enums.StockRequestStatus) bool) (*StockRequestDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := load(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if !allowed(request.Status) {
			return pkgerrors.StateConflict("stock_request", string(request.Status), string(to))
		}
		updates := map[string]any{"status": to, "updated_at": s.now()}
		if r := strings.TrimSpace(reason); r != "" {
			updates["closed_reason"] = r
		}
		if err := s.move(ctx, repo, request, to, updates); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventStockRequestClosed, request.ID, actor, payloads.StockRequestClosedEvent{
			StockRequestID: request.ID,
			From:           request.Status,
			Status:         to,
			SupplierID:     request.SupplierID,
			Reason:         strings.TrimSpace(reason),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor, requestID)
}

func (s *service) AcknowledgeAward(ctx context.Context, actor types.Actor, requestID uuid.UUID) (*StockRequestDTO, error) {
	if actor.Role != enums.RoleSupplier {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the winning supplier can acknowledge")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := load(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if request.SupplierID == nil || *request.SupplierID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the winning supplier can acknowledge")
		}
		if request.Status != enums.StockRequestStatusAwarded {
			return pkgerrors.StateConflict("stock_request", string(request.Status), string(enums.StockRequestStatusAwaitingFulfillment))
		}
		return s.move(ctx, repo, request, enums.StockRequestStatusAwaitingFulfillment, map[string]any{
			"status":     enums.StockRequestStatusAwaitingFulfillment,
			"updated_at": s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor, requestID)
}

func (s *service) LookupTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.StockRequest, error) {
	return load(ctx, s.repo.WithTx(tx), requestID)
}

func (s *service) MarkFulfilled(ctx context.Context, tx *gorm.DB, requestID, supplierID uuid.UUID, quantity int, invoiceID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "fulfilled quantity must be positive")
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.GuardedUpdate(ctx, db.Guard{
		ID: requestID,
		Expect: map[string]any{
			"status":      enums.StockRequestStatusAwaitingFulfillment,
			"supplier_id": supplierID,
		},
		ExpectNull: []string{"invoice_id"},
	}, map[string]any{
		"status":             enums.StockRequestStatusAwaitingReceipt,
		"fulfilled_quantity": quantity,
		"invoice_id":         invoiceID,
		"updated_at":         s.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark stock request fulfilled")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "stock request is not awaiting fulfillment by this supplier")
	}
	return nil
}

func (s *service) Receive(ctx context.Context, actor types.Actor, requestID uuid.UUID, receivedQuantity int, notes string) (*StockRequestDTO, error) {
	if !actor.Role.In(requesterRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not receive stock")
	}
	if receivedQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity cannot be negative").
			WithDetails(map[string]string{"received_quantity": "must be zero or more"})
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := load(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if request.Status != enums.StockRequestStatusAwaitingReceipt {
			return pkgerrors.StateConflict("stock_request", string(request.Status), string(enums.StockRequestStatusReceived))
		}
		fulfilled := 0
		if request.FulfilledQuantity != nil {
			fulfilled = *request.FulfilledQuantity
		}
		discrepancy := receivedQuantity - fulfilled
		now := s.now()
		updates := map[string]any{
			"status":            enums.StockRequestStatusReceived,
			"received_quantity": receivedQuantity,
			"received_at":       now,
			"discrepancy":       discrepancy,
			"updated_at":        now,
		}
		if n := strings.TrimSpace(notes); n != "" {
			updates["closed_reason"] = n
		}
		if err := s.move(ctx, repo, request, enums.StockRequestStatusReceived, updates); err != nil {
			return err
		}
		if receivedQuantity > 0 {
			if err := s.inventory.IncrementStockTx(ctx, tx, request.ProductID, receivedQuantity); err != nil {
				return err
			}
		}
		return s.emit(ctx, tx, enums.EventStockRequestReceived, request.ID, actor, payloads.StockRequestReceivedEvent{
			StockRequestID:   request.ID,
			ProductID:        request.ProductID,
			SupplierID:       request.SupplierID,
			ReceivedQuantity: receivedQuantity,
			Discrepancy:      discrepancy,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, actor, requestID)
}

func (s *service) Get(ctx context.Context, actor types.Actor, requestID uuid.UUID) (*StockRequestDTO, error) {
	return s.reload(ctx, actor, requestID)
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[StockRequestDTO], error) {
	if !actor.Role.In(viewerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view stock requests")
	}
	filters := params.ListFilters
	filters.VisibleToSupplier = nil
	var supplierID *uuid.UUID
	if actor.Role == enums.RoleSupplier {
		id := actor.UserID
		supplierID = &id
		filters.VisibleToSupplier = supplierID
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock requests")
	}
	page := pagination.Trim(rows, params.Limit, func(r models.StockRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := pagination.Page[StockRequestDTO]{Items: make([]StockRequestDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i], supplierID))
	}
	return &out, nil
}

func (s *service) reload(ctx context.Context, actor types.Actor, requestID uuid.UUID) (*StockRequestDTO, error) {
	if !actor.Role.In(viewerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view stock requests")
	}
	request, err := load(ctx, s.repo, requestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.RoleSupplier {
		return FromModel(request, nil), nil
	}
	won := request.SupplierID != nil && *request.SupplierID == actor.UserID
	if !request.Status.AcceptsBids() && !won {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock request not found")
	}
	id := actor.UserID
	return FromModel(request, &id), nil
}

func (s *service) move(ctx context.Context, repo Repository, request *models.StockRequest, to enums.StockRequestStatus, updates map[string]any) error {
	ok, err := repo.GuardedUpdate(ctx, db.Guard{
		ID:     request.ID,
		Expect: map[string]any{"status": request.Status},
	}, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock request")
	}
	if !ok {
		return pkgerrors.StateConflict("stock_request", string(request.Status), string(to))
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id uuid.UUID, actor types.Actor, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateStockRequest,
		AggregateID:   id,
		Actor:         outbox.ActorFrom(actor),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func load(ctx context.Context, repo Repository, id uuid.UUID) (*models.StockRequest, error) {
	request, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock request")
	}
	return request, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
