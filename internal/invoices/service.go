package invoices

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

var reviewerRoles = []enums.Role{enums.RoleFinanceManager, enums.RoleAdmin}

var moves = map[enums.InvoiceStatus][]enums.InvoiceStatus{
	enums.InvoiceStatusSubmitted: {enums.InvoiceStatusApproved, enums.InvoiceStatusRejected},
	enums.InvoiceStatusApproved:  {enums.InvoiceStatusPaid},
}

// StockRequests is the slice of the stock request workflow invoices drive.
type StockRequests interface {
	LookupTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.StockRequest, error)
	MarkFulfilled(ctx context.Context, tx *gorm.DB, requestID, supplierID uuid.UUID, quantity int, invoiceID uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateInput) (*InvoiceDTO, error)
	Approve(ctx context.Context, actor types.Actor, id uuid.UUID) (*InvoiceDTO, error)
	Reject(ctx context.Context, actor types.Actor, id uuid.UUID, reason string) (*InvoiceDTO, error)
	MarkPaid(ctx context.Context, actor types.Actor, id uuid.UUID) (*InvoiceDTO, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*InvoiceDTO, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[InvoiceDTO], error)
}

type ServiceParams struct {
	Repo          Repository
	Tx            db.TxRunner
	Outbox        outbox.Emitter
	StockRequests StockRequests
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	requests StockRequests
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.StockRequests == nil {
		return nil, fmt.Errorf("stock requests required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		requests: params.StockRequests,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// InvoiceNumber formats INV-<yyyymm>-<first 8 hex of id>.
func InvoiceNumber(id uuid.UUID, at time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", at.UTC().Format("200601"), short)
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateInput) (*InvoiceDTO, error) {
	if actor.Role != enums.RoleSupplier {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only suppliers can submit invoices")
	}

	var id uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		taxRate := decimal.Zero
		var request *models.StockRequest
		if input.StockRequestID != nil {
			var err error
			request, err = s.requests.LookupTx(ctx, tx, *input.StockRequestID)
			if err != nil {
				return err
			}
			if request.SupplierID == nil || *request.SupplierID != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "stock request was not awarded to this supplier")
			}
			if request.Status != enums.StockRequestStatusAwaitingFulfillment {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "stock request is not awaiting fulfillment").
					WithDetails(map[string]string{"status": string(request.Status)})
			}
			if request.TaxRate != nil {
				taxRate = *request.TaxRate
			}
		}
		if input.TaxRate != nil {
			taxRate = *input.TaxRate
		}

		totals, err := ComputeTotals(input.Items, taxRate)
		if err != nil {
			return err
		}
		now := s.now()
		invoice := &models.Invoice{
			ID:             uuid.New(),
			SupplierID:     actor.UserID,
			StockRequestID: input.StockRequestID,
			Items:          totals.Lines,
			TaxRate:        taxRate.Round(2),
			SubTotal:       totals.SubTotal,
			TaxAmount:      totals.TaxAmount,
			TotalAmount:    totals.Total,
			Status:         enums.InvoiceStatusSubmitted,
			Notes:          input.Notes,
			DueDate:        input.DueDate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		invoice.InvoiceNumber = InvoiceNumber(invoice.ID, now)
		if err := s.repo.WithTx(tx).Create(ctx, invoice); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "stock request already invoiced")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice")
		}
		if request != nil {
			if err := s.requests.MarkFulfilled(ctx, tx, request.ID, actor.UserID, totals.Quantity(), invoice.ID); err != nil {
				return err
			}
		}
		id = invoice.ID
		return s.emit(ctx, tx, enums.EventInvoiceCreated, invoice.ID, actor, payloads.InvoiceCreatedEvent{
			InvoiceID:      invoice.ID,
			InvoiceNumber:  invoice.InvoiceNumber,
			SupplierID:     invoice.SupplierID,
			StockRequestID: invoice.StockRequestID,
			TotalAmount:    invoice.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Approve(ctx context.Context, actor types.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	return s.review(ctx, actor, id, enums.InvoiceStatusApproved, "")
}

func (s *service) Reject(ctx context.Context, actor types.Actor, id uuid.UUID, reason string) (*InvoiceDTO, error) {
	return s.review(ctx, actor, id, enums.InvoiceStatusRejected, reason)
}

func (s *service) MarkPaid(ctx context.Context, actor types.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	return s.review(ctx, actor, id, enums.InvoiceStatusPaid, "")
}

func (s *service) review(ctx context.Context, actor types.Actor, id uuid.UUID, to enums.InvoiceStatus, reason string) (*InvoiceDTO, error) {
	if !actor.Role.In(reviewerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not review invoices")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !allowed(invoice.Status, to) {
			return pkgerrors.StateConflict("invoice", string(invoice.Status), string(to))
		}
		updates := map[string]any{
			"status":      to,
			"reviewed_by": actor.UserIDPtr(),
			"updated_at":  s.now(),
		}
		if r := strings.TrimSpace(reason); r != "" {
			updates["notes"] = r
		}
		ok, err := repo.GuardedUpdate(ctx, db.Guard{ID: invoice.ID, Expect: map[string]any{"status": invoice.Status}}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update invoice status")
		}
		if !ok {
			return pkgerrors.StateConflict("invoice", string(invoice.Status), string(to))
		}
		return s.emit(ctx, tx, enums.EventInvoiceStatusChanged, invoice.ID, actor, payloads.InvoiceStatusChangedEvent{
			InvoiceID:     invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			SupplierID:    invoice.SupplierID,
			From:          invoice.Status,
			To:            to,
			TotalAmount:   invoice.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	if actor.Role != enums.RoleSupplier && !actor.Role.In(reviewerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view invoices")
	}
	invoice, err := load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.RoleSupplier && invoice.SupplierID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return FromModel(invoice), nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[InvoiceDTO], error) {
	filters := params.ListFilters
	switch {
	case actor.Role == enums.RoleSupplier:
		id := actor.UserID
		filters.SupplierID = &id
	case !actor.Role.In(reviewerRoles...):
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view invoices")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list invoices")
	}
	page := pagination.Trim(rows, params.Limit, func(m models.Invoice) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	out := pagination.Page[InvoiceDTO]{Items: make([]InvoiceDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id uuid.UUID, actor types.Actor, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   id,
		Actor:         outbox.ActorFrom(actor),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func allowed(from, to enums.InvoiceStatus) bool {
	for _, candidate := range moves[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load invoice")
	}
	return invoice, nil
}
