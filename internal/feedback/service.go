package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

var supportRoles = []enums.Role{enums.RoleAdmin, enums.RoleCustomerService}

type Service interface {
	CreateThread(ctx context.Context, actor types.Actor, input CreateThreadInput) (*ThreadDTO, error)
	Reply(ctx context.Context, actor types.Actor, threadID uuid.UUID, body string) (*ThreadDTO, error)
	Close(ctx context.Context, actor types.Actor, threadID uuid.UUID) (*ThreadDTO, error)
	Reopen(ctx context.Context, actor types.Actor, threadID uuid.UUID) (*ThreadDTO, error)
	List(ctx context.Context, actor types.Actor, params pagination.Params) (*pagination.Page[ThreadDTO], error)
	Messages(ctx context.Context, actor types.Actor, threadID uuid.UUID) ([]MessageDTO, error)
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outbox.Emitter
	now    func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("feedback repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) CreateThread(ctx context.Context, actor types.Actor, input CreateThreadInput) (*ThreadDTO, error) {
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can open feedback threads")
	}
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" || body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject and body are required")
	}

	var thread *models.FeedbackThread
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.OrderID != nil {
			owner, err := repo.OrderCustomer(ctx, *input.OrderID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
			}
			if err != nil || owner != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeValidation, "order not found").
					WithDetails(map[string]string{"order_id": "not found"})
			}
		}
		now := s.now()
		thread = &models.FeedbackThread{
			ID:              uuid.New(),
			CustomerID:      actor.UserID,
			OrderID:         input.OrderID,
			Subject:         subject,
			Status:          enums.FeedbackStatusOpen,
			LastReplierRole: enums.RoleCustomer,
			LastMessageAt:   now,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repo.CreateThread(ctx, thread); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create feedback thread")
		}
		return s.addMessage(ctx, repo, thread.ID, actor, body, now)
	})
	if err != nil {
		return nil, err
	}
	out := threadFromModel(thread, actor.Role)
	return &out, nil
}

func (s *service) Reply(ctx context.Context, actor types.Actor, threadID uuid.UUID, body string) (*ThreadDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "body is required")
	}
	var status enums.FeedbackStatus
	var lastRole enums.Role
	switch {
	case actor.Role == enums.RoleCustomer:
		status, lastRole = enums.FeedbackStatusOpen, enums.RoleCustomer
	case actor.Role.In(supportRoles...):
		status, lastRole = enums.FeedbackStatusReplied, actor.Role
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not reply to feedback")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		thread, err := s.visibleThread(ctx, repo, actor, threadID)
		if err != nil {
			return err
		}
		if thread.Status == enums.FeedbackStatusClosed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "feedback thread is closed")
		}
		now := s.now()
		if err := s.addMessage(ctx, repo, thread.ID, actor, body, now); err != nil {
			return err
		}
		ok, err := repo.GuardedUpdate(ctx, db.Guard{ID: thread.ID, Expect: map[string]any{"status": thread.Status}}, map[string]any{
			"status":            status,
			"last_replier_role": lastRole,
			"last_message_at":   now,
			"updated_at":        now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update feedback thread")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "feedback thread changed")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFeedbackReplied,
			AggregateType: enums.AggregateFeedbackThread,
			AggregateID:   thread.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.FeedbackRepliedEvent{
				ThreadID:   thread.ID,
				CustomerID: thread.CustomerID,
				Subject:    thread.Subject,
				AuthorID:   actor.UserID,
				AuthorRole: actor.Role,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit feedback replied")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, actor, threadID)
}

func (s *service) Close(ctx context.Context, actor types.Actor, threadID uuid.UUID) (*ThreadDTO, error) {
	if !actor.Role.In(supportRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only support staff can close threads")
	}
	return s.setStatus(ctx, actor, threadID, enums.FeedbackStatusClosed, func(from enums.FeedbackStatus) bool {
		return from != enums.FeedbackStatusClosed
	})
}

func (s *service) Reopen(ctx context.Context, actor types.Actor, threadID uuid.UUID) (*ThreadDTO, error) {
	if actor.Role != enums.RoleCustomer && !actor.Role.In(supportRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not reopen threads")
	}
	return s.setStatus(ctx, actor, threadID, enums.FeedbackStatusOpen, func(from enums.FeedbackStatus) bool {
		return from == enums.FeedbackStatusClosed
	})
}

func (s *service) setStatus(ctx context.Context, actor types.Actor, threadID uuid.UUID, to enums.FeedbackStatus, allowed func(enums.FeedbackStatus) bool) (*ThreadDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		thread, err := s.visibleThread(ctx, repo, actor, threadID)
		if err != nil {
			return err
		}
		if !allowed(thread.Status) {
			return pkgerrors.StateConflict("feedback_thread", string(thread.Status), string(to))
		}
		ok, err := repo.GuardedUpdate(ctx, db.Guard{ID: thread.ID, Expect: map[string]any{"status": thread.Status}},
			map[string]any{"status": to, "updated_at": s.now()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update feedback thread")
		}
		if !ok {
			return pkgerrors.StateConflict("feedback_thread", string(thread.Status), string(to))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, actor, threadID)
}

func (s *service) List(ctx context.Context, actor types.Actor, params pagination.Params) (*pagination.Page[ThreadDTO], error) {
	var customerID *uuid.UUID
	switch {
	case actor.Role == enums.RoleCustomer:
		id := actor.UserID
		customerID = &id
	case !actor.Role.In(supportRoles...):
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view feedback")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListThreads(ctx, customerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list feedback threads")
	}
	page := pagination.Trim(rows, params.Limit, func(t models.FeedbackThread) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := pagination.Page[ThreadDTO]{Items: make([]ThreadDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, threadFromModel(&page.Items[i], actor.Role))
	}
	return &out, nil
}

func (s *service) Messages(ctx context.Context, actor types.Actor, threadID uuid.UUID) ([]MessageDTO, error) {
	thread, err := s.visibleThread(ctx, s.repo, actor, threadID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.Messages(ctx, thread.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list feedback messages")
	}
	out := make([]MessageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, MessageDTO{ID: row.ID, AuthorID: row.AuthorID, AuthorRole: row.AuthorRole, Body: row.Body, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

func (s *service) get(ctx context.Context, actor types.Actor, threadID uuid.UUID) (*ThreadDTO, error) {
	thread, err := s.visibleThread(ctx, s.repo, actor, threadID)
	if err != nil {
		return nil, err
	}
	out := threadFromModel(thread, actor.Role)
	return &out, nil
}

func (s *service) addMessage(ctx context.Context, repo Repository, threadID uuid.UUID, actor types.Actor, body string, at time.Time) error {
	err := repo.AddMessage(ctx, &models.FeedbackMessage{
		ID:         uuid.New(),
		ThreadID:   threadID,
		AuthorID:   actor.UserID,
		AuthorRole: actor.Role,
		Body:       body,
		CreatedAt:  at,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add feedback message")
	}
	return nil
}

// visibleThread hides other customers' threads behind NOT_FOUND.
func (s *service) visibleThread(ctx context.Context, repo Repository, actor types.Actor, threadID uuid.UUID) (*models.FeedbackThread, error) {
	if actor.Role != enums.RoleCustomer && !actor.Role.In(supportRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not view feedback")
	}
	thread, err := repo.FindThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "feedback thread not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load feedback thread")
	}
	if actor.Role == enums.RoleCustomer && thread.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "feedback thread not found")
	}
	return thread, nil
}
