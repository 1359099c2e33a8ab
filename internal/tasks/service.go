package tasks

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

var managerRoles = []enums.Role{enums.RoleAdmin, enums.RoleDispatchManager}

var moves = map[enums.TaskStatus][]enums.TaskStatus{
	enums.TaskStatusOpen:       {enums.TaskStatusInProgress, enums.TaskStatusDone, enums.TaskStatusCancelled},
	enums.TaskStatusInProgress: {enums.TaskStatusDone, enums.TaskStatusCancelled},
}

// CanMove reports whether a task may go from one status to another.
func CanMove(from, to enums.TaskStatus) bool {
	for _, candidate := range moves[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateInput) (*TaskDTO, error)
	UpdateStatus(ctx context.Context, actor types.Actor, id uuid.UUID, to enums.TaskStatus) (*TaskDTO, error)
	Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*TaskDTO, error)
	List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[TaskDTO], error)
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outbox.Emitter
	now    func() time.Time
}

func NewService(repo Repository, tx db.TxRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateInput) (*TaskDTO, error) {
	if !actor.Role.In(managerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not create tasks")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || input.AssigneeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and assignee are required")
	}

	var task *models.Task
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		assignee, err := repo.FindUser(ctx, input.AssigneeID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignee")
		}
		if !assignable(assignee) {
			return pkgerrors.New(pkgerrors.CodeValidation, "assignee must be an active staff member").
				WithDetails(map[string]string{"assignee_id": "not assignable"})
		}
		if input.OrderID != nil {
			ok, err := repo.OrderExists(ctx, *input.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "order not found").
					WithDetails(map[string]string{"order_id": "not found"})
			}
		}
		now := s.now()
		task = &models.Task{
			ID:          uuid.New(),
			Title:       title,
			Description: input.Description,
			OrderID:     input.OrderID,
			AssigneeID:  assignee.ID,
			CreatedBy:   actor.UserID,
			Status:      enums.TaskStatusOpen,
			DueAt:       input.DueAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, task); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create task")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTaskAssigned,
			AggregateType: enums.AggregateTask,
			AggregateID:   task.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.TaskAssignedEvent{
				TaskID:     task.ID,
				AssigneeID: task.AssigneeID,
				Title:      task.Title,
				OrderID:    task.OrderID,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit task assigned")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(task), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor types.Actor, id uuid.UUID, to enums.TaskStatus) (*TaskDTO, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid task status").
			WithDetails(map[string]string{"status": string(to)})
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		task, err := load(ctx, repo, id)
		if err != nil {
			return err
		}
		if task.AssigneeID != actor.UserID && !actor.Role.In(managerRoles...) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assignee or a manager can update this task")
		}
		if !CanMove(task.Status, to) {
			return pkgerrors.StateConflict("task", string(task.Status), string(to))
		}
		now := s.now()
		updates := map[string]any{"status": to, "updated_at": now}
		if to == enums.TaskStatusDone {
			updates["completed_at"] = now
		}
		ok, err := repo.GuardedUpdate(ctx, db.Guard{ID: task.ID, Expect: map[string]any{"status": task.Status}}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update task")
		}
		if !ok {
			return pkgerrors.StateConflict("task", string(task.Status), string(to))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *service) Get(ctx context.Context, actor types.Actor, id uuid.UUID) (*TaskDTO, error) {
	task, err := load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID != actor.UserID && !actor.Role.In(managerRoles...) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
	}
	return FromModel(task), nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (*pagination.Page[TaskDTO], error) {
	filters := params.ListFilters
	if !actor.Role.In(managerRoles...) {
		id := actor.UserID
		filters.AssigneeID = &id
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tasks")
	}
	page := pagination.Trim(rows, params.Limit, func(t models.Task) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	out := pagination.Page[TaskDTO]{Items: make([]TaskDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

// assignable admits enabled, approved staff and riders.
func assignable(u *models.User) bool {
	if u == nil || !u.CanLogin() {
		return false
	}
	return u.Role.IsStaff() || u.Role == enums.RoleRider
}

func load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Task, error) {
	task, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load task")
	}
	return task, nil
}
