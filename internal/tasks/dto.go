package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

type CreateInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	AssigneeID  uuid.UUID  `json:"assignee_id" validate:"required"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

type ListFilters struct {
	Status     *enums.TaskStatus
	OrderID    *uuid.UUID
	AssigneeID *uuid.UUID
}

type ListParams struct {
	ListFilters
	pagination.Params
}

type TaskDTO struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	OrderID     *uuid.UUID       `json:"order_id,omitempty"`
	AssigneeID  uuid.UUID        `json:"assignee_id"`
	CreatedBy   uuid.UUID        `json:"created_by"`
	Status      enums.TaskStatus `json:"status"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func FromModel(t *models.Task) *TaskDTO {
	return &TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		OrderID:     t.OrderID,
		AssigneeID:  t.AssigneeID,
		CreatedBy:   t.CreatedBy,
		Status:      t.Status,
		DueAt:       t.DueAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
