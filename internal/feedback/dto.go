package feedback

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

type CreateThreadInput struct {
	OrderID *uuid.UUID `json:"order_id,omitempty"`
	Subject string     `json:"subject" validate:"required,max=200"`
	Body    string     `json:"body" validate:"required,max=5000"`
}

type ReplyInput struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type ThreadDTO struct {
	ID              uuid.UUID            `json:"id"`
	CustomerID      uuid.UUID            `json:"customer_id"`
	OrderID         *uuid.UUID           `json:"order_id,omitempty"`
	Subject         string               `json:"subject"`
	Status          enums.FeedbackStatus `json:"status"`
	LastReplierRole enums.Role           `json:"last_replier_role"`
	LastMessageAt   time.Time            `json:"last_message_at"`
	Unread          bool                 `json:"unread"`
	CreatedAt       time.Time            `json:"created_at"`
}

type MessageDTO struct {
	ID         uuid.UUID  `json:"id"`
	AuthorID   uuid.UUID  `json:"author_id"`
	AuthorRole enums.Role `json:"author_role"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"created_at"`
}

func threadFromModel(t *models.FeedbackThread, viewer enums.Role) ThreadDTO {
	return ThreadDTO{
		ID:              t.ID,
		CustomerID:      t.CustomerID,
		OrderID:         t.OrderID,
		Subject:         t.Subject,
		Status:          t.Status,
		LastReplierRole: t.LastReplierRole,
		LastMessageAt:   t.LastMessageAt,
		Unread:          t.IsUnreadFor(viewer),
		CreatedAt:       t.CreatedAt,
	}
}
