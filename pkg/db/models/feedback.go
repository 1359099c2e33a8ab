package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// FeedbackThread is a conversation between a customer and support staff.
type FeedbackThread struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	OrderID         *uuid.UUID           `gorm:"column:order_id;type:uuid"`
	Subject         string               `gorm:"column:subject;not null"`
	Status          enums.FeedbackStatus `gorm:"column:status;type:text;not null"`
	LastReplierRole enums.Role           `gorm:"column:last_replier_role;type:text;not null"`
	LastMessageAt   time.Time            `gorm:"column:last_message_at;not null"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *FeedbackThread) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// IsUnreadFor reports whether the thread has a reply the viewer has not
// answered: someone with a different role spoke last.
func (t *FeedbackThread) IsUnreadFor(viewer enums.Role) bool {
	return t.LastReplierRole != viewer
}

// FeedbackMessage is one message within a feedback thread.
type FeedbackMessage struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ThreadID   uuid.UUID  `gorm:"column:thread_id;type:uuid;not null;index"`
	AuthorID   uuid.UUID  `gorm:"column:author_id;type:uuid;not null"`
	AuthorRole enums.Role `gorm:"column:author_role;type:text;not null"`
	Body       string     `gorm:"column:body;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null"`
}

func (m *FeedbackMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
