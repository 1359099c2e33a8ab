package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// Task is an operational to-do, often tied to an order.
type Task struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string           `gorm:"column:title;not null"`
	Description *string          `gorm:"column:description"`
	OrderID     *uuid.UUID       `gorm:"column:order_id;type:uuid;index"`
	AssigneeID  uuid.UUID        `gorm:"column:assignee_id;type:uuid;not null;index"`
	CreatedBy   uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	Status      enums.TaskStatus `gorm:"column:status;type:text;not null"`
	DueAt       *time.Time       `gorm:"column:due_at"`
	CompletedAt *time.Time       `gorm:"column:completed_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
