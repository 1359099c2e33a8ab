package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// User is an account of any role. Role and approval status are read from here,
// never from the token issuer.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	DisplayName  string           `gorm:"column:display_name;not null"`
	Phone        *string          `gorm:"column:phone"`
	Role         enums.Role       `gorm:"column:role;type:text;not null"`
	Disabled     bool             `gorm:"column:disabled;not null"`
	Status       enums.UserStatus `gorm:"column:status;type:text;not null"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// CanLogin reports whether the account may authenticate.
func (u *User) CanLogin() bool {
	return !u.Disabled && u.Status == enums.UserStatusApproved
}
