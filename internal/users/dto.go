package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID        `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Phone       *string          `json:"phone,omitempty"`
	Role        enums.Role       `json:"role"`
	Disabled    bool             `json:"disabled"`
	Status      enums.UserStatus `json:"status"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Phone        *string
	Role         enums.Role
	Status       enums.UserStatus
}

// ListFilters narrows the admin user listing. Nil fields are ignored.
type ListFilters struct {
	Role     *enums.Role
	Status   *enums.UserStatus
	Disabled *bool
}

// ListInput pairs filters with cursor pagination.
type ListInput struct {
	ListFilters
	pagination.Params
}

// CreateStaffInput is submitted by admins to open an account directly.
type CreateStaffInput struct {
	Email       string     `json:"email" validate:"required,email"`
	DisplayName string     `json:"display_name" validate:"required,max=120"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role" validate:"required"`
	// Password is optional; a temporary one is generated when empty.
	Password string `json:"password,omitempty"`
}

// CreatedStaffDTO returns the new account plus the one-time password when generated.
type CreatedStaffDTO struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password,omitempty"`
}

// RiderDTO is a dispatchable rider summary.
type RiderDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Phone       *string   `json:"phone,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		Role:        u.Role,
		Disabled:    u.Disabled,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	status := c.Status
	if status == "" {
		status = enums.UserStatusPending
	}
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		DisplayName:  c.DisplayName,
		Phone:        c.Phone,
		Role:         c.Role,
		Status:       status,
	}
}
