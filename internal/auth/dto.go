package auth

import (
	"time"

	"github.com/angelmondragon/giftops-backend/internal/users"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is a token pair plus the signed-in user.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

// RefreshRequest carries the refresh token; the access token rides in the Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is issued on login and on every refresh rotation. ExpiresAt is
// when the access token stops being accepted.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RegisterRequest is the public self sign-up payload.
type RegisterRequest struct {
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required"`
	DisplayName string     `json:"display_name" validate:"required,max=120"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role,omitempty"`
}
