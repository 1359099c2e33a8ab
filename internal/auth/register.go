package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/users"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/security"
)

// Register creates a self-service account. Customers are approved
// immediately; suppliers wait for an admin.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	role := req.Role
	if role == "" {
		role = enums.RoleCustomer
	}

	var status enums.UserStatus
	switch role {
	case enums.RoleCustomer:
		status = enums.UserStatusApproved
	case enums.RoleSupplier:
		status = enums.UserStatusPending
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be customer or supplier").
			WithDetails(map[string]any{"role": req.Role})
	}

	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Phone:        req.Phone,
		Role:         role,
		Status:       status,
	})
	if err != nil {
		// lost a race with a concurrent sign-up
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}
