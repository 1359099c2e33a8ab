package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/db"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/security"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

const tempPasswordLength = 16

// Service is the admin surface over user accounts.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, input ListInput) (*pagination.Page[UserDTO], error)
	CreateStaff(ctx context.Context, actor types.Actor, input CreateStaffInput) (*CreatedStaffDTO, error)
	Approve(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error)
	Reject(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error)
	Disable(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error)
	Enable(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error)
	ChangeRole(ctx context.Context, actor types.Actor, id uuid.UUID, role enums.Role) (*UserDTO, error)
	ListRiders(ctx context.Context) ([]RiderDTO, error)
}

// SessionRevoker drops every refresh session a user holds.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type ServiceParams struct {
	Repo        *Repository
	Tx          db.TxRunner
	Sessions    SessionRevoker
	PasswordCfg config.PasswordConfig
}

type service struct {
	repo        *Repository
	tx          db.TxRunner
	sessions    SessionRevoker
	passwordCfg config.PasswordConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		sessions:    params.Sessions,
		passwordCfg: params.PasswordCfg,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[UserDTO], error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input.ListFilters, cursor, pagination.LimitWithBuffer(input.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	page := pagination.Trim(rows, input.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	out := pagination.Page[UserDTO]{Items: make([]UserDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, *FromModel(&page.Items[i]))
	}
	return &out, nil
}

func (s *service) CreateStaff(ctx context.Context, actor types.Actor, input CreateStaffInput) (*CreatedStaffDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"role": input.Role})
	}

	password := input.Password
	generated := ""
	if password == "" {
		temp, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		password = temp
		generated = temp
	} else if err := security.CheckPasswordPolicy(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Phone:        input.Phone,
		Role:         input.Role,
		Status:       enums.UserStatusApproved,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return &CreatedStaffDTO{User: FromModel(user), TempPassword: generated}, nil
}

func (s *service) Approve(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.setStatus(ctx, id, enums.UserStatusApproved, enums.UserStatusPending, enums.UserStatusRejected)
}

func (s *service) Reject(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.setStatus(ctx, id, enums.UserStatusRejected, enums.UserStatusPending)
}

// setStatus moves the approval status when the current value is one of from.
func (s *service) setStatus(ctx context.Context, id uuid.UUID, to enums.UserStatus, from ...enums.UserStatus) (*UserDTO, error) {
	return s.mutate(ctx, id, func(user *models.User) (map[string]any, error) {
		allowed := false
		for _, candidate := range from {
			if user.Status == candidate {
				allowed = true
			}
		}
		if !allowed {
			return nil, pkgerrors.StateConflict("user", string(user.Status), string(to))
		}
		return map[string]any{"status": to}, nil
	})
}

func (s *service) Disable(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error) {
	if actor.UserID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot disable your own account")
	}
	out, err := s.mutate(ctx, id, func(*models.User) (map[string]any, error) {
		return map[string]any{"disabled": true}, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	return out, nil
}

func (s *service) Enable(ctx context.Context, actor types.Actor, id uuid.UUID) (*UserDTO, error) {
	return s.mutate(ctx, id, func(*models.User) (map[string]any, error) {
		return map[string]any{"disabled": false}, nil
	})
}

func (s *service) ChangeRole(ctx context.Context, actor types.Actor, id uuid.UUID, role enums.Role) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]any{"role": role})
	}
	if actor.UserID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot change your own role")
	}
	out, err := s.mutate(ctx, id, func(*models.User) (map[string]any, error) {
		return map[string]any{"role": role}, nil
	})
	if err != nil {
		return nil, err
	}
	// tokens embed the role, so outstanding sessions must re-login
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	return out, nil
}

func (s *service) ListRiders(ctx context.Context) ([]RiderDTO, error) {
	rows, err := s.repo.ListActiveByRole(ctx, enums.RoleRider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list riders")
	}
	out := make([]RiderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RiderDTO{ID: row.ID, DisplayName: row.DisplayName, Phone: row.Phone})
	}
	return out, nil
}

func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(*models.User) (map[string]any, error)) (*UserDTO, error) {
	var out *UserDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load user")
		}
		updates, err := fn(user)
		if err != nil {
			return err
		}
		if err := repo.UpdateFields(ctx, id, updates); err != nil {
			return notFoundOr(err, "update user")
		}
		reloaded, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
		}
		out = FromModel(reloaded)
		return nil
	})
	return out, err
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
