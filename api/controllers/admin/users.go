package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/export"
	"github.com/angelmondragon/giftops-backend/internal/users"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

type roleRequest struct {
	Role enums.Role `json:"role" validate:"required"`
}

func ListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, false, func(r *http.Request, _ types.Actor) (any, error) {
		input, err := userListInput(r)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), input)
	})
}

func GetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "userId", func(r *http.Request, _ types.Actor, id uuid.UUID) (any, error) {
		return svc.Get(r.Context(), id)
	})
}

// CreateStaff opens an approved staff account. The generated password is
// returned once.
func CreateStaff(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, true, func(r *http.Request, actor types.Actor) (any, error) {
		input, err := decode[users.CreateStaffInput](r)
		if err != nil {
			return nil, err
		}
		return svc.CreateStaff(r.Context(), actor, input)
	})
}

func ApproveUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "userId", func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Approve(r.Context(), actor, id)
	})
}

func RejectUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "userId", func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Reject(r.Context(), actor, id)
	})
}

func DisableUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "userId", func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Disable(r.Context(), actor, id)
	})
}

func EnableUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "userId", func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		return svc.Enable(r.Context(), actor, id)
	})
}

func ChangeRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "userId", func(r *http.Request, actor types.Actor, id uuid.UUID) (any, error) {
		req, err := decode[roleRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.ChangeRole(r.Context(), actor, id, req.Role)
	})
}

func ExportUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := userListInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Limit = pagination.MaxLimit
		rows, err := export.Collect(r.Context(), func(ctx context.Context, cursor string) (*pagination.Page[users.UserDTO], error) {
			in := input
			in.Cursor = cursor
			return svc.List(ctx, in)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("users-%s.csv", time.Now().UTC().Format("20060102"))
		responses.WriteCSV(r.Context(), logg, w, filename, func(out io.Writer) error {
			return export.UserTable.Write(out, rows)
		})
	}
}

func userListInput(r *http.Request) (users.ListInput, error) {
	page, err := validators.Page(r)
	if err != nil {
		return users.ListInput{}, err
	}
	role, err := validators.QueryEnum(r, "role", enums.Role.IsValid)
	if err != nil {
		return users.ListInput{}, err
	}
	status, err := validators.QueryEnum(r, "status", enums.UserStatus.IsValid)
	if err != nil {
		return users.ListInput{}, err
	}
	disabled, err := validators.QueryBool(r, "disabled")
	if err != nil {
		return users.ListInput{}, err
	}
	return users.ListInput{
		ListFilters: users.ListFilters{Role: role, Status: status, Disabled: disabled},
		Params:      page,
	}, nil
}
