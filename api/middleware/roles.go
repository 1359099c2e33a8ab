package middleware

import (
	"net/http"

	"github.com/angelmondragon/giftops-backend/api/responses"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
)

// DashboardPath is where clients send users who reach a page their role may not see.
const DashboardPath = "/dashboard"

// RequireRoles rejects callers whose role is outside allowed before the
// handler runs. Unauthenticated requests get 401; wrong roles get 403 with a
// Location header pointing at the dashboard.
func RequireRoles(logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !actor.Role.In(allowed...) {
				w.Header().Set("Location", DashboardPath)
				err := pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed").
					WithDetails(map[string]any{"role": string(actor.Role)})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
