package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/api/controllers"
	"github.com/angelmondragon/giftops-backend/api/middleware"
	"github.com/angelmondragon/giftops-backend/internal/users"
	pkgAuth "github.com/angelmondragon/giftops-backend/pkg/auth"
	"github.com/angelmondragon/giftops-backend/pkg/auth/session"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

// stubUsers panics on anything but List.
type stubUsers struct {
	users.Service
	listCalls int
}

func (s *stubUsers) List(ctx context.Context, input users.ListInput) (*pagination.Page[users.UserDTO], error) {
	s.listCalls++
	return &pagination.Page[users.UserDTO]{Items: []users.UserDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "giftops-test", ExpirationMinutes: 15},
	}
}

func newTestRouter(t *testing.T, usersSvc users.Service) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.Discard()
	router := NewRouter(Dependencies{
		Config:   cfg,
		Logger:   logg,
		Sessions: stubSessions{},
		Health:   map[string]controllers.Pinger{"db": stubPinger{}},
		Users:    usersSvc,
	})
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t, &stubUsers{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminUsersRequiresAuthentication(t *testing.T) {
	svc := &stubUsers{}
	router, _ := newTestRouter(t, svc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, svc.listCalls)
}

func TestAdminUsersRedirectsOtherRolesToDashboard(t *testing.T) {
	for _, role := range []enums.Role{enums.RoleCustomer, enums.RoleRider, enums.RoleFinanceManager, enums.RoleSupplier} {
		t.Run(string(role), func(t *testing.T) {
			svc := &stubUsers{}
			router, cfg := newTestRouter(t, svc)

			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			req.Header.Set("Authorization", bearer(t, cfg, role))
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, http.StatusForbidden, resp.Code)
			assert.Equal(t, middleware.DashboardPath, resp.Header().Get("Location"))
			assert.Zero(t, svc.listCalls)

			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
			assert.Equal(t, "FORBIDDEN", payload.Error.Code)
		})
	}
}

func TestAdminUsersAllowsAdmin(t *testing.T) {
	svc := &stubUsers{}
	router, cfg := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users?limit=5", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, svc.listCalls)
}

func TestFinanceGroupRejectsRider(t *testing.T) {
	router, cfg := newTestRouter(t, &stubUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/finance/invoices", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.RoleRider))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, middleware.DashboardPath, resp.Header().Get("Location"))
}
