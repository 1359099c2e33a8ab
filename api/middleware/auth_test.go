package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftops-backend/pkg/auth"
	"github.com/angelmondragon/giftops-backend/pkg/auth/session"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func TestAuthRejections(t *testing.T) {
	rider := uuid.New()
	cases := []struct {
		name     string
		header   string
		sessions stubSessionVerifier
		status   int
		message  string
	}{
		{name: "missing token", sessions: stubSessionVerifier{ok: true}, status: http.StatusUnauthorized, message: "missing credentials"},
		{name: "garbage token", header: "Bearer invalid", sessions: stubSessionVerifier{ok: true}, status: http.StatusUnauthorized, message: "invalid token"},
		{
			name:     "expired token",
			header:   "Bearer " + mintAt(t, rider, enums.RoleRider, time.Now().Add(-2*time.Hour)),
			sessions: stubSessionVerifier{ok: true},
			status:   http.StatusUnauthorized,
			message:  "access token expired",
		},
		{
			name:     "revoked session",
			header:   "Bearer " + mintAt(t, rider, enums.RoleRider, time.Now()),
			sessions: stubSessionVerifier{},
			status:   http.StatusUnauthorized,
			message:  "session revoked or expired",
		},
		{
			name:     "session store down",
			header:   "Bearer " + mintAt(t, rider, enums.RoleRider, time.Now()),
			sessions: stubSessionVerifier{err: errors.New("redis down")},
			status:   http.StatusServiceUnavailable,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := Auth(testJWT, tc.sessions, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, tc.status, rec.Code)
			if tc.message != "" {
				var body struct {
					Error struct {
						Message string `json:"message"`
					} `json:"error"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tc.message, body.Error.Message)
			}
		})
	}
}

func TestAuthSeedsActorWithoutScheme(t *testing.T) {
	userID := uuid.New()
	token := mintAt(t, userID, enums.RoleFinanceManager, time.Now())

	var (
		captured types.Actor
		ok       bool
	)
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, ok = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, userID, captured.UserID)
	assert.Equal(t, enums.RoleFinanceManager, captured.Role)
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name     string
		actor    *types.Actor
		status   int
		location string
	}{
		{name: "listed role", actor: &types.Actor{UserID: uuid.New(), Role: enums.RoleFinanceManager}, status: http.StatusOK},
		{name: "other role is sent to the dashboard", actor: &types.Actor{UserID: uuid.New(), Role: enums.RoleRider}, status: http.StatusForbidden, location: DashboardPath},
		{name: "anonymous", status: http.StatusUnauthorized},
	}
	handler := RequireRoles(nil, enums.RoleAdmin, enums.RoleFinanceManager)(okHandler())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/finance/invoices", nil)
			if tc.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tc.actor))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.location, rec.Header().Get("Location"))
			if tc.status == http.StatusForbidden {
				assert.Equal(t, string(pkgerrors.CodeForbidden), errorCode(t, rec))
			}
		})
	}
}

func mintAt(t *testing.T, userID uuid.UUID, role enums.Role, now time.Time) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, now, auth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok && s.err == nil, s.err
}
