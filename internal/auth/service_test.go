package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftops-backend/internal/users"
	pkgAuth "github.com/angelmondragon/giftops-backend/pkg/auth"
	"github.com/angelmondragon/giftops-backend/pkg/auth/session"
	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/db/models"
	"github.com/angelmondragon/giftops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftops-backend/pkg/errors"
	"github.com/angelmondragon/giftops-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "giftops",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 60,
}

var testPassword = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	lastLogin map[uuid.UUID]time.Time
	createErr error
}

func newStubUserRepo(list ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{byEmail: map[string]*models.User{}, lastLogin: map[uuid.UUID]time.Time{}}
	for _, u := range list {
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (s *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

type stubSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]string{}}
}

func (s *stubSessionManager) Generate(_ context.Context, _ uuid.UUID, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if stored, ok := s.sessions[oldAccessID]; !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	next := session.NewAccessID()
	token, _ := s.Generate(ctx, userID, next)
	return next, token, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, _ uuid.UUID, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func newUser(t *testing.T, role enums.Role, status enums.UserStatus, disabled bool) *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        string(role) + "@example.com",
		PasswordHash: mustHashPassword(t, "s3cret-pass"),
		DisplayName:  string(role),
		Role:         role,
		Status:       status,
		Disabled:     disabled,
	}
}

func buildTestService(t *testing.T, list ...*models.User) (Service, *stubUserRepo, *stubSessionManager) {
	t.Helper()
	repo := newStubUserRepo(list...)
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo, sessions
}

func TestLoginEmbedsRoleFromUserRecord(t *testing.T) {
	user := newUser(t, enums.RoleDispatchManager, enums.UserStatusApproved, false)
	svc, repo, sessions := buildTestService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " Dispatch_Manager@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleDispatchManager {
		t.Fatalf("expected dispatch_manager claim, got %s", claims.Role)
	}
	if sessions.sessions[claims.ID] != resp.RefreshToken {
		t.Fatalf("expected refresh token stored under jti")
	}
	if _, ok := repo.lastLogin[user.ID]; !ok {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestLoginGates(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		pass string
		code pkgerrors.Code
	}{
		{"wrong password", newUser(t, enums.RoleCustomer, enums.UserStatusApproved, false), "nope-nope1", pkgerrors.CodeUnauthorized},
		{"disabled but approved", newUser(t, enums.RoleRider, enums.UserStatusApproved, true), "s3cret-pass", pkgerrors.CodeForbidden},
		{"pending not disabled", newUser(t, enums.RoleSupplier, enums.UserStatusPending, false), "s3cret-pass", pkgerrors.CodeForbidden},
		{"rejected", newUser(t, enums.RoleSupplier, enums.UserStatusRejected, false), "s3cret-pass", pkgerrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, sessions := buildTestService(t, tc.user)
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.user.Email, Password: tc.pass})
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if len(sessions.sessions) != 0 {
				t.Fatalf("expected no session to be issued")
			}
		})
	}

	svc, _, _ := buildTestService(t)
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestRefreshRotatesAndRereadsRole(t *testing.T) {
	user := newUser(t, enums.RoleTechnician, enums.UserStatusApproved, false)
	svc, _, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user.Role = enums.RoleDispatchManager
	pair, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != enums.RoleDispatchManager {
		t.Fatalf("expected refreshed role, got %s", claims.Role)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected exactly one live session, got %d", len(sessions.sessions))
	}

	// the old refresh token is single use
	if _, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}

	user.Disabled = true
	if _, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for disabled user, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	user := newUser(t, enums.RoleCustomer, enums.UserStatusApproved, false)
	svc, _, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.sessions) != 0 || len(sessions.revoked) != 1 {
		t.Fatalf("expected session revoked, got %+v", sessions)
	}
	if err := svc.Logout(ctx, "garbage"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad token, got %v", err)
	}

	me, err := svc.Me(ctx, user.ID)
	if err != nil || me.ID != user.ID {
		t.Fatalf("me: %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	user := newUser(t, enums.RoleCustomer, enums.UserStatusApproved, false)
	svc, _, _ := buildTestService(t, user)
	ctx := context.Background()

	_, unknown := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	_, wrong := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "not-it"})

	for _, err := range []error{unknown, wrong} {
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		if pkgerrors.As(err).Message() != invalidCredentialsMessage {
			t.Fatalf("login failures must not reveal which part was wrong: %q", pkgerrors.As(err).Message())
		}
	}
}

func TestLoginReportsAccessExpiry(t *testing.T) {
	user := newUser(t, enums.RoleCustomer, enums.UserStatusApproved, false)
	svc, _, _ := buildTestService(t, user)
	before := time.Now().UTC()

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Fatalf("expected bearer token type, got %q", resp.TokenType)
	}
	if d := resp.ExpiresAt.Sub(before); d < 29*time.Minute || d > 31*time.Minute {
		t.Fatalf("expected ~30m access lifetime, got %s", d)
	}
}
