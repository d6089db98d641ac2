package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/gema-points-api/internal/models"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
)

type mockAuthRepo struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	tokens        map[string]*models.RefreshToken
	created       []*models.RefreshToken
	revokedAll    []string
	revokedTokens []string
	lastLogin     map[string]time.Time
	passwords     map[string]string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
		lastLogin:    map[string]time.Time{},
		passwords:    map[string]string{},
	}
	for _, u := range users {
		repo.usersByEmail[u.Email] = u
		repo.usersByID[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = token
	m.created = append(m.created, token)
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return stored, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revokedTokens = append(m.revokedTokens, id)
	for _, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

type mockAuthAudit struct {
	entries []*models.AuditLog
}

func (m *mockAuthAudit) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func authTestUser(t *testing.T, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	studentID := "student-1"
	return &models.User{
		ID:           "user-1",
		Email:        "mira@gema.test",
		PasswordHash: string(hash),
		FullName:     "Mira Oduya",
		Role:         models.RoleStudent,
		StudentID:    &studentID,
		Active:       true,
	}
}

func newAuthFixture(t *testing.T, repo *mockAuthRepo) (*AuthService, *mockAuthAudit) {
	audit := &mockAuthAudit{}
	svc := NewAuthService(repo, audit, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "gema-points-api",
		SingleSession:      true,
	})
	return svc, audit
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, audit := newAuthFixture(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, []string{"user-1"}, repo.revokedAll)
	require.Len(t, repo.created, 1)
	assert.Contains(t, repo.lastLogin, "user-1")
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "student-1", claims.StudentID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, audit := newAuthFixture(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "nope12"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Empty(t, audit.entries)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc, _ := newAuthFixture(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@gema.test", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := authTestUser(t, "secret123")
	user.Active = false
	repo := newMockAuthRepo(user)
	svc, _ := newAuthFixture(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, _ := newAuthFixture(t, repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)
	// The used token is gone for good.
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, _ := newAuthFixture(t, repo)
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogout(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, audit := newAuthFixture(t, repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "secret123"})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "user-1", models.LoginRequest{})
	require.NoError(t, err)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
	assert.Equal(t, models.AuditActionLogout, audit.entries[len(audit.entries)-1].Action)

	// A token issued for one user cannot be revoked by another.
	login2, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "secret123"})
	require.NoError(t, err)
	err = svc.Logout(context.Background(), login2.RefreshToken, "user-9", models.LoginRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, audit := newAuthFixture(t, repo)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret"})
	require.NoError(t, err)
	assert.Contains(t, repo.passwords, "user-1")
	assert.Contains(t, repo.revokedAll, "user-1")
	assert.Equal(t, models.AuditActionPasswordChange, audit.entries[len(audit.entries)-1].Action)

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "wrongpw", NewPassword: "newsecret"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	repo := newMockAuthRepo(authTestUser(t, "secret123"))
	svc, _ := newAuthFixture(t, repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "mira@gema.test", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken + "x")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
