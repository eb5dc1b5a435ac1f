package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-ledger-api/internal/models"
	appErrors "github.com/noah-isme/school-ledger-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthFixture(t *testing.T, active bool) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{
		ID:           "user-1",
		Email:        "bursar@school.test",
		PasswordHash: string(hash),
		FullName:     "Bursar",
		Role:         models.RoleAdmin,
		Active:       active,
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "school-ledger-api",
	})
	return svc, repo
}

func TestAuthServiceLoginIssuesToken(t *testing.T) {
	svc, repo := newAuthFixture(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "bursar@school.test", Password: "password123", IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, _ := newAuthFixture(t, true)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "bursar@school.test", Password: "wrong"})
	assertCode(t, err, appErrors.ErrInvalidCredentials.Code)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@school.test", Password: "password123"})
	assertCode(t, err, appErrors.ErrInvalidCredentials.Code)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "x"})
	assertCode(t, err, appErrors.ErrValidation.Code)

	inactive, inactiveRepo := newAuthFixture(t, false)
	_, err = inactive.Login(ctx, models.LoginRequest{Email: " Bursar@School.test ", Password: "password123"})
	assertCode(t, err, appErrors.ErrInactiveAccount.Code)
	require.Len(t, inactiveRepo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLoginFailed, inactiveRepo.auditLogs[0].Action)
	assert.Contains(t, string(inactiveRepo.auditLogs[0].NewValues), "inactive")
}

func TestAuthServiceRejectsRolesOutsideTheLedger(t *testing.T) {
	svc, repo := newAuthFixture(t, true)
	repo.user.Role = models.UserRole("STUDENT")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "bursar@school.test", Password: "password123"})
	assertCode(t, err, appErrors.ErrForbidden.Code)
	assert.False(t, repo.lastLoginUpdated)
}

func TestAuthServiceValidateTokenRejectsForeignTokens(t *testing.T) {
	svc, _ := newAuthFixture(t, true)

	_, err := svc.ValidateToken("not-a-token")
	assertCode(t, err, appErrors.ErrUnauthorized.Code)

	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
	token, err := other.generateAccessToken(&models.User{ID: "u", Role: models.RoleTeacher}, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assertCode(t, err, appErrors.ErrUnauthorized.Code)
}
