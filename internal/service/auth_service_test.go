package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	districts     []*models.District
	psychologists []*models.Psychologist
	auditLogs     []models.AuditLog
	revokedUsers  []string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         map[string]*models.User{},
		refreshTokens: map[string]*models.RefreshToken{},
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockAuthRepo) CreateWithProfile(ctx context.Context, user *models.User, district *models.District, psychologist *models.Psychologist) error {
	cp := *user
	m.users[user.ID] = &cp
	if district != nil {
		d := *district
		d.UserID = user.ID
		m.districts = append(m.districts, &d)
	}
	if psychologist != nil {
		p := *psychologist
		p.UserID = user.ID
		m.psychologists = append(m.psychologists, &p)
	}
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if u, ok := m.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockAuthRepo) UpdateProfile(ctx context.Context, id, fullName string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.FullName = fullName
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	for _, t := range m.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

func newAuthService(repo *mockAuthRepo) (*AuthService, *recorderStub) {
	events := &recorderStub{}
	svc := NewAuthService(repo, events, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "psychedhire-api",
	})
	return svc, events
}

func seedUser(repo *mockAuthRepo, id, email, password string, role models.UserRole, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.users[id] = &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		Active:       active,
	}
}

func TestRegisterDistrict(t *testing.T) {
	repo := newMockAuthRepo()
	svc, events := newAuthService(repo)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "district@example.com",
		Password: "password123",
		FullName: "Springfield USD",
		Role:     models.RoleDistrict,
		District: &models.RegisterDistrictProfile{Name: "Springfield USD", State: "IL"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleDistrict, resp.User.Role)

	require.Len(t, repo.districts, 1)
	assert.Equal(t, models.ApprovalStatusPending, repo.districts[0].Status)
	assert.Equal(t, resp.User.ID, repo.districts[0].UserID)
	assert.Equal(t, []string{"user_registered"}, events.events)
}

func TestRegisterPsychologistStartsWizard(t *testing.T) {
	repo := newMockAuthRepo()
	svc, _ := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:        "psych@example.com",
		Password:     "password123",
		FullName:     "Dr. Smith",
		Role:         models.RolePsychologist,
		Psychologist: &models.RegisterPsychologistProfile{Education: "PhD"},
	})
	require.NoError(t, err)

	require.Len(t, repo.psychologists, 1)
	assert.Equal(t, models.ApprovalStatusPending, repo.psychologists[0].Status)
	assert.Equal(t, models.SignupStepMin, repo.psychologists[0].SignupProgress)
}

func TestRegisterMissingProfile(t *testing.T) {
	repo := newMockAuthRepo()
	svc, _ := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "district@example.com",
		Password: "password123",
		FullName: "Springfield USD",
		Role:     models.RoleDistrict,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "taken@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "taken@example.com",
		Password: "password123",
		FullName: "Springfield USD",
		Role:     models.RoleDistrict,
		District: &models.RegisterDistrictProfile{Name: "Springfield USD"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLogin(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, events := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.NotNil(t, repo.users["u1"].LastLogin)
	assert.Equal(t, []string{"user_login"}, events.events)

	// The issued access token round-trips through validation.
	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleDistrict, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	svc, _ := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, false)
	svc, _ := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenRotation(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// Rotation revokes the used token, a second exchange must fail.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	repo.refreshTokens["stale"] = &models.RefreshToken{
		ID:        "rt1",
		UserID:    "u1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc, _ := newAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "u1", models.LoginRequest{}))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

func TestLogoutForeignToken(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestChangePassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "newpassword1",
	})
	require.NoError(t, err)

	// Existing sessions are revoked and the new password works.
	assert.Contains(t, repo.revokedUsers, "u1")
	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "newpassword1",
	})
	require.NoError(t, err)
}

func TestChangePasswordWrongOld(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "not-the-password",
		NewPassword: "newpassword1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, true)
	svc, _ := newAuthService(repo)

	other := NewAuthService(repo, nil, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "different-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
	login, err := other.Login(context.Background(), models.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestMeInactiveAccount(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(repo, "u1", "user@example.com", "password123", models.RoleDistrict, false)
	svc, _ := newAuthService(repo)

	_, err := svc.Me(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}
