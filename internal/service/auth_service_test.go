package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-enrollment/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	findErr   error
	countErr  error
	createErr error
	created   []*models.User
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.users), nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	user.ID = "id-" + user.Username
	m.users[user.Username] = user
	m.created = append(m.created, user)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockUserRepo{users: map[string]*models.User{
		"admin": {ID: "u1", Username: "admin", PasswordHash: string(hash), Role: models.RoleAdmin},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), NewMetricsService(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "test",
	})
	return svc, repo
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleAdmin, res.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "test", claims.Issuer)
}

func TestAuthServiceLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := []models.LoginRequest{
		{Username: "admin", Password: "wrong"},
		{Username: "ghost", Password: "admin123"},
		{Username: "Admin", Password: "admin123"},
		{Username: "", Password: ""},
	}
	for _, req := range cases {
		_, err := svc.Login(ctx, req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
		assert.Equal(t, "invalid credentials", appErr.Message)
	}
}

func TestAuthServiceLoginRepositoryFailure(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.findErr = errors.New("connection refused")

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "admin123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsExpiredAndForeign(t *testing.T) {
	svc, _ := newAuthFixture(t)
	user := &models.User{ID: "u1", Username: "admin", Role: models.RoleAdmin}

	token, err := svc.generateAccessToken(user, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{Username: "admin", Role: models.RoleAdmin})
	signed, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	svc, _ := newAuthFixture(t)
	token, err := svc.generateAccessToken(&models.User{ID: "u9", Username: "root", Role: "superuser"}, time.Now())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSeedServiceCreatesDefaultsOnce(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewSeedService(repo, DefaultAccounts("admin123", "staff123"), nil)
	svc.cost = bcrypt.MinCost
	ctx := context.Background()

	created, err := svc.EnsureDefaultAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Contains(t, repo.users, "admin")
	require.Contains(t, repo.users, "staff")
	assert.Equal(t, models.RoleStaff, repo.users["staff"].Role)
	assert.NotEqual(t, "admin123", repo.users["admin"].PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["admin"].PasswordHash), []byte("admin123")))

	created, err = svc.EnsureDefaultAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, repo.created, 2)
}

func TestSeedServiceSkipsPopulatedStore(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"ops": {Username: "ops", Role: models.RoleStaff}}}
	svc := NewSeedService(repo, DefaultAccounts("admin123", "staff123"), nil)

	created, err := svc.EnsureDefaultAccounts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.NotContains(t, repo.users, "admin")
}

func TestSeedServiceRejectsEmptyPassword(t *testing.T) {
	svc := NewSeedService(&mockUserRepo{}, DefaultAccounts("", "staff123"), nil)

	_, err := svc.EnsureDefaultAccounts(context.Background())
	assert.Error(t, err)
}
