package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment/pkg/errors"
)

type fakeAuthService struct {
	calls int
	res   *models.LoginResponse
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.calls++
	return f.res, f.err
}

func TestLoginMalformedBodyIsGenericRejection(t *testing.T) {
	svc := &fakeAuthService{}
	c, rec := testContext(http.MethodPost, "/auth/login", []byte(`not json`))

	NewAuthHandler(svc).Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "invalid credentials", body.Error.Message)
	assert.Zero(t, svc.calls)
}

func TestLoginPassesServiceError(t *testing.T) {
	svc := &fakeAuthService{err: appErrors.Clone(appErrors.ErrInvalidCredentials, "")}
	c, rec := testContext(http.MethodPost, "/auth/login", []byte(`{"username":"admin","password":"x"}`))

	NewAuthHandler(svc).Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, svc.calls)
}

func TestLoginSuccess(t *testing.T) {
	svc := &fakeAuthService{res: &models.LoginResponse{AccessToken: "tok", User: models.UserInfo{Username: "admin", Role: models.RoleAdmin}}}
	c, rec := testContext(http.MethodPost, "/auth/login", []byte(`{"username":"admin","password":"admin123"}`))

	NewAuthHandler(svc).Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"access_token":"tok"`)
}

func TestMeRequiresClaims(t *testing.T) {
	c, rec := testContext(http.MethodGet, "/auth/me", nil)
	NewAuthHandler(&fakeAuthService{}).Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = testContext(http.MethodGet, "/auth/me", nil)
	withActor(c, models.RoleStaff)
	NewAuthHandler(&fakeAuthService{}).Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"role":"staff"`)
}
