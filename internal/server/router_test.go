package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment/pkg/config"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *apiError              `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		Store:     config.StoreConfig{Backend: backend, DataDir: dir},
		Database:  config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "enrollment.db")},
		Cache:     config.CacheConfig{TTL: time.Minute},
		JWT:       config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "enrollment-test"},
		Seed:      config.SeedConfig{AdminPassword: "admin123", StaffPassword: "staff123"},
	}
}

func newTestApp(t *testing.T, backend string) (*App, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), testConfig(t, backend), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	created, err := app.Seed.EnsureDefaultAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, created)
	return app, NewRouter(app.RouterOptions())
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func login(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	rec, env := do(t, r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.NotEmpty(t, payload.AccessToken)
	return payload.AccessToken
}

func submission(first, email string) map[string]interface{} {
	return map[string]interface{}{
		"first_name": first, "last_name": "Santos", "date_of_birth": "2008-02-03", "gender": "Female",
		"email": email, "phone": "0917",
		"guardian": map[string]string{"name": "Maria Santos", "phone": "0918", "relation": "Mother"},
	}
}

func TestEnrollmentFlow(t *testing.T) {
	for _, backend := range []string{config.BackendJSON, config.BackendSQL} {
		t.Run(backend, func(t *testing.T) {
			_, r := newTestApp(t, backend)
			staff := login(t, r, "staff", "staff123")
			admin := login(t, r, "admin", "admin123")

			rec, env := do(t, r, http.MethodPost, "/api/v1/students", staff, submission("Ana", "ana@x.com"))
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var created struct {
				StudentID     string `json:"student_id"`
				Status        string `json:"status"`
				SubmittedBy   string `json:"submitted_by"`
				SubmittedRole string `json:"submitted_role"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &created))
			assert.Equal(t, "SID-0001", created.StudentID)
			assert.Equal(t, "pending", created.Status)
			assert.Equal(t, "staff", created.SubmittedBy)
			assert.Equal(t, "staff", created.SubmittedRole)

			rec, _ = do(t, r, http.MethodPost, "/api/v1/students", admin, submission("Bea", "bea@x.com"))
			require.Equal(t, http.StatusCreated, rec.Code)

			rec, _ = do(t, r, http.MethodPatch, "/api/v1/students/SID-0001/status", staff, map[string]string{"status": "approved"})
			assert.Equal(t, http.StatusForbidden, rec.Code)

			rec, _ = do(t, r, http.MethodPatch, "/api/v1/students/SID-0001/status", admin, map[string]string{"status": "approved"})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec, env = do(t, r, http.MethodPatch, "/api/v1/students/SID-0404/status", admin, map[string]string{"status": "approved"})
			assert.Equal(t, http.StatusNotFound, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "could not locate record", env.Error.Message)

			rec, env = do(t, r, http.MethodGet, "/api/v1/students?status=approved", staff, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var approved []struct {
				StudentID string `json:"student_id"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &approved))
			require.Len(t, approved, 1)
			assert.Equal(t, "SID-0001", approved[0].StudentID)
			assert.Equal(t, false, env.Meta["cache_hit"])

			rec, env = do(t, r, http.MethodGet, "/api/v1/students?q=maria", staff, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var byGuardian []json.RawMessage
			require.NoError(t, json.Unmarshal(env.Data, &byGuardian))
			assert.Len(t, byGuardian, 2)

			rec, env = do(t, r, http.MethodGet, "/api/v1/students/summary", admin, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"total":2,"pending":1,"approved":1,"declined":0}`, string(env.Data))

			rec, _ = do(t, r, http.MethodGet, "/api/v1/students/export?format=csv&status=pending", admin, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
			assert.Contains(t, rec.Body.String(), "SID-0002")
			assert.NotContains(t, rec.Body.String(), "SID-0001")
		})
	}
}

func TestSubmitIncompleteForm(t *testing.T) {
	_, r := newTestApp(t, config.BackendJSON)
	staff := login(t, r, "staff", "staff123")

	form := submission("Ana", "ana@x.com")
	delete(form, "phone")
	rec, env := do(t, r, http.MethodPost, "/api/v1/students", staff, form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INCOMPLETE_FORM", env.Error.Code)
	assert.Equal(t, "please fill in all requirements", env.Error.Message)
}

func TestLoginRejectionIsGeneric(t *testing.T) {
	_, r := newTestApp(t, config.BackendJSON)

	for _, creds := range []map[string]string{
		{"username": "admin", "password": "nope"},
		{"username": "nobody", "password": "admin123"},
	} {
		rec, env := do(t, r, http.MethodPost, "/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "invalid credentials", env.Error.Message)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, r := newTestApp(t, config.BackendJSON)

	rec, _ := do(t, r, http.MethodGet, "/api/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/api/v1/students", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := login(t, r, "admin", "admin123")
	rec, env := do(t, r, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"role":"admin"`)
}

func TestOperationalEndpoints(t *testing.T) {
	_, r := newTestApp(t, config.BackendSQL)

	rec, _ := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	login(t, r, "admin", "admin123")
	rec, _ = do(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_logins_total{outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	_, err := Build(context.Background(), testConfig(t, "mongo"), nil)
	assert.Error(t, err)
}
