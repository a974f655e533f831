package api_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"step26/internal/api"
	"step26/internal/auth"
	"step26/internal/config"
	"step26/internal/database"
	"step26/internal/models"
	"step26/internal/streak"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	err := auth.Configure(config.AuthConfig{
		JWTSecret:    "test-secret-that-is-long-enough-for-hs256",
		CookieSecure: false,
	})
	if err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Initialize(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.UploadDir = t.TempDir()
	cfg.MaxUploadMB = 1
	return cfg
}

func setupTestApp(t *testing.T, db *sql.DB) *fiber.App {
	t.Helper()
	return setupTestAppWithConfig(db, testConfig(t))
}

func setupTestAppWithConfig(db *sql.DB, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler})
	api.SetupRoutes(app, db, cfg)
	return app
}

// doJSON sends body (if any) as JSON and returns the status and raw response.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func register(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	status, raw := doJSON(t, app, "POST", "/api/auth/register", "", models.RegisterRequest{
		Username: username,
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[models.AuthResponse](t, raw).Token
}

func today() streak.Date {
	return streak.DateOf(time.Now(), time.UTC)
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)

	status, raw := doJSON(t, app, "POST", "/api/auth/register", "", models.RegisterRequest{
		Username: "testuser",
		Password: "password123",
		Timezone: "Europe/Warsaw",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	reg := decode[models.AuthResponse](t, raw)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "testuser", reg.User.Username)
	assert.Equal(t, "Europe/Warsaw", reg.User.Timezone)

	status, raw = doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.NotEmpty(t, decode[models.AuthResponse](t, raw).Token)

	status, _ = doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	register(t, app, "taken")

	cases := []struct {
		name string
		req  models.RegisterRequest
		want int
	}{
		{"missing password", models.RegisterRequest{Username: "a"}, http.StatusBadRequest},
		{"short password", models.RegisterRequest{Username: "a", Password: "short"}, http.StatusBadRequest},
		{"bad timezone", models.RegisterRequest{Username: "a", Password: "password123", Timezone: "Mars/Olympus"}, http.StatusBadRequest},
		{"duplicate", models.RegisterRequest{Username: "taken", Password: "password123"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := doJSON(t, app, "POST", "/api/auth/register", "", tc.req)
			assert.Equal(t, tc.want, status, string(raw))
			assert.Contains(t, string(raw), `"error"`)
		})
	}
}

func TestRegistrationDisabled(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig(t)
	cfg.DisableRegistration = true
	app := setupTestAppWithConfig(db, cfg)

	status, _ := doJSON(t, app, "POST", "/api/auth/register", "", models.RegisterRequest{
		Username: "someone",
		Password: "password123",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := doJSON(t, app, "GET", "/api/config", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, decode[map[string]any](t, raw)["disableRegistration"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)

	status, _ := doJSON(t, app, "GET", "/api/habits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, "GET", "/api/habits", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRotatesToken(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)

	body, _ := json.Marshal(models.RegisterRequest{Username: "rotator", Password: "password123"})
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var first *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			first = c
		}
	}
	require.NotNil(t, first)

	refresh := func(cookie *http.Cookie) *http.Response {
		req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp = refresh(first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			second = c
		}
	}
	require.NotNil(t, second)

	assert.NotEqual(t, first.Value, second.Value)

	// The rotated-out token is revoked.
	resp = refresh(first)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = refresh(second)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserProfileAndSettings(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	token := register(t, app, "settings")

	status, raw := doJSON(t, app, "PUT", "/api/user/email", token, map[string]string{"email": "not an email"})
	assert.Equal(t, http.StatusBadRequest, status, string(raw))

	status, _ = doJSON(t, app, "PUT", "/api/user/email", token, map[string]string{"email": "me@example.com"})
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, "PUT", "/api/user/timezone", token, map[string]string{"timezone": "Nowhere/Land"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, "PUT", "/api/user/timezone", token, map[string]string{"timezone": "America/New_York"})
	require.Equal(t, http.StatusOK, status)

	status, raw = doJSON(t, app, "GET", "/api/user/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := decode[models.User](t, raw)
	assert.Equal(t, "me@example.com", user.Email)
	assert.Equal(t, "America/New_York", user.Timezone)
}

func TestHealth(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db)
	status, raw := doJSON(t, app, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}
