package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"
	"beverage-backend/internal/response"
	"beverage-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-test-secret-test-secret"

type fixture struct {
	db    *gorm.DB
	store *repository.Store
	svc   *Service
	app   *fiber.App
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	log := testutil.Logger()
	svc := NewService(store, NewTokenIssuer(testSecret, time.Hour), log)

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler(log)})
	api := app.Group("/api/auth")
	api.Post("/login", LoginHandler(svc))
	api.Get("/me", JWTMiddleware(svc), MeHandler(svc))
	api.Post("/logout", JWTMiddleware(svc), LogoutHandler(svc))
	app.Get("/admin-only", JWTMiddleware(svc), RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/reports", JWTMiddleware(svc), RequirePermission(models.PermReportView), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return &fixture{db: db, store: store, svc: svc, app: app}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*http.Response, response.Envelope, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	var env response.Envelope
	var data map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env))
		var withData struct {
			Data map[string]any `json:"data"`
		}
		_ = json.Unmarshal(raw, &withData)
		data = withData.Data
	}
	return resp, env, data
}

func (f *fixture) login(t *testing.T, username string) string {
	t.Helper()
	resp, _, data := f.do(t, "POST", "/api/auth/login", "", `{"username":"`+username+`","password":"`+username+`"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return data["token"].(string)
}

func TestLoginOpensSessionAndIssuesToken(t *testing.T) {
	f := newFixture(t)
	u := testutil.CreateUser(t, f.db, "sara", models.RoleEmployee)

	resp, env, data := f.do(t, "POST", "/api/auth/login", "", `{"username":"sara","password":"sara"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.NotEmpty(t, data["token"])
	assert.NotZero(t, data["session_id"])

	user := data["user"].(map[string]any)
	assert.Equal(t, "sara", user["username"])
	assert.NotContains(t, user, "password_hash")

	sessions, err := f.store.Sessions.ListActive(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, u.ID, sessions[0].UserID)

	stored, err := f.store.Users.FindByID(t.Context(), u.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	u := testutil.CreateUser(t, f.db, "ahmed", models.RoleEmployee)

	for _, body := range []string{
		`{"username":"ahmed","password":"wrong"}`,
		`{"username":"nobody","password":"ahmed"}`,
	} {
		resp, env, _ := f.do(t, "POST", "/api/auth/login", "", body)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.False(t, env.Success)
		assert.Equal(t, "Invalid credentials", env.Message)
	}

	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)
	resp, env, _ := f.do(t, "POST", "/api/auth/login", "", `{"username":"ahmed","password":"ahmed"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", env.Message)

	resp, env, _ = f.do(t, "POST", "/api/auth/login", "", `{"username":""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, env.Errors)
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	testutil.CreateUser(t, f.db, "sara", models.RoleEmployee)
	token := f.login(t, "sara")

	resp, _, data := f.do(t, "GET", "/api/auth/me", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "sara", data["user"].(map[string]any)["username"])

	resp, _, _ = f.do(t, "POST", "/api/auth/logout", token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	sessions, err := f.store.Sessions.ListActive(t.Context())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	f := newFixture(t)

	resp, env, _ := f.do(t, "GET", "/api/auth/me", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No token provided", env.Message)

	resp, _, _ = f.do(t, "GET", "/api/auth/me", "garbage", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	other := NewTokenIssuer("another-secret-another-secret-12345", time.Hour)
	forged, _, err := other.Generate(&models.User{ID: 1, Username: "x", Role: models.RoleAdmin}, 0)
	require.NoError(t, err)
	resp, _, _ = f.do(t, "GET", "/api/auth/me", forged, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute)
	start := time.Now()
	issuer.now = func() time.Time { return start }
	tok, _, err := issuer.Generate(&models.User{ID: 5, Username: "sara", Role: models.RoleEmployee}, 9)
	require.NoError(t, err)

	claims, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.EqualValues(t, 5, claims.UserID)
	assert.EqualValues(t, 9, claims.SessionID)

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Parse(tok)
	assert.Error(t, err)
}

func TestRoleAndPermissionGuards(t *testing.T) {
	f := newFixture(t)
	testutil.CreateUser(t, f.db, "sara", models.RoleEmployee)
	testutil.CreateUser(t, f.db, "admin", models.RoleAdmin)
	emp := f.login(t, "sara")
	admin := f.login(t, "admin")

	resp, _, _ := f.do(t, "GET", "/admin-only", emp, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _, _ = f.do(t, "GET", "/admin-only", admin, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _, _ = f.do(t, "GET", "/reports", emp, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _, _ = f.do(t, "GET", "/reports?token="+admin, "", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
