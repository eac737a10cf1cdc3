package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/database"
	"go-gearstore/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type fixture struct {
	app    *fiber.App
	tokens *jwt.Manager
	users  repository.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, model.Migrate(db))

	f := &fixture{
		app:    fiber.New(),
		tokens: jwt.NewManager("middleware-test", time.Hour),
		users:  repository.NewUserRepo(db),
	}
	auth := RequireAuth(f.tokens, f.users)
	f.app.Get("/me", auth, func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_role").(string))
	})
	f.app.Get("/admin", auth, RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	f.app.Get("/ws", WebSocketIdentity(f.tokens, f.users), func(c *fiber.Ctx) error {
		userID, _ := c.Locals("ws_user_id").(string)
		return c.SendString(userID)
	})
	return f
}

func (f *fixture) login(t *testing.T, email, role, version string) string {
	t.Helper()
	u := &model.User{Email: email, Role: role, IsActive: true, TokenVersion: version}
	require.NoError(t, u.SetPassword("secret123"))
	require.NoError(t, f.users.Create(context.Background(), u))

	token, err := f.tokens.GenerateToken(u.ID, u.Email, "Tester", role, version)
	require.NoError(t, err)
	return token
}

func (f *fixture) get(t *testing.T, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "buyer@example.com", model.RoleCustomer, "v1")

	assert.Equal(t, 200, f.get(t, "/me", token))
	assert.Equal(t, 401, f.get(t, "/me", ""))
	assert.Equal(t, 401, f.get(t, "/me", "garbage"))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestRequireAuthRejectsReplacedSession(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "buyer@example.com", model.RoleCustomer, "v1")

	u, err := f.users.FindByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateTokenVersion(context.Background(), u.ID, "v2"))

	assert.Equal(t, 401, f.get(t, "/me", token))
}

func TestRequireAdmin(t *testing.T) {
	f := newFixture(t)
	customer := f.login(t, "buyer@example.com", model.RoleCustomer, "c1")
	admin := f.login(t, "admin@example.com", model.RoleAdmin, "a1")

	assert.Equal(t, 403, f.get(t, "/admin", customer))
	assert.Equal(t, 204, f.get(t, "/admin", admin))
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	app := fiber.New()
	app.Get("/", RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func (f *fixture) upgrade(t *testing.T, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestWebSocketIdentity(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "buyer@example.com", model.RoleCustomer, "v1")
	u, err := f.users.FindByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUpgradeRequired, f.get(t, "/ws", ""))

	status, body := f.upgrade(t, "/ws")
	assert.Equal(t, 200, status)
	assert.Empty(t, body, "no token leaves the socket anonymous")

	status, body = f.upgrade(t, "/ws?token="+token)
	assert.Equal(t, 200, status)
	assert.Equal(t, u.ID.String(), body)

	status, _ = f.upgrade(t, "/ws?token=garbage")
	assert.Equal(t, 401, status)

	// a replaced session no longer receives per-user pushes
	require.NoError(t, f.users.UpdateTokenVersion(context.Background(), u.ID, "v2"))
	status, _ = f.upgrade(t, "/ws?token="+token)
	assert.Equal(t, 401, status)

	inactive := f.login(t, "gone@example.com", model.RoleCustomer, "g1")
	gone, err := f.users.FindByEmail(context.Background(), "gone@example.com")
	require.NoError(t, err)
	gone.IsActive = false
	require.NoError(t, f.users.Update(context.Background(), gone))
	status, _ = f.upgrade(t, "/ws?token="+inactive)
	assert.Equal(t, 401, status)
}
