package service

import (
	"context"
	"testing"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokens := jwt.NewManager("auth-test", time.Hour)
	auth := NewAuthService(env.users, tokens, nil)

	registered, err := auth.Register(ctx, &RegisterRequest{
		Email:    "  Gamer@Example.com ",
		Password: "hunter22",
		FullName: "Pro Gamer",
	})
	require.NoError(t, err)
	assert.Equal(t, "gamer@example.com", registered.User.Email)
	assert.Equal(t, model.RoleCustomer, registered.User.Role)

	_, err = auth.Register(ctx, &RegisterRequest{Email: "gamer@example.com", Password: "hunter22", FullName: "Copy"})
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = auth.Login(ctx, "gamer@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := auth.Login(ctx, "GAMER@example.com", "hunter22")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(session.Token)
	require.NoError(t, err)
	user, err := env.users.FindByID(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.TokenVersion, claims.TokenVersion, "login rotates the live session")

	old, err := tokens.ValidateToken(registered.Token)
	require.NoError(t, err)
	assert.NotEqual(t, user.TokenVersion, old.TokenVersion)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(env.users, jwt.NewManager("auth-test", time.Hour), nil)
	u := env.user(t, "buyer@example.com")

	assert.ErrorIs(t, auth.ChangePassword(ctx, u.ID, "nope", "newsecret"), ErrWrongPassword)
	assert.ErrorIs(t, auth.ChangePassword(ctx, u.ID, "secret123", "123"), ErrValidation)
	require.NoError(t, auth.ChangePassword(ctx, u.ID, "secret123", "newsecret"))

	_, err := auth.Login(ctx, "buyer@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(env.users, jwt.NewManager("auth-test", time.Hour), nil)

	require.NoError(t, auth.SeedAdmin(ctx, "admin@example.com", "admin123"))
	require.NoError(t, auth.SeedAdmin(ctx, "admin@example.com", "other"))

	admin, err := env.users.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.CheckPassword("admin123"), "seeding never overwrites a password")

	inactive := env.user(t, "gone@example.com")
	inactive.IsActive = false
	require.NoError(t, env.users.Update(ctx, inactive))
	_, err = auth.Login(ctx, "gone@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dash := NewDashboardService(env.products, env.units, env.orders, env.codeRepo)

	buyer := env.user(t, "buyer@example.com")
	p := env.product(t, "Gaming Mouse", "49.00")
	env.unit(t, p, "SN-1")
	env.unit(t, p, "SN-2")
	order := placeOrder(t, env, buyer, p)
	_, err := env.codes.Verify(ctx, order.Codes[0].Code, nil)
	require.NoError(t, err)

	stats, err := dash.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalProducts)
	assert.Equal(t, int64(1), stats.LowStock)
	assert.Equal(t, int64(1), stats.AvailableUnits)
	assert.Equal(t, int64(1), stats.SoldUnits)
	assert.Equal(t, int64(1), stats.OrdersByStatus[model.OrderPending])
	assert.Equal(t, int64(1), stats.VerifiedCodes)
}
