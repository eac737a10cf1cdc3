package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/cache"
	"go-gearstore/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingNotifier captures notifications instead of sending them.
type recordingNotifier struct {
	mu            sync.Mutex
	orders        []string
	verifications []string
	fail          error
}

func (n *recordingNotifier) SendOrderConfirmation(ctx context.Context, email string, order *model.Order, lines []OrderLineNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, email)
	return n.fail
}

func (n *recordingNotifier) SendVerificationConfirmation(ctx context.Context, email string, product *model.Product, code *model.AuthenticationCode) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, code.Code)
	return n.fail
}

func (n *recordingNotifier) verificationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.verifications)
}

type testEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	products  repository.ProductRepository
	units     repository.UnitRepository
	carts     repository.CartRepository
	orders    repository.OrderRepository
	codeRepo  repository.AuthCodeRepository
	notifier  *recordingNotifier
	catalog   CatalogService
	inventory InventoryService
	cart      CartService
	codes     AuthCodeService
	checkout  OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, model.Migrate(db))

	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepo(db),
		products: repository.NewProductRepo(db),
		units:    repository.NewUnitRepo(db),
		carts:    repository.NewCartRepo(db),
		orders:   repository.NewOrderRepo(db),
		codeRepo: repository.NewAuthCodeRepo(db),
		notifier: &recordingNotifier{},
	}
	productCache := NewProductCache(cache.NewMemoryStore(), time.Minute)
	env.catalog = NewCatalogService(repository.NewCategoryRepo(db), env.products, productCache)
	env.inventory = NewInventoryService(env.products, env.units, db, productCache, nil)
	env.cart = NewCartService(env.carts, env.products)
	env.codes = NewAuthCodeService(env.codeRepo, env.notifier, "https://shop.test", "https://qr.test/render")
	env.checkout = NewOrderService(db, env.orders, env.carts, env.users, env.inventory, env.codes, env.notifier, nil)
	return env
}

func (e *testEnv) user(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, FullName: "Test Buyer", Role: model.RoleCustomer, IsActive: true}
	require.NoError(t, u.SetPassword("secret123"))
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) product(t *testing.T, name, price string) *model.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), &CreateProductRequest{
		Name:  name,
		Price: decimal.RequireFromString(price),
	}, "test")
	require.NoError(t, err)
	return p
}

func (e *testEnv) unit(t *testing.T, p *model.Product, serial string) *model.InventoryUnit {
	t.Helper()
	u, err := e.inventory.CreateUnit(context.Background(), &CreateUnitRequest{
		ProductID:    p.ID,
		SerialNumber: serial,
	}, Actor{ID: "admin", Name: "Admin"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (e *testEnv) available(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	status := model.UnitAvailable
	units, err := e.units.List(context.Background(), repository.UnitFilter{ProductID: &productID, Status: &status})
	require.NoError(t, err)
	return len(units)
}

func shipping() map[string]interface{} {
	return map[string]interface{}{"line1": "1 Arena Way", "city": "Austin", "country": "US"}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
