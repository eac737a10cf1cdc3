package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, logger.Silent)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, model.Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:     name,
		Slug:     uuid.NewString(),
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, NewProductRepo(db).Create(context.Background(), p))
	return p
}

func seedUnit(t *testing.T, db *gorm.DB, p *model.Product, seq int) *model.InventoryUnit {
	t.Helper()
	u := &model.InventoryUnit{
		UnitCode:     fmt.Sprintf("%s_%d", p.UnitPrefix(), seq),
		Sequence:     seq,
		ProductID:    p.ID,
		SerialNumber: uuid.NewString(),
		Status:       model.UnitAvailable,
	}
	require.NoError(t, NewUnitRepo(db).Create(context.Background(), db, u))
	return u
}

func TestUnitClaimIsConditional(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	units := NewUnitRepo(db)

	p := seedProduct(t, db, "Gaming Mouse", "49.90")
	u := seedUnit(t, db, p, 1)

	first := uuid.New()
	ok, err := units.Claim(ctx, db, u.ID, first, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = units.Claim(ctx, db, u.ID, uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "a sold unit cannot be claimed twice")

	stored, err := units.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UnitSold, stored.Status)
	require.NotNil(t, stored.OrderID)
	assert.Equal(t, first, *stored.OrderID)
	assert.NotNil(t, stored.SoldAt)

	sold, err := units.FindByOrder(ctx, first)
	require.NoError(t, err)
	assert.Len(t, sold, 1)
}

func TestOldestAvailableOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := seedProduct(t, db, "Gaming Mouse", "49.90")
	a := seedUnit(t, db, p, 1)
	b := seedUnit(t, db, p, 2)

	units, err := NewUnitRepo(db).OldestAvailable(ctx, db, p.ID, 5)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, a.ID, units[0].ID)
	assert.Equal(t, b.ID, units[1].ID)
}

func TestRecomputeStockCountsAvailableOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	products := NewProductRepo(db)
	units := NewUnitRepo(db)

	p := seedProduct(t, db, "Headset", "120.00")
	seedUnit(t, db, p, 1)
	seedUnit(t, db, p, 2)
	u3 := seedUnit(t, db, p, 3)

	stock, err := products.RecomputeStock(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	ok, err := units.Transition(ctx, db, u3, model.UnitReserved, nil)
	require.NoError(t, err)
	require.True(t, ok)

	stock, err = products.RecomputeStock(ctx, db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stock)

	stored, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)
}

func TestProductUpdateNeverWritesStock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	products := NewProductRepo(db)

	p := seedProduct(t, db, "Headset", "120.00")
	p.Stock = 99
	p.Name = "Headset Pro"
	require.NoError(t, products.Update(ctx, p))

	stored, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Headset Pro", stored.Name)
	assert.Equal(t, 0, stored.Stock)
}

func TestCartUpsertAddsQuantity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	carts := NewCartRepo(db)

	userID := uuid.New()
	p := seedProduct(t, db, "Keyboard", "89.00")

	item, err := carts.Upsert(ctx, userID, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	again, err := carts.Upsert(ctx, userID, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, item.ID, again.ID)
	assert.Equal(t, 5, again.Quantity)

	items, err := carts.FindByUser(ctx, nil, userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Keyboard", items[0].Product.Name)

	require.NoError(t, carts.ClearByUser(ctx, nil, userID))
	items, err = carts.FindByUser(ctx, nil, userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderStatusCompareAndSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	orders := NewOrderRepo(db)

	o := &model.Order{
		UserID:        uuid.New(),
		OrderNumber:   "ORD-TEST-1",
		Status:        model.OrderPending,
		TotalAmount:   decimal.NewFromInt(10),
		PaymentMethod: "card",
		PaymentStatus: model.PaymentPending,
	}
	require.NoError(t, orders.Create(ctx, db, o))

	ok, err := orders.UpdateStatus(ctx, db, o.ID, model.OrderPending, model.OrderProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = orders.UpdateStatus(ctx, db, o.ID, model.OrderPending, model.OrderCancelled)
	require.NoError(t, err)
	assert.False(t, ok, "stale from-status must not win")

	counts, err := orders.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.OrderProcessing])
}

func TestCodeMarkVerifiedOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	codes := NewAuthCodeRepo(db)

	c := &model.AuthenticationCode{
		Code:      uuid.NewString(),
		OrderID:   uuid.New(),
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		IsActive:  true,
	}
	require.NoError(t, codes.Create(ctx, db, c))

	first := time.Now().Add(-time.Minute)
	ok, err := codes.MarkVerified(ctx, c.ID, first, map[string]interface{}{"ip": "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = codes.MarkVerified(ctx, c.ID, time.Now(), map[string]interface{}{"ip": "10.0.0.2"})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := codes.FindByCode(ctx, c.Code)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Equal(t, "10.0.0.1", stored.VerificationData["ip"])

	sent, err := codes.MarkEmailSent(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = codes.MarkEmailSent(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, sent)

	retired := &model.AuthenticationCode{
		Code:      uuid.NewString(),
		OrderID:   uuid.New(),
		ProductID: uuid.New(),
		UserID:    uuid.New(),
		IsActive:  true,
	}
	require.NoError(t, codes.Create(ctx, db, retired))
	_, err = codes.Deactivate(ctx, db, retired.Code)
	require.NoError(t, err)

	ok, err = codes.MarkVerified(ctx, retired.ID, time.Now(), nil)
	require.NoError(t, err)
	assert.False(t, ok, "a retired code is never marked verified")
}

func TestTransitionBindsOrderOnlyOnSale(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	units := NewUnitRepo(db)

	p := seedProduct(t, db, "Gaming Mouse", "49.90")
	u := seedUnit(t, db, p, 1)

	orderA := uuid.New()
	ok, err := units.Transition(ctx, db, u, model.UnitReserved, &orderA)
	require.NoError(t, err)
	require.True(t, ok)

	reserved, err := units.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UnitReserved, reserved.Status)
	assert.Nil(t, reserved.OrderID)

	// A unit that already carries an order keeps it when sold.
	require.NoError(t, db.Model(&model.InventoryUnit{}).Where("id = ?", u.ID).Update("order_id", orderA).Error)
	orderB := uuid.New()
	ok, err = units.Transition(ctx, db, reserved, model.UnitSold, &orderB)
	require.NoError(t, err)
	require.True(t, ok)

	sold, err := units.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UnitSold, sold.Status)
	require.NotNil(t, sold.OrderID)
	assert.Equal(t, orderA, *sold.OrderID)
	assert.NotNil(t, sold.SoldAt)
}

func TestCartLockByUserLoadsProducts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	carts := NewCartRepo(db)
	userID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := carts.LockByUser(ctx, tx, userID)
		require.NoError(t, err)
		assert.Empty(t, locked)
		return nil
	})
	require.NoError(t, err)

	mouse := seedProduct(t, db, "Gaming Mouse", "49.90")
	pad := seedProduct(t, db, "Mouse Pad", "9.90")
	_, err = carts.Upsert(ctx, userID, mouse.ID, 2)
	require.NoError(t, err)
	_, err = carts.Upsert(ctx, userID, pad.ID, 1)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := carts.LockByUser(ctx, tx, userID)
		require.NoError(t, err)
		require.Len(t, locked, 2)
		for _, item := range locked {
			require.NotNil(t, item.Product)
			assert.Equal(t, item.ProductID, item.Product.ID)
		}
		return nil
	})
	require.NoError(t, err)
}
