package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateUnitGeneratesCodesAndStock(t *testing.T) {
	env := newTestEnv(t)

	p := env.product(t, "Mechanical Keyboard Pro", "129.00")
	u1 := env.unit(t, p, "KB-0001")
	u2 := env.unit(t, p, "KB-0002")

	assert.Equal(t, "MK_1", u1.UnitCode)
	assert.Equal(t, "MK_2", u2.UnitCode)
	assert.Equal(t, model.UnitAvailable, u1.Status)
	assert.Equal(t, "admin", u1.CreatedBy)
	assert.Equal(t, 2, env.stock(t, p.ID))
}

func TestCreateUnitUsesSKUPrefix(t *testing.T) {
	env := newTestEnv(t)
	sku := "HS-700"

	p, err := env.catalog.CreateProduct(context.Background(), &CreateProductRequest{
		Name:  "Wireless Headset",
		SKU:   &sku,
		Price: mustDecimal("199.00"),
	}, "test")
	require.NoError(t, err)

	u := env.unit(t, p, "HS-SERIAL-1")
	assert.Equal(t, "HS-700_1", u.UnitCode)
}

func TestCreateUnitDuplicateSerial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.product(t, "Gaming Mouse", "49.00")
	env.unit(t, p, "SN-1")

	_, err := env.inventory.CreateUnit(ctx, &CreateUnitRequest{ProductID: p.ID, SerialNumber: "SN-1"}, Actor{ID: "admin"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, env.stock(t, p.ID))
}

func TestCreateUnitUnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.inventory.CreateUnit(context.Background(), &CreateUnitRequest{ProductID: uuid.New(), SerialNumber: "SN-1"}, Actor{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.inventory.CreateUnit(context.Background(), &CreateUnitRequest{SerialNumber: "SN-1"}, Actor{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssignUnitTakesOldestAndEmptiesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.product(t, "Gaming Mouse", "49.00")
	first := env.unit(t, p, "SN-1")
	env.unit(t, p, "SN-2")

	orderID := uuid.New()
	unit, err := env.inventory.AssignUnit(ctx, nil, p.ID, orderID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, unit.ID)
	assert.Equal(t, model.UnitSold, unit.Status)
	assert.Equal(t, 1, env.stock(t, p.ID))

	_, err = env.inventory.AssignUnit(ctx, nil, p.ID, uuid.New())
	require.NoError(t, err)

	_, err = env.inventory.AssignUnit(ctx, nil, p.ID, uuid.New())
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 0, env.stock(t, p.ID))
}

func TestConcurrentAssignSellsUnitOnce(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "Gaming Mouse", "49.00")
	env.unit(t, p, "SN-ONLY")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sold     int
		outOfStk int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.inventory.AssignUnit(context.Background(), nil, p.ID, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case assert.ErrorIs(t, err, ErrOutOfStock):
				outOfStk++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sold)
	assert.Equal(t, 1, outOfStk)
	assert.Equal(t, 0, env.stock(t, p.ID))
}

func TestUpdateUnitStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := Actor{ID: "admin"}

	p := env.product(t, "Gaming Mouse", "49.00")
	u := env.unit(t, p, "SN-1")

	reserved, err := env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitReserved}, admin)
	require.NoError(t, err)
	assert.Equal(t, model.UnitReserved, reserved.Status)
	assert.Equal(t, 0, env.stock(t, p.ID))

	orderID := uuid.New()
	sold, err := env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitSold, OrderID: &orderID}, admin)
	require.NoError(t, err)
	assert.Equal(t, model.UnitSold, sold.Status)
	require.NotNil(t, sold.OrderID)
	assert.Equal(t, orderID, *sold.OrderID)

	_, err = env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitAvailable}, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: "lost"}, admin)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateUnitStatusBindsOrderOnlyOnSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := Actor{ID: "admin"}

	p := env.product(t, "Gaming Mouse", "49.00")
	u := env.unit(t, p, "SN-1")

	orderA := uuid.New()
	_, err := env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitReserved, OrderID: &orderA}, admin)
	assert.ErrorIs(t, err, ErrValidation)

	unchanged, err := env.inventory.GetUnit(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UnitAvailable, unchanged.Status)
	assert.Nil(t, unchanged.OrderID)

	reserved, err := env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitReserved}, admin)
	require.NoError(t, err)
	assert.Nil(t, reserved.OrderID)

	// A unit already tied to an order cannot be sold to a different one.
	require.NoError(t, env.db.Model(&model.InventoryUnit{}).Where("id = ?", u.ID).Update("order_id", orderA).Error)
	orderB := uuid.New()
	_, err = env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitSold, OrderID: &orderB}, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	sold, err := env.inventory.UpdateUnitStatus(ctx, u.ID, &UpdateUnitStatusRequest{Status: model.UnitSold, OrderID: &orderA}, admin)
	require.NoError(t, err)
	assert.Equal(t, model.UnitSold, sold.Status)
	require.NotNil(t, sold.OrderID)
	assert.Equal(t, orderA, *sold.OrderID)
}

// losingUnits loses every claim, as if another checkout always got there first.
type losingUnits struct {
	repository.UnitRepository
	mu     sync.Mutex
	claims int
}

func (l *losingUnits) Claim(ctx context.Context, tx *gorm.DB, unitID, orderID uuid.UUID, soldAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.claims++
	return false, nil
}

func TestAssignUnitGivesUpWhenClaimsKeepLosing(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "Gaming Mouse", "49.00")
	env.unit(t, p, "SN-1")
	env.unit(t, p, "SN-2")

	units := &losingUnits{UnitRepository: env.units}
	inventory := NewInventoryService(env.products, units, env.db, NewProductCache(cache.NewMemoryStore(), time.Minute), nil)

	_, err := inventory.AssignUnit(context.Background(), nil, p.ID, uuid.New())
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 2*maxClaimRounds, units.claims)
	assert.Equal(t, 2, env.stock(t, p.ID))
}

// Stock always equals the number of available units, whatever happened.
func TestStockMatchesAvailableUnits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := env.product(t, "Gaming Mouse", "49.00")
	var units []*model.InventoryUnit
	for _, serial := range []string{"A", "B", "C", "D"} {
		units = append(units, env.unit(t, p, serial))
	}
	check := func() {
		assert.Equal(t, env.available(t, p.ID), env.stock(t, p.ID))
	}
	check()

	_, err := env.inventory.AssignUnit(ctx, nil, p.ID, uuid.New())
	require.NoError(t, err)
	check()

	_, err = env.inventory.UpdateUnitStatus(ctx, units[3].ID, &UpdateUnitStatusRequest{Status: model.UnitReserved}, Actor{})
	require.NoError(t, err)
	check()

	_, err = env.inventory.UpdateUnitStatus(ctx, units[3].ID, &UpdateUnitStatusRequest{Status: model.UnitAvailable}, Actor{})
	require.NoError(t, err)
	check()
	assert.Equal(t, 3, env.stock(t, p.ID))
}
