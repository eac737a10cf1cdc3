package repository

import (
	"context"
	"time"

	"go-gearstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnitFilter is the closed set of filters accepted when listing units.
type UnitFilter struct {
	ProductID *uuid.UUID
	Status    *model.UnitStatus
}

type UnitRepository interface {
	Create(ctx context.Context, tx *gorm.DB, unit *model.InventoryUnit) error
	CountByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int64, error)
	SerialExists(ctx context.Context, tx *gorm.DB, serial string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryUnit, error)
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.InventoryUnit, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.InventoryUnit, error)
	List(ctx context.Context, filter UnitFilter) ([]model.InventoryUnit, error)
	OldestAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, limit int) ([]model.InventoryUnit, error)
	Claim(ctx context.Context, tx *gorm.DB, unitID, orderID uuid.UUID, soldAt time.Time) (bool, error)
	Transition(ctx context.Context, tx *gorm.DB, unit *model.InventoryUnit, next model.UnitStatus, orderID *uuid.UUID) (bool, error)
	CountByStatus(ctx context.Context, status model.UnitStatus) (int64, error)
}

type unitRepo struct {
	db *gorm.DB
}

func NewUnitRepo(db *gorm.DB) UnitRepository {
	return &unitRepo{db: db}
}

func (r *unitRepo) Create(ctx context.Context, tx *gorm.DB, unit *model.InventoryUnit) error {
	return tx.WithContext(ctx).Omit("Product").Create(unit).Error
}

func (r *unitRepo) CountByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.InventoryUnit{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return count, err
}

func (r *unitRepo) SerialExists(ctx context.Context, tx *gorm.DB, serial string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.InventoryUnit{}).
		Unscoped().
		Where("serial_number = ?", serial).
		Count(&count).Error
	return count > 0, err
}

func (r *unitRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryUnit, error) {
	var unit model.InventoryUnit
	if err := r.db.WithContext(ctx).Preload("Product").First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.InventoryUnit, error) {
	var unit model.InventoryUnit
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&unit, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]model.InventoryUnit, error) {
	var units []model.InventoryUnit
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sold_at ASC").
		Find(&units).Error
	return units, err
}

func (r *unitRepo) List(ctx context.Context, filter UnitFilter) ([]model.InventoryUnit, error) {
	query := r.db.WithContext(ctx).Preload("Product")
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var units []model.InventoryUnit
	err := query.Order("created_at ASC, sequence ASC").Find(&units).Error
	return units, err
}

// OldestAvailable locks and returns up to limit available units of a
// product, oldest first. Units locked by other transactions are skipped, and
// the locking read sees the latest committed status under any isolation level.
func (r *unitRepo) OldestAvailable(ctx context.Context, tx *gorm.DB, productID uuid.UUID, limit int) ([]model.InventoryUnit, error) {
	var units []model.InventoryUnit
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("product_id = ? AND status = ?", productID, model.UnitAvailable).
		Order("created_at ASC, sequence ASC").
		Limit(limit).
		Find(&units).Error
	return units, err
}

// Claim marks one unit sold for an order, but only if it is still
// available. It reports false when another writer got there first.
func (r *unitRepo) Claim(ctx context.Context, tx *gorm.DB, unitID, orderID uuid.UUID, soldAt time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.InventoryUnit{}).
		Where("id = ? AND status = ?", unitID, model.UnitAvailable).
		Updates(map[string]interface{}{
			"status":   model.UnitSold,
			"order_id": orderID,
			"sold_at":  soldAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Transition moves a unit from its loaded status to next, conditional on the
// stored status not having changed in between. orderID is only bound on a
// move to sold and never replaces an order the unit already belongs to.
func (r *unitRepo) Transition(ctx context.Context, tx *gorm.DB, unit *model.InventoryUnit, next model.UnitStatus, orderID *uuid.UUID) (bool, error) {
	updates := map[string]interface{}{"status": next}
	if next == model.UnitSold {
		updates["sold_at"] = time.Now()
		if orderID != nil {
			updates["order_id"] = gorm.Expr("COALESCE(order_id, ?)", *orderID)
		}
	}

	result := tx.WithContext(ctx).Model(&model.InventoryUnit{}).
		Where("id = ? AND status = ?", unit.ID, unit.Status).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *unitRepo) CountByStatus(ctx context.Context, status model.UnitStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.InventoryUnit{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
