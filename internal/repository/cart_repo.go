package repository

import (
	"context"
	"time"

	"go-gearstore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error)
	FindByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.CartItem, error)
	LockByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.CartItem, error)
	FindByID(ctx context.Context, userID, itemID uuid.UUID) (*model.CartItem, error)
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (int64, error)
	Delete(ctx context.Context, userID, itemID uuid.UUID) error
	ClearByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepo(db *gorm.DB) CartRepository {
	return &cartRepo{db: db}
}

// Upsert inserts the (user, product) line or atomically adds quantity to the
// existing one, then returns the stored row.
func (r *cartRepo) Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	db := r.db.WithContext(ctx)
	item := model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Omit("Product").Create(&item).Error
	if err != nil {
		return nil, err
	}

	var stored model.CartItem
	if err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *cartRepo) FindByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.CartItem, error) {
	if tx == nil {
		tx = r.db
	}
	var items []model.CartItem
	err := tx.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// LockByUser loads the user's cart with its rows locked FOR UPDATE, so a
// second checkout of the same cart waits and then sees it cleared.
func (r *cartRepo) LockByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]model.CartItem, error) {
	var items []model.CartItem
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil || len(items) == 0 {
		return items, err
	}

	productIDs := make([]uuid.UUID, len(items))
	for i := range items {
		productIDs[i] = items[i].ProductID
	}
	var products []model.Product
	if err := tx.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	return items, nil
}

func (r *cartRepo) FindByID(ctx context.Context, userID, itemID uuid.UUID) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepo) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("id = ? AND user_id = ?", itemID, userID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *cartRepo) Delete(ctx context.Context, userID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&model.CartItem{}).Error
}

func (r *cartRepo) ClearByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
}
