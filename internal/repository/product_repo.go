package repository

import (
	"context"
	"strings"

	"go-gearstore/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows a catalog listing. Nil fields are not applied.
type ProductFilter struct {
	CategoryID      *uuid.UUID
	Brand           *string
	Search          *string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	InStock         *bool
	IncludeInactive bool
	Sort            string // newest, price_asc, price_desc, name
	Page            int
	Limit           int
}

var productSorts = map[string]string{
	"newest":     "created_at DESC",
	"price_asc":  "price ASC",
	"price_desc": "price DESC",
	"name":       "name ASC",
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, product *model.Product) error
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	RecomputeStock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int, error)
	Count(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Create(product).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Product{})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Brand != nil {
		query = query.Where("LOWER(brand) = ?", strings.ToLower(*filter.Brand))
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + strings.ToLower(*filter.Search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?)", like, like, like)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query = query.Where("stock > 0")
		} else {
			query = query.Where("stock = 0")
		}
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := productSorts[filter.Sort]
	if !ok {
		order = productSorts["newest"]
	}

	var products []model.Product
	err := query.Session(&gorm.Session{}).Preload("Category").
		Order(order).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&products).Error
	return products, total, err
}

// Update saves catalog fields. Stock is always omitted; it only changes
// through RecomputeStock.
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit("Stock", "Category").Save(product).Error
}

// LockByID loads the product row FOR UPDATE inside tx.
func (r *productRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// RecomputeStock rewrites the cached stock from the authoritative count of
// available units in a single statement and returns the new value.
func (r *productRepo) RecomputeStock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int, error) {
	db := tx.WithContext(ctx)
	available := db.Session(&gorm.Session{NewDB: true}).
		Model(&model.InventoryUnit{}).
		Select("COUNT(*)").
		Where("product_id = ? AND status = ?", id, model.UnitAvailable)

	if err := db.Model(&model.Product{}).Where("id = ?", id).Update("stock", available).Error; err != nil {
		return 0, err
	}

	var stock int
	err := db.Session(&gorm.Session{NewDB: true}).
		Model(&model.Product{}).
		Select("stock").
		Where("id = ?", id).
		Scan(&stock).Error
	return stock, err
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&count).Error
	return count, err
}

func (r *productRepo) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("is_active = ? AND stock < ?", true, threshold).
		Count(&count).Error
	return count, err
}
