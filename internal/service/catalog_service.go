package service

import (
	"context"
	"errors"
	"strings"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/validator"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CatalogService interface {
	CreateCategory(ctx context.Context, req *CreateCategoryRequest, createdBy string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *CreateCategoryRequest, updatedBy string) (*model.Category, error)

	CreateProduct(ctx context.Context, req *CreateProductRequest, createdBy string) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, updatedBy string) (*model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string, includeInactive bool) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Description string `json:"description"`
}

type CreateProductRequest struct {
	Name           string                 `json:"name" validate:"required,max=255"`
	Slug           string                 `json:"slug" validate:"omitempty,max=255"`
	SKU            *string                `json:"sku" validate:"omitempty,max=64"`
	Description    string                 `json:"description"`
	Price          decimal.Decimal        `json:"price" validate:"gt=0"`
	SalePrice      *decimal.Decimal       `json:"sale_price" validate:"omitempty,gt=0"`
	CategoryID     *uuid.UUID             `json:"category_id"`
	Brand          string                 `json:"brand" validate:"max=100"`
	Model          string                 `json:"model" validate:"max=100"`
	ImageURL       string                 `json:"image_url" validate:"omitempty,url"`
	Specifications map[string]interface{} `json:"specifications"`
	IsActive       *bool                  `json:"is_active"`
}

// UpdateProductRequest is a partial update. Stock is accepted on the wire
// only so it can be refused.
type UpdateProductRequest struct {
	Name           *string                `json:"name" validate:"omitempty,max=255"`
	SKU            *string                `json:"sku" validate:"omitempty,max=64"`
	Description    *string                `json:"description"`
	Price          *decimal.Decimal       `json:"price" validate:"omitempty,gt=0"`
	SalePrice      *decimal.Decimal       `json:"sale_price" validate:"omitempty,gt=0"`
	ClearSalePrice bool                   `json:"clear_sale_price"`
	CategoryID     *uuid.UUID             `json:"category_id"`
	Brand          *string                `json:"brand" validate:"omitempty,max=100"`
	Model          *string                `json:"model" validate:"omitempty,max=100"`
	ImageURL       *string                `json:"image_url" validate:"omitempty,url"`
	Specifications map[string]interface{} `json:"specifications"`
	IsActive       *bool                  `json:"is_active"`
	Stock          *int                   `json:"stock"`
}

type ProductPage struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type catalogService struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	cache        *ProductCache
}

func NewCatalogService(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository, cache *ProductCache) CatalogService {
	return &catalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest, createdBy string) (*model.Category, error) {
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}

	category := &model.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        makeSlug(req.Slug, req.Name),
		Description: req.Description,
	}
	if category.Slug == "" {
		return nil, validationError("name does not produce a usable slug")
	}
	category.CreatedBy = createdBy

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationError("category slug %q already exists", category.Slug)
		}
		return nil, storageError("create category", err)
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, storageError("list categories", err)
	}
	return categories, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CreateCategoryRequest, updatedBy string) (*model.Category, error) {
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}

	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("category", err)
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if req.Slug != "" {
		category.Slug = makeSlug(req.Slug, req.Name)
	}
	category.UpdatedBy = updatedBy

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationError("category slug %q already exists", category.Slug)
		}
		return nil, storageError("update category", err)
	}
	return category, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req *CreateProductRequest, createdBy string) (*model.Product, error) {
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}
	if req.SalePrice != nil && req.SalePrice.GreaterThan(req.Price) {
		return nil, validationError("sale price must not exceed price")
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:        strings.TrimSpace(req.Name),
		Slug:        makeSlug(req.Slug, req.Name),
		SKU:         normalizeSKU(req.SKU),
		Description: req.Description,
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		CategoryID:  req.CategoryID,
		Brand:       strings.TrimSpace(req.Brand),
		ModelName:   strings.TrimSpace(req.Model),
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if product.Slug == "" {
		return nil, validationError("name does not produce a usable slug")
	}
	if req.Specifications != nil {
		product.Specifications = datatypes.JSONMap(req.Specifications)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.CreatedBy = createdBy
	product.UpdatedBy = createdBy

	if existing, _ := s.productRepo.FindBySlug(ctx, product.Slug); existing != nil {
		return nil, validationError("product slug %q already exists", product.Slug)
	}
	if product.SKU != nil {
		if existing, _ := s.productRepo.FindBySKU(ctx, *product.SKU); existing != nil {
			return nil, validationError("sku %q already exists", *product.SKU)
		}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationError("product slug or sku already exists")
		}
		return nil, storageError("create product", err)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, updatedBy string) (*model.Product, error) {
	if req.Stock != nil {
		return nil, validationError("stock is derived from inventory units and cannot be set")
	}
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("product", err)
	}
	oldSlug := product.Slug

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.SKU != nil {
		product.SKU = normalizeSKU(req.SKU)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.ClearSalePrice {
		product.SalePrice = nil
	} else if req.SalePrice != nil {
		product.SalePrice = req.SalePrice
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
	}
	if req.Brand != nil {
		product.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Model != nil {
		product.ModelName = strings.TrimSpace(*req.Model)
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.Specifications != nil {
		product.Specifications = datatypes.JSONMap(req.Specifications)
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if product.SalePrice != nil && product.SalePrice.GreaterThan(product.Price) {
		return nil, validationError("sale price must not exceed price")
	}
	product.UpdatedBy = updatedBy
	product.Category = nil

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationError("sku already exists")
		}
		return nil, storageError("update product", err)
	}
	s.cache.Invalidate(ctx, oldSlug)

	return s.GetProduct(ctx, id)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("product", err)
	}
	return product, nil
}

// GetProductBySlug serves the storefront product page through the cache.
// Inactive products are hidden unless includeInactive is set.
func (s *catalogService) GetProductBySlug(ctx context.Context, slug string, includeInactive bool) (*model.Product, error) {
	product, ok := s.cache.get(ctx, slug)
	if !ok {
		var err error
		product, err = s.productRepo.FindBySlug(ctx, slug)
		if err != nil {
			return nil, storageError("product", err)
		}
		s.cache.put(ctx, product)
	}

	if !product.IsActive && !includeInactive {
		return nil, notFound("product")
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	items, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, storageError("list products", err)
	}
	if items == nil {
		items = []model.Product{}
	}

	return &ProductPage{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *catalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *id); err != nil {
		return storageError("category", err)
	}
	return nil
}

func makeSlug(explicit, name string) string {
	if strings.TrimSpace(explicit) != "" {
		return slug.Make(explicit)
	}
	return slug.Make(name)
}

func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*sku)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
