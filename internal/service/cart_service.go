package service

import (
	"context"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartService interface {
	AddItem(ctx context.Context, userID uuid.UUID, req *AddCartItemRequest) (*model.CartLine, error)
	SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartLine, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	ListItems(ctx context.Context, userID uuid.UUID) (*model.CartView, error)
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddItem merges into the existing (user, product) line. The increment is
// done by the store, so concurrent adds never lose an update.
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *AddCartItemRequest) (*model.CartLine, error) {
	if req.ProductID == uuid.Nil {
		return nil, validationError("product_id is required")
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, storageError("product", err)
	}
	if !product.IsActive {
		return nil, notFound("product")
	}

	item, err := s.cartRepo.Upsert(ctx, userID, product.ID, quantity)
	if err != nil {
		return nil, storageError("add cart item", err)
	}
	item.Product = product

	line := item.ToLine()
	return &line, nil
}

func (s *cartService) SetQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartLine, error) {
	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}

	affected, err := s.cartRepo.SetQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return nil, storageError("update cart item", err)
	}
	if affected == 0 {
		return nil, notFound("cart item")
	}

	item, err := s.cartRepo.FindByID(ctx, userID, itemID)
	if err != nil {
		return nil, storageError("cart item", err)
	}
	line := item.ToLine()
	return &line, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.cartRepo.Delete(ctx, userID, itemID); err != nil {
		return storageError("remove cart item", err)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.cartRepo.ClearByUser(ctx, nil, userID); err != nil {
		return storageError("clear cart", err)
	}
	return nil
}

// ListItems prices every line at the product's current effective price.
func (s *cartService) ListItems(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	items, err := s.cartRepo.FindByUser(ctx, nil, userID)
	if err != nil {
		return nil, storageError("list cart", err)
	}

	view := &model.CartView{
		Items:    make([]model.CartLine, 0, len(items)),
		Subtotal: decimal.Zero,
	}
	for i := range items {
		line := items[i].ToLine()
		view.Items = append(view.Items, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.TotalItems += line.Quantity
	}
	return view, nil
}
