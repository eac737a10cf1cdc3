package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/internal/ws"
	"go-gearstore/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// orderNumberAttempts bounds retries when a generated order number collides.
const orderNumberAttempts = 3

type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, req *CheckoutRequest) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, actor Actor) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status model.PaymentStatus, actor Actor) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error)
}

type CheckoutRequest struct {
	ShippingAddress map[string]interface{} `json:"shipping_address" validate:"required"`
	BillingAddress  map[string]interface{} `json:"billing_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=card paypal bank_transfer cod"`
}

type orderService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	userRepo  repository.UserRepository
	inventory InventoryService
	codes     AuthCodeService
	notifier  Notifier
	wsHub     *ws.Hub
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	inventory InventoryService,
	codes AuthCodeService,
	notifier Notifier,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		userRepo:  userRepo,
		inventory: inventory,
		codes:     codes,
		notifier:  notifier,
		wsHub:     hub,
	}
}

// checkoutResult carries what a committed checkout needs for its side effects.
type checkoutResult struct {
	order    *model.Order
	lines    []OrderLineNotice
	soldFrom []uuid.UUID
	degraded int
}

// Checkout turns the user's cart into an order in one transaction: the
// order and its items, one claimed unit and one code per line, and the
// emptied cart commit together or not at all. A line with no unit left
// still gets a code, with an empty serial.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, req *CheckoutRequest) (*model.Order, error) {
	if err := validator.First(req); err != nil {
		return nil, validationError("%v", err)
	}
	if len(req.ShippingAddress) == 0 {
		return nil, validationError("shipping address is required")
	}
	billing := req.BillingAddress
	if len(billing) == 0 {
		billing = req.ShippingAddress
	}

	var (
		result *checkoutResult
		err    error
	)
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		result, err = s.checkoutOnce(ctx, userID, req.ShippingAddress, billing, req.PaymentMethod)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		log.Printf("checkout: order number collision, retrying (attempt %d)", attempt)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: could not allocate a unique order number", ErrStorage)
		}
		return nil, err
	}

	if result.degraded > 0 {
		log.Printf("checkout: order %s has %d line(s) without an assigned unit", result.order.OrderNumber, result.degraded)
	}
	for _, productID := range result.soldFrom {
		s.inventory.PublishStock(ctx, productID, "unit_sold", nil)
	}
	s.notifyOrder(ctx, userID, result)

	order, err := s.orderRepo.FindByID(ctx, result.order.ID)
	if err != nil {
		return nil, storageError("order", err)
	}
	return order, nil
}

func (s *orderService) checkoutOnce(ctx context.Context, userID uuid.UUID, shipping, billing map[string]interface{}, method string) (*checkoutResult, error) {
	result := &checkoutResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		items, err := s.cartRepo.LockByUser(ctx, tx, userID)
		if err != nil {
			return storageError("load cart", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		for _, item := range items {
			if item.Product == nil || !item.Product.IsActive {
				return validationError("a product in the cart is no longer available")
			}
			total = total.Add(item.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		order := &model.Order{
			UserID:          userID,
			OrderNumber:     newOrderNumber(time.Now()),
			Status:          model.OrderPending,
			TotalAmount:     total,
			ShippingAddress: datatypes.JSONMap(shipping),
			BillingAddress:  datatypes.JSONMap(billing),
			PaymentMethod:   method,
			PaymentStatus:   model.PaymentPending,
		}
		order.CreatedBy = userID.String()
		order.UpdatedBy = userID.String()

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			return storageError("create order", err)
		}

		orderItems := make([]model.OrderItem, len(items))
		for i, item := range items {
			orderItems[i] = model.OrderItem{
				OrderID:      order.ID,
				ProductID:    item.ProductID,
				Quantity:     item.Quantity,
				UnitPrice:    item.Product.EffectivePrice(),
				ProductName:  item.Product.Name,
				ProductImage: item.Product.ImageURL,
			}
		}
		if err := s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
			return storageError("create order items", err)
		}

		sold := make(map[uuid.UUID]bool)
		for i := range orderItems {
			line := &orderItems[i]
			notice := OrderLineNotice{
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
			}

			issue := IssueCodeRequest{
				OrderID:     order.ID,
				OrderItemID: &line.ID,
				ProductID:   line.ProductID,
				UserID:      userID,
			}
			unit, err := s.inventory.AssignUnit(ctx, tx, line.ProductID, order.ID)
			switch {
			case errors.Is(err, ErrOutOfStock):
				result.degraded++
			case err != nil:
				return err
			default:
				issue.InventoryUnitID = &unit.ID
				issue.SerialNumber = unit.SerialNumber
				notice.SerialNumber = unit.SerialNumber
				notice.SecurityCodeImage = unit.SecurityCodeImage
				notice.CertificateURL = unit.CertificateURL
				if !sold[line.ProductID] {
					sold[line.ProductID] = true
					result.soldFrom = append(result.soldFrom, line.ProductID)
				}
			}

			code, err := s.codes.Issue(ctx, tx, issue)
			if err != nil {
				return err
			}
			presented := s.codes.Present(code)
			notice.Code = code.Code
			notice.VerifyURL = presented.VerifyURL
			notice.QRImageURL = presented.QRImageURL
			result.lines = append(result.lines, notice)
		}

		if err := s.cartRepo.ClearByUser(ctx, tx, userID); err != nil {
			return storageError("clear cart", err)
		}

		order.Items = orderItems
		result.order = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *orderService) notifyOrder(ctx context.Context, userID uuid.UUID, result *checkoutResult) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user.Email == "" {
		return
	}
	if err := s.notifier.SendOrderConfirmation(ctx, user.Email, result.order, result.lines); err != nil {
		log.Printf("order confirmation for %s: %v", result.order.OrderNumber, err)
	}
}

// newOrderNumber is ORD-<yyyymmddHHMMSSmmm>-<6 random hex>.
func newOrderNumber(now time.Time) string {
	stamp := strings.Replace(now.UTC().Format("20060102150405.000"), ".", "", 1)
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", stamp, suffix)
}

// UpdateStatus moves an order along pending, processing, shipped and
// delivered, or to cancelled from any non-terminal state. Setting the current
// status again is a no-op. Delivering an order retires all of its codes.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, actor Actor) (*model.Order, error) {
	if !status.Valid() {
		return nil, validationError("unknown order status %q", status)
	}

	var (
		previous model.OrderStatus
		owner    uuid.UUID
		changed  bool
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.orderRepo.LockByID(ctx, tx, orderID)
		if err != nil {
			return storageError("order", err)
		}
		previous, owner = order.Status, order.UserID

		if order.Status == status {
			return nil
		}
		if !order.Status.CanBecome(status) {
			return fmt.Errorf("%w: order %s cannot go from %s to %s", ErrInvalidTransition, order.OrderNumber, order.Status, status)
		}

		ok, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, order.Status, status)
		if err != nil {
			return storageError("update order status", err)
		}
		if !ok {
			return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, order.OrderNumber)
		}
		changed = true

		if status == model.OrderDelivered {
			codes, err := s.codes.ListByOrder(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			for _, c := range codes {
				if err := s.codes.Deactivate(ctx, tx, c.Code); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Printf("order %s: %s -> %s by %s", orderID, previous, status, actor.Email)
		s.wsHub.SendToUsers([]string{owner.String()}, map[string]interface{}{
			"type":       "order_status",
			"order_id":   orderID,
			"old_status": previous,
			"status":     status,
		})
	}
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status model.PaymentStatus, actor Actor) (*model.Order, error) {
	if !status.Valid() {
		return nil, validationError("unknown payment status %q", status)
	}
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, storageError("update payment status", err)
	}
	log.Printf("order %s: payment %s -> %s by %s", order.OrderNumber, order.PaymentStatus, status, actor.Email)

	s.wsHub.SendToUsers([]string{order.UserID.String()}, map[string]interface{}{
		"type":           "payment_status",
		"order_id":       orderID,
		"payment_status": status,
	})
	return s.GetOrder(ctx, orderID)
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storageError("order", err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID *uuid.UUID) ([]model.Order, error) {
	orders, err := s.orderRepo.FindAll(ctx, userID)
	if err != nil {
		return nil, storageError("list orders", err)
	}
	return orders, nil
}
