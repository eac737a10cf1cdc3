package handler

import (
	"go-gearstore/internal/model"
	"go-gearstore/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

// Checkout POST /api/v1/checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.Checkout(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Order placed", "data": order})
}

// GetMyOrders GET /api/v1/orders
func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	userID, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}

	orders, err := h.service.ListOrders(c.UserContext(), &userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": orders})
}

// GetOrder returns an order to its owner or to an admin
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if order.UserID != userID && !isAdmin(c) {
		return respondError(c, service.ErrForbidden)
	}
	return c.JSON(order)
}

// GetAllOrders GET /api/v1/admin/orders
func (h *OrderHandler) GetAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), nil)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": orders})
}

// UpdateStatus PUT /api/v1/admin/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	orderID, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.UpdateStatus(c.UserContext(), orderID, req.Status, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order status updated", "data": order})
}

// UpdatePaymentStatus PUT /api/v1/admin/orders/:id/payment-status
func (h *OrderHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	orderID, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req struct {
		PaymentStatus model.PaymentStatus `json:"payment_status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.UpdatePaymentStatus(c.UserContext(), orderID, req.PaymentStatus, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment status updated", "data": order})
}
