package handler

import (
	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// CreateUnit registers one serialized unit of a product
// POST /api/v1/admin/units
func (h *InventoryHandler) CreateUnit(c *fiber.Ctx) error {
	var req service.CreateUnitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	unit, err := h.service.CreateUnit(c.UserContext(), &req, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Unit created", "data": unit})
}

// GetUnits lists units, optionally by product_id and status
// GET /api/v1/admin/units
func (h *InventoryHandler) GetUnits(c *fiber.Ctx) error {
	var filter repository.UnitFilter
	if v := c.Query("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid product_id"})
		}
		filter.ProductID = &id
	}
	if v := c.Query("status"); v != "" {
		status := model.UnitStatus(v)
		filter.Status = &status
	}

	units, err := h.service.ListUnits(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": units})
}

// GetUnit GET /api/v1/admin/units/:id
func (h *InventoryHandler) GetUnit(c *fiber.Ctx) error {
	unitID, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid unit ID"})
	}

	unit, err := h.service.GetUnit(c.UserContext(), unitID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(unit)
}

// GetOrderUnits GET /api/v1/admin/orders/:id/units
func (h *InventoryHandler) GetOrderUnits(c *fiber.Ctx) error {
	orderID, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	units, err := h.service.ListOrderUnits(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": units})
}

// UpdateUnitStatus PUT /api/v1/admin/units/:id/status
func (h *InventoryHandler) UpdateUnitStatus(c *fiber.Ctx) error {
	unitID, err := paramUUID(c, "id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid unit ID"})
	}

	var req service.UpdateUnitStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	unit, err := h.service.UpdateUnitStatus(c.UserContext(), unitID, &req, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unit updated", "data": unit})
}
