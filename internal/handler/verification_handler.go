package handler

import (
	"errors"
	"time"

	"go-gearstore/internal/repository"
	"go-gearstore/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type VerificationHandler struct {
	service service.AuthCodeService
}

func NewVerificationHandler(s service.AuthCodeService) *VerificationHandler {
	return &VerificationHandler{service: s}
}

// Verify checks an authenticity code. Unknown codes are an expected public
// input and answer 200 with verified=false.
// GET|POST /api/v1/verify/:code
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	code := c.Params("code")
	metadata := map[string]interface{}{
		"ip":           c.IP(),
		"user_agent":   c.Get(fiber.HeaderUserAgent),
		"method":       c.Method(),
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	}

	result, err := h.service.Verify(c.UserContext(), code, metadata)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.JSON(fiber.Map{
				"verified": false,
				"code":     code,
				"message":  "Code not recognised",
			})
		}
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetMyCodes lists the signed-in customer's codes
// GET /api/v1/codes
func (h *VerificationHandler) GetMyCodes(c *fiber.Ctx) error {
	userID, ok := getUserID(c)
	if !ok {
		return unauthorized(c)
	}

	filter := repository.CodeFilter{UserID: &userID}
	if v := c.Query("order_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid order_id"})
		}
		filter.OrderID = &id
	}

	codes, err := h.service.ListCodes(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": codes})
}

// GetCodes lists codes by order_id and/or user_id
// GET /api/v1/admin/codes
func (h *VerificationHandler) GetCodes(c *fiber.Ctx) error {
	var filter repository.CodeFilter
	if v := c.Query("order_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid order_id"})
		}
		filter.OrderID = &id
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid user_id"})
		}
		filter.UserID = &id
	}

	codes, err := h.service.ListCodes(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": codes})
}
