package handler

import (
	"errors"
	"log"

	"go-gearstore/internal/model"
	"go-gearstore/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Identity helpers read what RequireAuth put in the request locals.

func getUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := c.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func getUserName(c *fiber.Ctx) string {
	userName, _ := c.Locals("user_name").(string)
	if userName == "" {
		return "Unknown"
	}
	return userName
}

func getUserEmail(c *fiber.Ctx) string {
	userEmail, _ := c.Locals("user_email").(string)
	return userEmail
}

func isAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals("user_role").(string)
	return role == model.RoleAdmin
}

func actorFrom(c *fiber.Ctx) service.Actor {
	id, _ := c.Locals("user_id").(string)
	return service.Actor{
		ID:    id,
		Name:  getUserName(c),
		Email: getUserEmail(c),
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

// respondError maps the service error taxonomy to an HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUserInactive), errors.Is(err, service.ErrWrongPassword):
		status = fiber.StatusUnauthorized
	}

	if status == fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
