package middleware

import (
	"strings"

	"go-gearstore/internal/model"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the bearer token, checks it is the user's current
// session, and stores the identity in the request locals.
func RequireAuth(tokens *jwt.Manager, userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, user, reason := currentSession(c, tokens, userRepo, parts[1])
		if reason != "" {
			return c.Status(401).JSON(fiber.Map{"error": reason})
		}

		c.Locals("user_id", claims.UserID.String())
		c.Locals("user_email", claims.Email)
		c.Locals("user_name", claims.Name)
		c.Locals("user_role", user.Role)

		return c.Next()
	}
}

// WebSocketIdentity guards the websocket upgrade. A ?token= must be the
// user's current session and ties the socket to that user through the
// ws_user_id local; without one the socket stays anonymous.
func WebSocketIdentity(tokens *jwt.Manager, userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		if token := c.Query("token"); token != "" {
			claims, _, reason := currentSession(c, tokens, userRepo, token)
			if reason != "" {
				return c.Status(401).JSON(fiber.Map{"error": reason})
			}
			c.Locals("ws_user_id", claims.UserID.String())
		}
		return c.Next()
	}
}

// currentSession returns the token's claims and user, or the reason the
// token is not a live session.
func currentSession(c *fiber.Ctx, tokens *jwt.Manager, userRepo repository.UserRepository, token string) (*jwt.Claims, *model.User, string) {
	claims, err := tokens.ValidateToken(token)
	if err != nil {
		return nil, nil, "Invalid or expired token"
	}

	user, err := userRepo.FindByID(c.UserContext(), claims.UserID)
	if err != nil {
		return nil, nil, "User not found"
	}
	if !user.IsActive {
		return nil, nil, "User account is inactive"
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, "Session expired (logged in on another device)"
	}
	return claims, user, ""
}

// RequireRole allows the request through only when the verified role of the
// signed-in user is one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("user_role").(string)
		if !ok || role == "" {
			return c.Status(403).JSON(fiber.Map{"error": "No role found"})
		}

		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires role " + strings.Join(roles, " or "),
		})
	}
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin() fiber.Handler {
	return RequireRole(model.RoleAdmin)
}
