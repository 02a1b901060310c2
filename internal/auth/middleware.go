package auth

import (
	"context"
	"strings"

	"cashup-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxPersonnelIDKey = "personnel_id"
	CtxActorKey       = "actor"
)

// ActorLoader resolves the personnel a token was issued to.
type ActorLoader interface {
	Actor(ctx context.Context, personnelID uint) (*models.Personnel, error)
}

// JWTMiddleware authenticates the bearer token and loads the acting
// personnel fresh, so position and ownership changes apply immediately.
func JWTMiddleware(secret string, loader ActorLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		actor, err := loader.Actor(c.UserContext(), claims.PersonnelID)
		if err != nil || actor.BusinessID != claims.BusinessID {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxPersonnelIDKey, actor.ID)
		c.Locals(CtxActorKey, actor)

		return c.Next()
	}
}

// Actor returns the personnel set by JWTMiddleware.
func Actor(c *fiber.Ctx) (*models.Personnel, error) {
	actor, ok := c.Locals(CtxActorKey).(*models.Personnel)
	if !ok || actor == nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
	}
	return actor, nil
}

// RequireOwner rejects requests from personnel who do not own their business.
func RequireOwner() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := Actor(c)
		if err != nil {
			return err
		}
		if !actor.IsOwner {
			return fiber.NewError(fiber.StatusForbidden, "business owner only")
		}
		return c.Next()
	}
}
