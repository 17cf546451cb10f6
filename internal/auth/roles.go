package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketflow/internal/domain"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// RequireAction ensures the caller's role meets the minimum for action.
func RequireAction(action domain.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFromContext(c)
		if err != nil {
			return err
		}
		if err := Authorize(actor, action, TicketContext{}); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal was loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
