package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Actor domain.Actor
	User  *domain.User
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The role claim is
// trusted as issued; the account is loaded only for its team binding.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.ActorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewUnauthorized("account suspended")
	}

	c.Locals(principalKey, &Principal{
		Actor: domain.Actor{ID: user.ID, Role: claims.Role, TeamID: user.TeamID},
		User:  user,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// ActorFromContext returns the call-chain actor or an unauthorized error.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor, nil
}
