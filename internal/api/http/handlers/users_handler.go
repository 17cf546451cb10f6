package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketflow/internal/api/dto"
	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
	"github.com/spec-kit/ticketflow/internal/service"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// UsersHandler exposes registration, login and account listing.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/register. The caller must be signed in; the
// new account logs in separately.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		return apperrors.NewValidationError("name, email, password, role required", nil)
	}

	user, err := h.auth.Register(c.UserContext(), actor, service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		SuperAdminID: req.SuperAdminID,
		TeamID:       req.TeamID,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.NewAuthResponse(token),
		},
	})
}

// ChangePassword handles POST /auth/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListUsers handles GET /users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter := repository.UserFilter{TeamID: optionalQuery(c, "team_id")}
	for _, raw := range splitQuery(c, "role") {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return apperrors.NewValidationError("unknown role", map[string]any{"role": raw})
		}
		filter.Roles = append(filter.Roles, role)
	}
	filter.Limit, filter.Offset = pageQuery(c)

	users, err := h.auth.ListUsers(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
