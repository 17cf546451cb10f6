package dto

import (
	"time"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// RegisterRequest payload for new accounts. SuperAdminID is required for
// admins; TeamID for team managers and users.
type RegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	SuperAdminID string `json:"super_admin_id"`
	TeamID       string `json:"team_id"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string      `json:"token"`
	Role      domain.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      domain.Role       `json:"role"`
	ParentID  *string           `json:"parent_id,omitempty"`
	TeamID    *string           `json:"team_id,omitempty"`
	Status    domain.UserStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewUserResponse maps a user without credentials.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		ParentID:  u.ParentID,
		TeamID:    u.TeamID,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

// NewAuthResponse maps an issued token.
func NewAuthResponse(t domain.Token) AuthResponse {
	return AuthResponse{Token: t.Value, Role: t.Role, ExpiresAt: t.ExpiresAt}
}
