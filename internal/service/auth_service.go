package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/config"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	teams      repository.TeamRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	TeamRepo repository.TeamRepository
	Logger   *zap.Logger
}

// RegisterInput describes a new account. SuperAdminID binds admins; TeamID
// binds team managers and users.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         string
	SuperAdminID string
	TeamID       string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		teams:      deps.TeamRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Register creates an account on behalf of actor, bound to its parent.
// The caller is authorized before any referenced record is loaded. Super
// admins cannot be registered here.
func (s *AuthService) Register(ctx context.Context, actor domain.Actor, input RegisterInput) (*domain.User, error) {
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	superAdminID := strings.TrimSpace(input.SuperAdminID)
	if err := auth.AuthorizeRegistration(actor, role, superAdminID); err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin && superAdminID == "" {
		superAdminID = actor.ID
	}

	var parent *domain.User
	if superAdminID != "" {
		parent, err = s.users.GetByID(ctx, superAdminID)
		if err != nil {
			return nil, notFoundOr(err, "super_admin", superAdminID)
		}
	}
	var team *domain.Team
	if id := strings.TrimSpace(input.TeamID); id != "" {
		team, err = s.teams.GetByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, "team", id)
		}
	}
	if err := auth.CheckRegistration(role, parent, team); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, input.Name, input.Email, input.Password, role, parent, team)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("registered_by", actor.ID))
	return user, nil
}

// BootstrapSuperAdmin creates a tenant root. It is only reachable from the
// admin CLI.
func (s *AuthService) BootstrapSuperAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	if err := auth.CheckRegistration(domain.RoleSuperAdmin, nil, nil); err != nil {
		return nil, err
	}
	user, err := s.createUser(ctx, name, email, password, domain.RoleSuperAdmin, nil, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("super admin bootstrapped", zap.String("user_id", user.ID))
	return user, nil
}

// Login authenticates an account and issues a token carrying its role.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.Token, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, domain.Token{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if user.Status != domain.UserStatusActive {
		return nil, domain.Token{}, apperrors.NewUnauthorized("account suspended")
	}
	token, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string) error {
	if err := auth.CheckPasswordPolicy(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return notFoundOr(err, "user", actor.ID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	return apperrors.MapError(s.users.UpdateCredentials(ctx, user))
}

// ListUsers returns accounts; admins and above only.
func (s *AuthService) ListUsers(ctx context.Context, actor domain.Actor, filter repository.UserFilter) ([]domain.User, error) {
	if err := auth.Authorize(actor, domain.ActionListUsers, auth.TicketContext{}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.Role, parent *domain.User, team *domain.Team) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": email})
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if parent != nil {
		user.ParentID = &parent.ID
	}
	if team != nil {
		user.TeamID = &team.ID
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
