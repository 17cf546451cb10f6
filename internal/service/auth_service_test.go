package service

import (
	"context"
	"testing"

	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

func TestRegisterBindings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		caller domain.Actor
		input  RegisterInput
		code   string
	}{
		{"admin under unknown root", env.superAdmin, RegisterInput{Name: "A", Email: "a3@example.com", Password: "password1", Role: "admin", SuperAdminID: "ghost"}, apperrors.CodeForbidden},
		{"user without team", env.admin, RegisterInput{Name: "U", Email: "u1@example.com", Password: "password1", Role: "user"}, apperrors.CodeValidation},
		{"user with unknown team", env.admin, RegisterInput{Name: "U", Email: "u2@example.com", Password: "password1", Role: "user", TeamID: "ghost"}, apperrors.CodeNotFound},
		{"manager with super admin", env.admin, RegisterInput{Name: "M", Email: "m1@example.com", Password: "password1", Role: "teamManager", TeamID: env.team.ID, SuperAdminID: env.superAdmin.ID}, apperrors.CodeValidation},
		{"super admin", env.superAdmin, RegisterInput{Name: "S", Email: "s1@example.com", Password: "password1", Role: "superAdmin"}, apperrors.CodeForbidden},
		{"unknown role", env.admin, RegisterInput{Name: "X", Email: "x1@example.com", Password: "password1", Role: "owner"}, apperrors.CodeValidation},
		{"short password", env.admin, RegisterInput{Name: "U", Email: "u3@example.com", Password: "short", Role: "user", TeamID: env.team.ID}, apperrors.CodeValidation},
		{"bad email", env.admin, RegisterInput{Name: "U", Email: "not-an-email", Password: "password1", Role: "user", TeamID: env.team.ID}, apperrors.CodeValidation},
		{"duplicate email", env.admin, RegisterInput{Name: "U", Email: "UMA@example.com", Password: "password1", Role: "user", TeamID: env.team.ID}, apperrors.CodeConflict},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, c.caller, c.input)
			if !apperrors.Is(err, c.code) {
				t.Fatalf("Register() error = %v, want %s", err, c.code)
			}
		})
	}

	user, err := env.auth.Register(ctx, env.admin, RegisterInput{Name: "Kim", Email: "kim@example.com", Password: "password1", Role: "teamManager", TeamID: env.otherTeam.ID})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.TeamID == nil || *user.TeamID != env.otherTeam.ID {
		t.Errorf("TeamID = %v, want %q", user.TeamID, env.otherTeam.ID)
	}
	if user.ParentID != nil {
		t.Errorf("ParentID = %v, want nil", user.ParentID)
	}
	if _, token, err := env.auth.Login(ctx, "kim@example.com", "password1"); err != nil || token.Role != domain.RoleTeamManager {
		t.Errorf("Login(kim) = %+v, %v, want teamManager token", token, err)
	}
}

func TestRegisterRequiresAuthority(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "password1", Role: "admin", SuperAdminID: env.superAdmin.ID}
	member := RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "password1", Role: "user", TeamID: env.otherTeam.ID}

	cases := []struct {
		name   string
		caller domain.Actor
		input  RegisterInput
	}{
		{"anonymous admin", domain.Actor{}, admin},
		{"user self-promotes to admin", env.user, admin},
		{"manager registers admin", env.manager, admin},
		{"admin registers admin", env.admin, admin},
		{"anonymous member", domain.Actor{}, member},
		{"user joins another team", env.user, member},
		{"manager adds member", env.manager, member},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, c.caller, c.input)
			if !apperrors.Is(err, apperrors.CodeForbidden) {
				t.Fatalf("Register() error = %v, want FORBIDDEN", err)
			}
		})
	}

	// rejected before the referenced team is looked up
	if _, err := env.auth.Register(ctx, env.user, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "password1", Role: "user", TeamID: "ghost"}); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("Register(unknown team) as user error = %v, want FORBIDDEN", err)
	}
}

func TestRegisterAdminUnderCallingSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, env.superAdmin, RegisterInput{Name: "Bea", Email: "bea@example.com", Password: "password1", Role: "admin"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ParentID == nil || *user.ParentID != env.superAdmin.ID {
		t.Fatalf("ParentID = %v, want %q", user.ParentID, env.superAdmin.ID)
	}
	if user.TeamID != nil {
		t.Fatalf("TeamID = %v, want nil", user.TeamID)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, token, err := env.auth.Login(ctx, "ADA@example.com", "password1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != env.admin.ID {
		t.Errorf("user = %q, want %q", user.ID, env.admin.ID)
	}
	claims, err := env.auth.TokenManager().ParseToken(token.Value)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Role != domain.RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, domain.RoleAdmin)
	}

	if _, _, err := env.auth.Login(ctx, "ada@example.com", "wrong-pass"); !apperrors.Is(err, apperrors.CodeUnauthorized) {
		t.Errorf("Login(wrong password) error = %v, want UNAUTHORIZED", err)
	}
	if _, _, err := env.auth.Login(ctx, "nobody@example.com", "password1"); !apperrors.Is(err, apperrors.CodeUnauthorized) {
		t.Errorf("Login(unknown) error = %v, want UNAUTHORIZED", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.auth.ChangePassword(ctx, env.user, "wrong-pass", "newpassword"); !apperrors.Is(err, apperrors.CodeUnauthorized) {
		t.Fatalf("ChangePassword(wrong) error = %v, want UNAUTHORIZED", err)
	}
	if err := env.auth.ChangePassword(ctx, env.user, "password1", "newpassword"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, _, err := env.auth.Login(ctx, "uma@example.com", "newpassword"); err != nil {
		t.Fatalf("Login(new password) error = %v", err)
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.ListUsers(ctx, env.manager, repository.UserFilter{}); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("ListUsers() as manager error = %v, want FORBIDDEN", err)
	}
	users, err := env.auth.ListUsers(ctx, env.admin, repository.UserFilter{Limit: 100})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 6 {
		t.Fatalf("users = %d, want 6", len(users))
	}
}

func TestOrgManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.org.CreateProject(ctx, env.manager, "Mercury", ""); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("CreateProject() as manager error = %v, want FORBIDDEN", err)
	}
	if _, err := env.org.CreateProject(ctx, env.admin, " ", ""); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("CreateProject(blank) error = %v, want VALIDATION_FAILED", err)
	}
	if _, err := env.org.CreateTeam(ctx, env.admin, "ghost", "Ops", ""); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("CreateTeam(unknown project) error = %v, want NOT_FOUND", err)
	}

	projectID := env.project.ID
	teams, err := env.org.ListTeams(ctx, &projectID)
	if err != nil {
		t.Fatalf("ListTeams() error = %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(teams))
	}
	projects, err := env.org.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(projects))
	}
}
