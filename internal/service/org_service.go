package service

import (
	"context"
	"strings"

	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// OrgService manages projects and the teams inside them.
type OrgService struct {
	projects repository.ProjectRepository
	teams    repository.TeamRepository
}

// OrgDependencies bundles repositories for the org service.
type OrgDependencies struct {
	ProjectRepo repository.ProjectRepository
	TeamRepo    repository.TeamRepository
}

// NewOrgService constructs the service.
func NewOrgService(deps OrgDependencies) *OrgService {
	return &OrgService{projects: deps.ProjectRepo, teams: deps.TeamRepo}
}

// CreateProject creates a project; admins and above only.
func (s *OrgService) CreateProject(ctx context.Context, actor domain.Actor, name, description string) (*domain.Project, error) {
	if err := auth.Authorize(actor, domain.ActionManageOrg, auth.TicketContext{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	project := &domain.Project{Name: name, Description: strings.TrimSpace(description), CreatedBy: actor.ID}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	return project, nil
}

// ListProjects lists every project.
func (s *OrgService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, nil
}

// CreateTeam adds a team to an existing project; admins and above only.
func (s *OrgService) CreateTeam(ctx context.Context, actor domain.Actor, projectID, name, description string) (*domain.Team, error) {
	if err := auth.Authorize(actor, domain.ActionManageOrg, auth.TicketContext{}); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, notFoundOr(err, "project", projectID)
	}
	team := &domain.Team{ProjectID: projectID, Name: name, Description: strings.TrimSpace(description), CreatedBy: actor.ID}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// ListTeams lists teams, optionally within one project.
func (s *OrgService) ListTeams(ctx context.Context, projectID *string) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx, projectID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if teams == nil {
		teams = []domain.Team{}
	}
	return teams, nil
}
