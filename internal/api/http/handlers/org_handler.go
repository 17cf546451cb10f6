package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketflow/internal/api/dto"
	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/service"
)

// OrgHandler manages projects and teams.
type OrgHandler struct {
	org *service.OrgService
}

// NewOrgHandler constructs handler.
func NewOrgHandler(orgService *service.OrgService) *OrgHandler {
	return &OrgHandler{org: orgService}
}

// CreateProject POST /projects.
func (h *OrgHandler) CreateProject(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	project, err := h.org.CreateProject(c.UserContext(), actor, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProjectResponse(project)})
}

// ListProjects GET /projects.
func (h *OrgHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := h.org.ListProjects(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.ProjectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, dto.NewProjectResponse(&projects[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateTeam POST /projects/:id/teams.
func (h *OrgHandler) CreateTeam(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.org.CreateTeam(c.UserContext(), actor, c.Params("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTeamResponse(team)})
}

// ListTeams GET /teams.
func (h *OrgHandler) ListTeams(c *fiber.Ctx) error {
	teams, err := h.org.ListTeams(c.UserContext(), optionalQuery(c, "project_id"))
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, dto.NewTeamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
