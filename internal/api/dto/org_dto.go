package dto

import (
	"time"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// CreateProjectRequest payload.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectResponse view.
type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamResponse view.
type TeamResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProjectResponse maps a project.
func NewProjectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{ID: p.ID, Name: p.Name, Description: p.Description, CreatedBy: p.CreatedBy, CreatedAt: p.CreatedAt}
}

// NewTeamResponse maps a team.
func NewTeamResponse(t *domain.Team) TeamResponse {
	return TeamResponse{ID: t.ID, ProjectID: t.ProjectID, Name: t.Name, Description: t.Description, CreatedBy: t.CreatedBy, CreatedAt: t.CreatedAt}
}
