package dto

import (
	"time"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Department  string `json:"department"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	ProjectID   string `json:"project_id"`
	TeamID      string `json:"team_id"`
}

// DecisionRequest payload for approve and reject.
type DecisionRequest struct {
	Reason              string `json:"reason"`
	Priority            string `json:"priority"`
	ExpectedClosureDate string `json:"expected_closure_date"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Type              string                `json:"type"`
	Category          string                `json:"category"`
	Department        string                `json:"department,omitempty"`
	Priority          domain.TicketPriority `json:"priority"`
	DueDate           time.Time             `json:"due_date"`
	ProjectID         string                `json:"project_id"`
	TeamID            string                `json:"team_id"`
	CreatorID         string                `json:"creator_id"`
	Status            domain.TicketStatus   `json:"status"`
	RejectionReason   *string               `json:"rejection_reason,omitempty"`
	ExpectedClosureAt *time.Time            `json:"expected_closure_at,omitempty"`
	DecidedBy         *string               `json:"decided_by,omitempty"`
	DecidedAt         *time.Time            `json:"decided_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	ModifiedBy        string                `json:"modified_by"`
	Version           int                   `json:"version"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticket_id"`
	AuthorID   string      `json:"author_id"`
	AuthorRole domain.Role `json:"author_role"`
	Content    string      `json:"content"`
	IsInternal bool        `json:"is_internal"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TicketHistoryResponse entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID string                  `json:"changed_by_id"`
	ChangedRole domain.Role             `json:"changed_role"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		Type:              t.Type,
		Category:          t.Category,
		Department:        t.Department,
		Priority:          t.Priority,
		DueDate:           t.DueDate,
		ProjectID:         t.ProjectID,
		TeamID:            t.TeamID,
		CreatorID:         t.CreatorID,
		Status:            t.Status,
		RejectionReason:   t.RejectionReason,
		ExpectedClosureAt: t.ExpectedClosureAt,
		DecidedBy:         t.DecidedBy,
		DecidedAt:         t.DecidedAt,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		ModifiedBy:        t.ModifiedBy,
		Version:           t.Version,
	}
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		AuthorRole: c.AuthorRole,
		Content:    c.Content,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	resp := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			ChangedRole: entry.ChangedRole,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
