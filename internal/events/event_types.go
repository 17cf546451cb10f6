package events

import (
	"time"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketProposed EventType = "ticket_proposed"
	EventTicketDecided  EventType = "ticket_decided"
	EventCommentAdded   EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// ActorOf converts a call-chain actor.
func ActorOf(a domain.Actor) Actor {
	return Actor{ID: a.ID, Role: a.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketProposedPayload payload.
type TicketProposedPayload struct {
	CreatorID string                `json:"creator_id"`
	ProjectID string                `json:"project_id"`
	TeamID    string                `json:"team_id"`
	Priority  domain.TicketPriority `json:"priority"`
	Title     string                `json:"title"`
}

// TicketDecidedPayload payload.
type TicketDecidedPayload struct {
	CreatorID string              `json:"creator_id"`
	TeamID    string              `json:"team_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	CreatorID   string `json:"creator_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}
