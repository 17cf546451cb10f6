package dto

import (
	"time"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// NotificationResponse view.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Type      domain.NotificationType `json:"type"`
	TicketID  string                  `json:"ticket_id"`
	Message   string                  `json:"message"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
	ReadAt    *time.Time              `json:"read_at,omitempty"`
}

// NewNotificationResponse maps a notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		TicketID:  n.TicketID,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
