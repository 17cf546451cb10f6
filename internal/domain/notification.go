package domain

import "time"

// NotificationType identifies why a notification was raised.
type NotificationType string

const (
	NotificationTicketProposed NotificationType = "ticket_proposed"
	NotificationTicketApproved NotificationType = "ticket_approved"
	NotificationTicketRejected NotificationType = "ticket_rejected"
	NotificationCommentAdded   NotificationType = "comment_added"
)

// Notification targets a single recipient. Only Read changes after creation.
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	TicketID    string
	Message     string
	Read        bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}
