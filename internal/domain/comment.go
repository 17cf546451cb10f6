package domain

import "time"

// Comment is an immutable note on a ticket. Internal comments are only
// visible to admins and above.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
