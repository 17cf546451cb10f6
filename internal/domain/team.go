package domain

import "time"

// Team is a working group inside a project.
type Team struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
