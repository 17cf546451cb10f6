package domain

import "time"

// Project owns teams and the tickets raised against them.
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
