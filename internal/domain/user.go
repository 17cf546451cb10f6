package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is any account in the hierarchy. ParentID is set for admins (their
// super admin) and TeamID for team managers and users; neither changes after
// registration.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	ParentID     *string
	TeamID       *string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated caller passed down the workflow call chain.
type Actor struct {
	ID     string
	Role   Role
	TeamID *string
}

// ActorOf builds the call-chain actor for a loaded user.
func ActorOf(u *User) Actor {
	return Actor{ID: u.ID, Role: u.Role, TeamID: u.TeamID}
}

// InTeam reports whether the actor is bound to teamID.
func (a Actor) InTeam(teamID string) bool {
	return a.TeamID != nil && *a.TeamID == teamID
}
