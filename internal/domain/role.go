package domain

import (
	"fmt"
	"strings"
)

// Role is an actor's position in the authority hierarchy.
type Role string

const (
	RoleSuperAdmin  Role = "superAdmin"
	RoleAdmin       Role = "admin"
	RoleTeamManager Role = "teamManager"
	RoleUser        Role = "user"
)

// roleOrder lists roles from most to least authority.
var roleOrder = []Role{RoleSuperAdmin, RoleAdmin, RoleTeamManager, RoleUser}

var roleRank = func() map[Role]int {
	ranks := make(map[Role]int, len(roleOrder))
	for i, role := range roleOrder {
		ranks[role] = len(roleOrder) - i
	}
	return ranks
}()

// Roles returns every role ordered from highest to lowest authority.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// ParseRole accepts the canonical role names case-insensitively.
func ParseRole(s string) (Role, error) {
	for _, role := range roleOrder {
		if strings.EqualFold(string(role), strings.TrimSpace(s)) {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is a defined role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Outranks reports whether r has strictly more authority than other.
// Undefined roles never outrank anything.
func (r Role) Outranks(other Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	return rr > roleRank[other]
}

// AtLeast reports whether r is other or outranks it.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && (r == other || r.Outranks(other))
}

// Action names an operation guarded by the authorization gate.
type Action string

const (
	ActionPropose         Action = "ticket.propose"
	ActionSubmit          Action = "ticket.submit"
	ActionApprove         Action = "ticket.approve"
	ActionReject          Action = "ticket.reject"
	ActionReadTicket      Action = "ticket.read"
	ActionComment         Action = "comment.add"
	ActionCommentInternal Action = "comment.internal"
	ActionListUsers       Action = "users.list"
	ActionManageOrg       Action = "org.manage"
	ActionRegisterAdmin   Action = "account.register_admin"
	ActionRegisterMember  Action = "account.register_member"
)

var minimumRole = map[Action]Role{
	ActionPropose:         RoleUser,
	ActionSubmit:          RoleUser,
	ActionApprove:         RoleAdmin,
	ActionReject:          RoleAdmin,
	ActionReadTicket:      RoleUser,
	ActionComment:         RoleUser,
	ActionCommentInternal: RoleAdmin,
	ActionListUsers:       RoleAdmin,
	ActionManageOrg:       RoleAdmin,
	ActionRegisterAdmin:   RoleSuperAdmin,
	ActionRegisterMember:  RoleAdmin,
}

// MinimumRole returns the least authoritative role allowed to perform action.
func MinimumRole(action Action) (Role, bool) {
	role, ok := minimumRole[action]
	return role, ok
}

// Actions lists every guarded action in a stable order.
func Actions() []Action {
	return []Action{
		ActionPropose, ActionSubmit, ActionApprove, ActionReject, ActionReadTicket,
		ActionComment, ActionCommentInternal, ActionListUsers, ActionManageOrg,
		ActionRegisterAdmin, ActionRegisterMember,
	}
}

// ParentKind describes what a role must be bound to when it is registered.
type ParentKind string

const (
	ParentNone       ParentKind = ""
	ParentSuperAdmin ParentKind = "superAdmin"
	ParentTeam       ParentKind = "team"
)

// RequiredParent returns the parent binding a new actor of role r needs.
func RequiredParent(r Role) ParentKind {
	switch r {
	case RoleAdmin:
		return ParentSuperAdmin
	case RoleTeamManager, RoleUser:
		return ParentTeam
	default:
		return ParentNone
	}
}
