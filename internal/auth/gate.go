package auth

import (
	"fmt"

	"github.com/spec-kit/ticketflow/internal/domain"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// TicketContext is what the gate knows about the ticket an action targets.
// A zero value means the action is not tied to a ticket.
type TicketContext struct {
	TicketID  string
	CreatorID string
	TeamID    string
	Status    domain.TicketStatus
}

// ContextOf builds the gate view of a ticket.
func ContextOf(t *domain.Ticket) TicketContext {
	return TicketContext{TicketID: t.ID, CreatorID: t.CreatorID, TeamID: t.TeamID, Status: t.Status}
}

// CanTransition answers whether role may perform action in tc. Roles below
// admin are further scoped to their own tickets and teams by Authorize.
func CanTransition(role domain.Role, action domain.Action, tc TicketContext) bool {
	minimum, ok := domain.MinimumRole(action)
	if !ok || !role.AtLeast(minimum) {
		return false
	}
	if domain.IsTransition(action) && tc.Status != "" {
		if _, legal := domain.TransitionTarget(tc.Status, action); !legal {
			return false
		}
	}
	return true
}

// Authorize returns a ForbiddenError unless actor may perform action.
func Authorize(actor domain.Actor, action domain.Action, tc TicketContext) error {
	minimum, ok := domain.MinimumRole(action)
	if !ok {
		return apperrors.NewForbidden(fmt.Sprintf("unknown action %s", action))
	}
	if !actor.Role.AtLeast(minimum) {
		return apperrors.NewDomainError(apperrors.CodeForbidden,
			fmt.Sprintf("%s requires role %s or above", action, minimum), 403,
			map[string]any{"action": string(action), "required_role": string(minimum), "role": string(actor.Role)})
	}
	if tc.TicketID == "" {
		return nil
	}
	switch action {
	case domain.ActionReadTicket, domain.ActionComment:
		if !canRead(actor, tc) {
			return apperrors.NewForbidden("ticket outside caller scope")
		}
	case domain.ActionSubmit:
		if actor.ID != tc.CreatorID && !actor.Role.AtLeast(domain.RoleAdmin) {
			return apperrors.NewForbidden("only the creator or an admin may submit")
		}
	}
	return nil
}

// CheckDecision orders the decision guards: a terminal ticket fails with
// AlreadyDecided for every role before authority is looked at.
func CheckDecision(actor domain.Actor, tc TicketContext, action domain.Action) error {
	if action != domain.ActionApprove && action != domain.ActionReject {
		return apperrors.NewValidationError("decision must be approve or reject", map[string]any{"action": string(action)})
	}
	if tc.Status.Terminal() {
		return apperrors.NewAlreadyDecided(tc.TicketID, string(tc.Status))
	}
	if err := Authorize(actor, action, tc); err != nil {
		return err
	}
	if !CanTransition(actor.Role, action, tc) {
		return apperrors.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("cannot %s ticket in status %s", action, tc.Status), 400, nil)
	}
	return nil
}

// CanProposeFor reports whether actor may raise a ticket for teamID.
func CanProposeFor(actor domain.Actor, teamID string) error {
	if err := Authorize(actor, domain.ActionPropose, TicketContext{}); err != nil {
		return err
	}
	if actor.Role.AtLeast(domain.RoleAdmin) || actor.InTeam(teamID) {
		return nil
	}
	return apperrors.NewForbidden("tickets may only be proposed for your own team")
}

// CanSeeInternal reports whether role may read internal comments.
func CanSeeInternal(role domain.Role) bool {
	minimum, _ := domain.MinimumRole(domain.ActionCommentInternal)
	return role.AtLeast(minimum)
}

// AuthorizeRegistration decides whether actor may create an account with
// role. Admins are created by the super admin they will hang under;
// team-bound accounts by an admin or above.
func AuthorizeRegistration(actor domain.Actor, role domain.Role, superAdminID string) error {
	switch domain.RequiredParent(role) {
	case domain.ParentSuperAdmin:
		if err := Authorize(actor, domain.ActionRegisterAdmin, TicketContext{}); err != nil {
			return err
		}
		if superAdminID != "" && superAdminID != actor.ID {
			return apperrors.NewForbidden("admins can only be registered under the calling super admin")
		}
		return nil
	case domain.ParentTeam:
		return Authorize(actor, domain.ActionRegisterMember, TicketContext{})
	default:
		return apperrors.NewForbidden("super admins are created by bootstrap only")
	}
}

// CheckRegistration enforces the parent binding a new account needs. parent
// is the loaded super admin for admins; team is the loaded team for team
// managers and users.
func CheckRegistration(role domain.Role, parent *domain.User, team *domain.Team) error {
	if !role.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": string(role)})
	}
	switch domain.RequiredParent(role) {
	case domain.ParentSuperAdmin:
		if parent == nil {
			return apperrors.NewValidationError("admin must reference a super admin", map[string]any{"field": "super_admin_id"})
		}
		if parent.Role != domain.RoleSuperAdmin {
			return apperrors.NewValidationError("referenced parent is not a super admin", map[string]any{"super_admin_id": parent.ID})
		}
		if team != nil {
			return apperrors.NewValidationError("admin cannot be bound to a team", nil)
		}
	case domain.ParentTeam:
		if team == nil {
			return apperrors.NewValidationError(fmt.Sprintf("%s must reference a team", role), map[string]any{"field": "team_id"})
		}
		if parent != nil {
			return apperrors.NewValidationError(fmt.Sprintf("%s cannot reference a super admin", role), nil)
		}
	case domain.ParentNone:
		if parent != nil || team != nil {
			return apperrors.NewValidationError("super admin has no parent", nil)
		}
	}
	return nil
}

func canRead(actor domain.Actor, tc TicketContext) bool {
	if actor.Role.AtLeast(domain.RoleAdmin) {
		return true
	}
	return actor.ID == tc.CreatorID || actor.InTeam(tc.TeamID)
}
