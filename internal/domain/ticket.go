package domain

import (
	"errors"
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusCreated  TicketStatus = "CREATED"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusApproved TicketStatus = "APPROVED"
	TicketStatusRejected TicketStatus = "REJECTED"
)

// Valid reports whether s is a defined lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusCreated, TicketStatusPending, TicketStatusApproved, TicketStatusRejected:
		return true
	default:
		return false
	}
}

// AwaitingDecision is true while a ticket can still be approved or rejected.
func (s TicketStatus) AwaitingDecision() bool {
	switch s {
	case TicketStatusCreated, TicketStatusPending:
		return true
	default:
		return false
	}
}

// Terminal is true once no further transition is allowed.
func (s TicketStatus) Terminal() bool {
	switch s {
	case TicketStatusApproved, TicketStatusRejected:
		return true
	default:
		return false
	}
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a defined priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	default:
		return false
	}
}

// Ticket is the aggregate for work requests awaiting approval.
type Ticket struct {
	ID                string
	Title             string
	Description       string
	Type              string
	Category          string
	Department        string
	Priority          TicketPriority
	DueDate           time.Time
	ProjectID         string
	TeamID            string
	CreatorID         string
	Status            TicketStatus
	RejectionReason   *string
	ExpectedClosureAt *time.Time
	DecidedBy         *string
	DecidedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ModifiedBy        string
	Version           int
}

type transitionRule struct {
	from []TicketStatus
	to   TicketStatus
}

var transitions = map[Action]transitionRule{
	ActionSubmit:  {from: []TicketStatus{TicketStatusCreated}, to: TicketStatusPending},
	ActionApprove: {from: []TicketStatus{TicketStatusCreated, TicketStatusPending}, to: TicketStatusApproved},
	ActionReject:  {from: []TicketStatus{TicketStatusCreated, TicketStatusPending}, to: TicketStatusRejected},
}

// ErrInvalidTransition is returned when an action does not apply to a status.
var ErrInvalidTransition = errors.New("invalid status transition")

// InvalidTransitionError carries the rejected transition.
type InvalidTransitionError struct {
	From   TicketStatus
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s ticket in status %s", e.Action, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsTransition reports whether action changes ticket status.
func IsTransition(action Action) bool {
	_, ok := transitions[action]
	return ok
}

// TransitionTarget returns the status action leads to when legal from current.
func TransitionTarget(current TicketStatus, action Action) (TicketStatus, bool) {
	rule, ok := transitions[action]
	if !ok {
		return "", false
	}
	for _, from := range rule.from {
		if from == current {
			return rule.to, true
		}
	}
	return "", false
}

// SetStatus applies action to the ticket and stamps the audit fields.
func (t *Ticket) SetStatus(action Action, actorID string, now time.Time) error {
	next, ok := TransitionTarget(t.Status, action)
	if !ok {
		return &InvalidTransitionError{From: t.Status, Action: action}
	}
	t.Status = next
	t.ModifiedBy = actorID
	t.UpdatedAt = now
	if next.Terminal() {
		t.DecidedBy = &actorID
		decidedAt := now
		t.DecidedAt = &decidedAt
	}
	return nil
}
