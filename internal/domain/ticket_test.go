package domain

import (
	"errors"
	"testing"
	"time"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   TicketStatus
		action Action
		to     TicketStatus
		ok     bool
	}{
		{TicketStatusCreated, ActionSubmit, TicketStatusPending, true},
		{TicketStatusPending, ActionSubmit, "", false},
		{TicketStatusCreated, ActionApprove, TicketStatusApproved, true},
		{TicketStatusPending, ActionApprove, TicketStatusApproved, true},
		{TicketStatusCreated, ActionReject, TicketStatusRejected, true},
		{TicketStatusPending, ActionReject, TicketStatusRejected, true},
		{TicketStatusApproved, ActionApprove, "", false},
		{TicketStatusApproved, ActionReject, "", false},
		{TicketStatusRejected, ActionApprove, "", false},
		{TicketStatusPending, ActionComment, "", false},
	}
	for _, tc := range cases {
		got, ok := TransitionTarget(tc.from, tc.action)
		if ok != tc.ok || got != tc.to {
			t.Fatalf("TransitionTarget(%s, %s) = %q, %v; want %q, %v", tc.from, tc.action, got, ok, tc.to, tc.ok)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []TicketStatus{TicketStatusCreated, TicketStatusPending} {
		if !s.AwaitingDecision() || s.Terminal() {
			t.Fatalf("%s should await decision", s)
		}
	}
	for _, s := range []TicketStatus{TicketStatusApproved, TicketStatusRejected} {
		if s.AwaitingDecision() || !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if TicketStatus("OPEN").Valid() {
		t.Fatal("OPEN is not a lifecycle state")
	}
}

func TestSetStatusStampsAuditFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ticket := &Ticket{ID: "t1", Status: TicketStatusPending}
	if err := ticket.SetStatus(ActionApprove, "admin-1", now); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if ticket.Status != TicketStatusApproved || ticket.ModifiedBy != "admin-1" {
		t.Fatalf("ticket = %+v", ticket)
	}
	if ticket.DecidedBy == nil || *ticket.DecidedBy != "admin-1" || ticket.DecidedAt == nil || !ticket.DecidedAt.Equal(now) {
		t.Fatalf("decision stamp missing: %+v", ticket)
	}

	err := ticket.SetStatus(ActionReject, "sa-1", now)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) || !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
	if ticket.Status != TicketStatusApproved || ticket.ModifiedBy != "admin-1" {
		t.Fatal("failed transition must not mutate the ticket")
	}
}
