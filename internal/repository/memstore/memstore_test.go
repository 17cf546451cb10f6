package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
)

func TestApplyTransitionChecksVersion(t *testing.T) {
	ctx := context.Background()
	store := New()
	ticket := &domain.Ticket{Title: "t", Status: domain.TicketStatusPending, DueDate: time.Now()}
	if err := store.Tickets().Create(ctx, ticket, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Version != 1 {
		t.Fatalf("Version = %d, want 1", ticket.Version)
	}

	first := *ticket
	first.Status = domain.TicketStatusApproved
	if err := store.Tickets().ApplyTransition(ctx, &first, 1, &domain.TicketHistory{ChangeType: domain.ChangeTypeDecision}); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("Version = %d, want 2", first.Version)
	}

	second := *ticket
	second.Status = domain.TicketStatusRejected
	err := store.Tickets().ApplyTransition(ctx, &second, 1, nil)
	if !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	stored, _ := store.Tickets().GetByID(ctx, ticket.ID)
	if stored.Status != domain.TicketStatusApproved {
		t.Fatalf("Status = %s, want APPROVED", stored.Status)
	}
	history, _ := store.History().ListByTicket(ctx, ticket.ID)
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
}

func TestMissingRecordsReturnNoRows(t *testing.T) {
	ctx := context.Background()
	store := New()
	if _, err := store.Tickets().GetByID(ctx, "nope"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("ticket err = %v", err)
	}
	if err := store.Comments().Append(ctx, &domain.Comment{TicketID: "nope"}); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("comment err = %v", err)
	}
	if _, err := store.Notifications().MarkRead(ctx, "nope", "u1"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("notification err = %v", err)
	}
}

func TestMarkReadOnlyForRecipient(t *testing.T) {
	ctx := context.Background()
	store := New()
	n := &domain.Notification{RecipientID: "u1", Type: domain.NotificationCommentAdded, TicketID: "t1"}
	if err := store.Notifications().Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Notifications().MarkRead(ctx, n.ID, "u2"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("foreign mark err = %v, want ErrNoRows", err)
	}
	got, err := store.Notifications().MarkRead(ctx, n.ID, "u1")
	if err != nil || !got.Read || got.ReadAt == nil {
		t.Fatalf("MarkRead = %+v, %v", got, err)
	}
	unread, _ := store.Notifications().ListByRecipient(ctx, "u1", true, 0, 0)
	if len(unread) != 0 {
		t.Fatalf("unread = %d, want 0", len(unread))
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.Users().Create(ctx, &domain.User{Email: "a@example.com", Role: domain.RoleUser}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.Users().Create(ctx, &domain.User{Email: "A@example.com", Role: domain.RoleUser})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}
