package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spec-kit/ticketflow/internal/domain"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

func TestProposeCreatesTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.propose(t, env.user)

	if ticket.Status != domain.TicketStatusCreated {
		t.Errorf("Status = %q, want %q", ticket.Status, domain.TicketStatusCreated)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("Priority = %q, want %q", ticket.Priority, domain.TicketPriorityMedium)
	}
	if ticket.CreatorID != env.user.ID {
		t.Errorf("CreatorID = %q, want %q", ticket.CreatorID, env.user.ID)
	}
	if ticket.ModifiedBy != env.user.ID {
		t.Errorf("ModifiedBy = %q, want %q", ticket.ModifiedBy, env.user.ID)
	}

	history, err := env.tickets.History(context.Background(), env.user, ticket.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].ChangeType != domain.ChangeTypeCreated {
		t.Fatalf("history = %+v, want one CREATED entry", history)
	}
}

func TestProposeNotifiesApprovers(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.propose(t, env.user)

	for _, approver := range []domain.Actor{env.superAdmin, env.admin} {
		if got := countType(env.inbox(t, approver), ticket.ID, domain.NotificationTicketProposed); got != 1 {
			t.Errorf("approver %s proposed notifications = %d, want 1", approver.Role, got)
		}
	}
	if got := len(env.inbox(t, env.user)); got != 0 {
		t.Errorf("creator notifications = %d, want 0", got)
	}
	if got := len(env.inbox(t, env.manager)); got != 0 {
		t.Errorf("manager notifications = %d, want 0", got)
	}
}

func TestProposeValidation(t *testing.T) {
	env := newTestEnv(t)
	valid := func() ProposeInput {
		return ProposeInput{
			Title:     "Printer",
			Type:      "hardware",
			Category:  "equipment",
			DueDate:   "2026-03-02T18:00:00Z",
			ProjectID: env.project.ID,
			TeamID:    env.team.ID,
		}
	}
	cases := []struct {
		name  string
		actor domain.Actor
		edit  func(*ProposeInput)
		code  string
	}{
		{"missing title", env.user, func(in *ProposeInput) { in.Title = " " }, apperrors.CodeValidation},
		{"missing due date", env.user, func(in *ProposeInput) { in.DueDate = "" }, apperrors.CodeValidation},
		{"malformed due date", env.user, func(in *ProposeInput) { in.DueDate = "next week" }, apperrors.CodeValidation},
		{"past due date", env.user, func(in *ProposeInput) { in.DueDate = "2026-03-01" }, apperrors.CodeValidation},
		{"unknown priority", env.user, func(in *ProposeInput) { in.Priority = "CRITICAL" }, apperrors.CodeValidation},
		{"unknown project", env.user, func(in *ProposeInput) { in.ProjectID = "nope" }, apperrors.CodeNotFound},
		{"unknown team", env.admin, func(in *ProposeInput) { in.TeamID = "nope" }, apperrors.CodeNotFound},
		{"unknown team outside scope", env.user, func(in *ProposeInput) { in.TeamID = "nope" }, apperrors.CodeForbidden},
		{"unknown project outside scope", env.outsider, func(in *ProposeInput) { in.ProjectID = "nope" }, apperrors.CodeForbidden},
		{"foreign team", env.user, func(in *ProposeInput) { in.TeamID = env.otherTeam.ID }, apperrors.CodeForbidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := valid()
			c.edit(&in)
			_, err := env.tickets.Propose(context.Background(), c.actor, in)
			if !apperrors.Is(err, c.code) {
				t.Fatalf("Propose() error = %v, want %s", err, c.code)
			}
		})
	}

	t.Run("today is accepted", func(t *testing.T) {
		in := valid()
		in.Priority = "high"
		ticket, err := env.tickets.Propose(context.Background(), env.user, in)
		if err != nil {
			t.Fatalf("Propose() error = %v", err)
		}
		if ticket.Priority != domain.TicketPriorityHigh {
			t.Errorf("Priority = %q, want %q", ticket.Priority, domain.TicketPriorityHigh)
		}
	})

	t.Run("admin may propose for any team", func(t *testing.T) {
		in := valid()
		in.TeamID = env.otherTeam.ID
		if _, err := env.tickets.Propose(context.Background(), env.admin, in); err != nil {
			t.Fatalf("Propose() error = %v", err)
		}
	})
}

func TestProposeRejectsTeamFromAnotherProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other, err := env.org.CreateProject(ctx, env.admin, "Gemini", "")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	_, err = env.tickets.Propose(ctx, env.user, ProposeInput{
		Title: "x", Type: "t", Category: "c", DueDate: "2026-04-01",
		ProjectID: other.ID, TeamID: env.team.ID,
	})
	if !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("Propose() error = %v, want VALIDATION_FAILED", err)
	}
}

func TestStringPreviewKeepsRunesWhole(t *testing.T) {
	cases := []struct {
		name string
		body string
		max  int
		want string
	}{
		{"short", "  hello  ", 10, "hello"},
		{"ascii cut", "abcdefghijkl", 8, "abcde..."},
		{"multibyte fits", strings.Repeat("é", 100), 120, strings.Repeat("é", 100)},
		{"multibyte cut", strings.Repeat("é", 100), 10, strings.Repeat("é", 7) + "..."},
		{"tiny max", "日本語テキスト", 2, "日本"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := stringPreview(c.body, c.max)
			if !utf8.ValidString(got) {
				t.Fatalf("stringPreview() = %q, not valid UTF-8", got)
			}
			if got != c.want {
				t.Fatalf("stringPreview() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestGetEnforcesReadScope(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.propose(t, env.user)
	ctx := context.Background()

	for _, actor := range []domain.Actor{env.user, env.teammate, env.manager, env.admin, env.superAdmin} {
		if _, err := env.tickets.Get(ctx, actor, ticket.ID); err != nil {
			t.Errorf("Get() as %s error = %v", actor.Role, err)
		}
	}
	if _, err := env.tickets.Get(ctx, env.outsider, ticket.ID); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Errorf("Get() as outsider error = %v, want FORBIDDEN", err)
	}
	if _, err := env.tickets.Get(ctx, env.user, "missing"); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestListScopesByTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.propose(t, env.user)
	if _, err := env.tickets.Propose(ctx, env.outsider, ProposeInput{
		Title: "Desk", Type: "furniture", Category: "office", DueDate: "2026-04-01",
		ProjectID: env.project.ID, TeamID: env.otherTeam.ID,
	}); err != nil {
		t.Fatalf("Propose() error = %v", err)
	}

	mine, err := env.tickets.List(ctx, env.teammate, TicketListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mine) != 1 || mine[0].TeamID != env.team.ID {
		t.Fatalf("teammate sees %d tickets, want 1 from own team", len(mine))
	}

	foreign := env.otherTeam.ID
	none, err := env.tickets.List(ctx, env.teammate, TicketListFilter{TeamID: &foreign})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("teammate filtered to foreign team sees %d tickets, want 0", len(none))
	}

	all, err := env.tickets.List(ctx, env.admin, TicketListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d tickets, want 2", len(all))
	}
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.proposeAndSubmit(t, env.user)

	if _, err := env.tickets.AddComment(ctx, env.user, "missing", "hello", false); !apperrors.Is(err, apperrors.CodeNotFound) {
		t.Fatalf("AddComment(missing) error = %v, want NOT_FOUND", err)
	}
	if _, err := env.tickets.AddComment(ctx, env.user, ticket.ID, "secret", true); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("AddComment(internal as user) error = %v, want FORBIDDEN", err)
	}
	if _, err := env.tickets.AddComment(ctx, env.outsider, ticket.ID, "hi", false); !apperrors.Is(err, apperrors.CodeForbidden) {
		t.Fatalf("AddComment(outsider) error = %v, want FORBIDDEN", err)
	}
	if _, err := env.tickets.AddComment(ctx, env.user, ticket.ID, "   ", false); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("AddComment(blank) error = %v, want VALIDATION_FAILED", err)
	}

	comment, err := env.tickets.AddComment(ctx, env.user, ticket.ID, "any update?", false)
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if comment.AuthorRole != domain.RoleUser {
		t.Errorf("AuthorRole = %q, want %q", comment.AuthorRole, domain.RoleUser)
	}
	if _, err := env.tickets.AddComment(ctx, env.admin, ticket.ID, "budget check pending", true); err != nil {
		t.Fatalf("AddComment(internal as admin) error = %v", err)
	}

	after, err := env.tickets.Get(ctx, env.user, ticket.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.Status != domain.TicketStatusPending || after.Version != ticket.Version {
		t.Fatalf("comment changed ticket: status %s version %d", after.Status, after.Version)
	}

	visible, err := env.tickets.ListComments(ctx, env.user, ticket.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("user sees %d comments, want 1", len(visible))
	}
	everything, err := env.tickets.ListComments(ctx, env.admin, ticket.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(everything) != 2 {
		t.Fatalf("admin sees %d comments, want 2", len(everything))
	}
}
