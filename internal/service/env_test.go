package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/ticketflow/internal/config"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/events"
	"github.com/spec-kit/ticketflow/internal/lock"
	"github.com/spec-kit/ticketflow/internal/notify"
	"github.com/spec-kit/ticketflow/internal/repository/memstore"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store         *memstore.Store
	dispatcher    events.Dispatcher
	tickets       *TicketService
	workflow      *WorkflowService
	notifications *NotificationService
	auth          *AuthService
	org           *OrgService
	recorder      *countingRecorder

	project   *domain.Project
	team      *domain.Team
	otherTeam *domain.Team

	superAdmin domain.Actor
	admin      domain.Actor
	manager    domain.Actor
	user       domain.Actor
	teammate   domain.Actor
	outsider   domain.Actor
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordDecision(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[action+"|"+outcome]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

type envOption func(*WorkflowDependencies, *NotificationDependencies)

func withDeliverer(d notify.Deliverer) envOption {
	return func(_ *WorkflowDependencies, n *NotificationDependencies) { n.Deliverer = d }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return testNow }

	store := memstore.New()
	dispatcher := events.NewInMemoryDispatcher(nil)
	recorder := &countingRecorder{counts: map[string]int{}}

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
	wfDeps := WorkflowDependencies{
		TicketRepo: store.Tickets(),
		Locker:     lock.NewLocal(),
		Dispatcher: dispatcher,
		Recorder:   recorder,
		Now:        now,
	}
	notifyDeps := NotificationDependencies{
		NotificationRepo: store.Notifications(),
		CommentRepo:      store.Comments(),
		UserRepo:         store.Users(),
		Now:              now,
	}
	for _, opt := range opts {
		opt(&wfDeps, &notifyDeps)
	}

	env := &testEnv{
		store:      store,
		dispatcher: dispatcher,
		recorder:   recorder,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets(),
			HistoryRepo: store.History(),
			CommentRepo: store.Comments(),
			TeamRepo:    store.Teams(),
			ProjectRepo: store.Projects(),
			Dispatcher:  dispatcher,
			Now:         now,
		}),
		workflow:      NewWorkflowService(wfDeps),
		notifications: NewNotificationService(notifyDeps),
		auth:          NewAuthService(cfg, AuthDependencies{UserRepo: store.Users(), TeamRepo: store.Teams()}),
		org:           NewOrgService(OrgDependencies{ProjectRepo: store.Projects(), TeamRepo: store.Teams()}),
	}
	env.notifications.RegisterHandlers(dispatcher)

	super, err := env.auth.BootstrapSuperAdmin(ctx, "Root", "root@example.com", "rootpass1")
	if err != nil {
		t.Fatalf("BootstrapSuperAdmin() error = %v", err)
	}
	env.superAdmin = domain.ActorOf(super)

	env.admin = env.register(t, env.superAdmin, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password1", Role: "admin", SuperAdminID: super.ID})

	env.project, err = env.org.CreateProject(ctx, env.admin, "Apollo", "launch")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	env.team, err = env.org.CreateTeam(ctx, env.admin, env.project.ID, "Core", "")
	if err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	env.otherTeam, err = env.org.CreateTeam(ctx, env.admin, env.project.ID, "Edge", "")
	if err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}

	env.manager = env.register(t, env.admin, RegisterInput{Name: "Max", Email: "max@example.com", Password: "password1", Role: "teamManager", TeamID: env.team.ID})
	env.user = env.register(t, env.admin, RegisterInput{Name: "Uma", Email: "uma@example.com", Password: "password1", Role: "user", TeamID: env.team.ID})
	env.teammate = env.register(t, env.admin, RegisterInput{Name: "Tom", Email: "tom@example.com", Password: "password1", Role: "user", TeamID: env.team.ID})
	env.outsider = env.register(t, env.admin, RegisterInput{Name: "Oli", Email: "oli@example.com", Password: "password1", Role: "user", TeamID: env.otherTeam.ID})
	return env
}

func (e *testEnv) register(t *testing.T, caller domain.Actor, input RegisterInput) domain.Actor {
	t.Helper()
	user, err := e.auth.Register(context.Background(), caller, input)
	if err != nil {
		t.Fatalf("Register(%s) error = %v", input.Email, err)
	}
	return domain.ActorOf(user)
}

func (e *testEnv) propose(t *testing.T, actor domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.Propose(context.Background(), actor, ProposeInput{
		Title:     "New laptop",
		Type:      "hardware",
		Category:  "equipment",
		DueDate:   "2026-04-01",
		ProjectID: e.project.ID,
		TeamID:    e.team.ID,
	})
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	return ticket
}

func (e *testEnv) proposeAndSubmit(t *testing.T, actor domain.Actor) *domain.Ticket {
	t.Helper()
	ticket := e.propose(t, actor)
	submitted, err := e.workflow.Submit(context.Background(), actor, ticket.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return submitted
}

func (e *testEnv) inbox(t *testing.T, actor domain.Actor) []domain.Notification {
	t.Helper()
	items, err := e.notifications.List(context.Background(), actor, false, 100, 0)
	if err != nil {
		t.Fatalf("List(%s) error = %v", actor.ID, err)
	}
	return items
}

func countType(items []domain.Notification, ticketID string, kind domain.NotificationType) int {
	n := 0
	for _, item := range items {
		if item.TicketID == ticketID && item.Type == kind {
			n++
		}
	}
	return n
}
