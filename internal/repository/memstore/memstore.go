// Package memstore keeps every repository in process memory. It backs local
// runs without POSTGRES_DSN and the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/repository"
)

// Store holds all records behind a single lock.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	tickets       map[string]domain.Ticket
	history       map[string][]domain.TicketHistory
	comments      map[string][]domain.Comment
	notifications map[string]domain.Notification
	users         map[string]domain.User
	teams         map[string]domain.Team
	projects      map[string]domain.Project
}

// New builds an empty store.
func New() *Store {
	return &Store{
		now:           time.Now,
		tickets:       make(map[string]domain.Ticket),
		history:       make(map[string][]domain.TicketHistory),
		comments:      make(map[string][]domain.Comment),
		notifications: make(map[string]domain.Notification),
		users:         make(map[string]domain.User),
		teams:         make(map[string]domain.Team),
		projects:      make(map[string]domain.Project),
	}
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// History returns the audit history view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

// Comments returns the comment repository view.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

// Notifications returns the notification repository view.
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Teams returns the team repository view.
func (s *Store) Teams() repository.TeamRepository { return teamRepo{s} }

// Projects returns the project repository view.
func (s *Store) Projects() repository.ProjectRepository { return projectRepo{s} }

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.stamp()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	ticket.Version = 1
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	if entry != nil {
		entry.TicketID = ticket.ID
		r.s.appendHistory(entry, now)
	}
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.ProjectID != nil && ticket.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.TeamID != nil && ticket.TeamID != *filter.TeamID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if !strings.Contains(strings.ToLower(ticket.Title), term) && !strings.Contains(strings.ToLower(ticket.Description), term) {
				continue
			}
		}
		result = append(result, cloneTicket(ticket))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return page(result, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) ApplyTransition(_ context.Context, ticket *domain.Ticket, expectedVersion int, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	if entry != nil {
		entry.TicketID = ticket.ID
		r.s.appendHistory(entry, r.s.stamp())
	}
	return nil
}

func (s *Store) appendHistory(entry *domain.TicketHistory, now time.Time) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	s.history[entry.TicketID] = append(s.history[entry.TicketID], *entry)
}

type historyRepo struct{ s *Store }

func (r historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.TicketHistory(nil), r.s.history[ticketID]...), nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Append(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.s.stamp()
	r.s.comments[comment.TicketID] = append(r.s.comments[comment.TicketID], *comment)
	return nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.Comment(nil), r.s.comments[ticketID]...), nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = uuid.NewString()
	n.Read = false
	n.CreatedAt = r.s.stamp()
	r.s.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return page(result, limit, offset), nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, recipientID string) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, pgx.ErrNoRows
	}
	if !n.Read {
		now := r.s.stamp()
		n.Read = true
		n.ReadAt = &now
		r.s.notifications[id] = n
	}
	return &n, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.stamp()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) UpdateCredentials(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = user.Name
	stored.PasswordHash = user.PasswordHash
	stored.Status = user.Status
	stored.UpdatedAt = r.s.stamp()
	r.s.users[user.ID] = stored
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.User
	for _, user := range r.s.users {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, user.Role) {
			continue
		}
		if filter.TeamID != nil && (user.TeamID == nil || *user.TeamID != *filter.TeamID) {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return page(result, filter.Limit, filter.Offset), nil
}

type teamRepo struct{ s *Store }

func (r teamRepo) Create(_ context.Context, team *domain.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.stamp()
	team.ID = uuid.NewString()
	team.CreatedAt = now
	team.UpdatedAt = now
	r.s.teams[team.ID] = *team
	return nil
}

func (r teamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	team, ok := r.s.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &team, nil
}

func (r teamRepo) List(_ context.Context, projectID *string) ([]domain.Team, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Team
	for _, team := range r.s.teams {
		if projectID != nil && team.ProjectID != *projectID {
			continue
		}
		result = append(result, team)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type projectRepo struct{ s *Store }

func (r projectRepo) Create(_ context.Context, project *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.stamp()
	project.ID = uuid.NewString()
	project.CreatedAt = now
	project.UpdatedAt = now
	r.s.projects[project.ID] = *project
	return nil
}

func (r projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	project, ok := r.s.projects[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &project, nil
}

func (r projectRepo) List(_ context.Context) ([]domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.Project, 0, len(r.s.projects))
	for _, project := range r.s.projects {
		result = append(result, project)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.RejectionReason != nil {
		v := *t.RejectionReason
		t.RejectionReason = &v
	}
	if t.ExpectedClosureAt != nil {
		v := *t.ExpectedClosureAt
		t.ExpectedClosureAt = &v
	}
	if t.DecidedBy != nil {
		v := *t.DecidedBy
		t.DecidedBy = &v
	}
	if t.DecidedAt != nil {
		v := *t.DecidedAt
		t.DecidedAt = &v
	}
	return t
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, p := range list {
		if p == v {
			return true
		}
	}
	return false
}

func containsRole(list []domain.Role, v domain.Role) bool {
	for _, r := range list {
		if r == v {
			return true
		}
	}
	return false
}
