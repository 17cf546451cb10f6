package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/events"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// TicketService coordinates ticket proposals, reads and comments.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	comments   repository.CommentRepository
	teams      repository.TeamRepository
	projects   repository.ProjectRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	CommentRepo repository.CommentRepository
	TeamRepo    repository.TeamRepository
	ProjectRepo repository.ProjectRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// ProposeInput describes a ticket proposal. DueDate accepts RFC3339 or
// YYYY-MM-DD.
type ProposeInput struct {
	Title       string
	Description string
	Type        string
	Category    string
	Department  string
	Priority    string
	DueDate     string
	ProjectID   string
	TeamID      string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	ProjectID  *string
	TeamID     *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		comments:   deps.CommentRepo,
		teams:      deps.TeamRepo,
		projects:   deps.ProjectRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Propose creates a ticket in CREATED for the actor.
func (s *TicketService) Propose(ctx context.Context, actor domain.Actor, input ProposeInput) (*domain.Ticket, error) {
	now := s.now()
	missing := []string{}
	for field, value := range map[string]string{
		"title":      input.Title,
		"type":       input.Type,
		"category":   input.Category,
		"project_id": input.ProjectID,
		"team_id":    input.TeamID,
		"due_date":   input.DueDate,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}

	dueDate, err := parseDate(input.DueDate)
	if err != nil {
		return nil, apperrors.NewValidationError("due_date must be RFC3339 or YYYY-MM-DD", map[string]any{"due_date": input.DueDate})
	}
	if beforeToday(dueDate, now) {
		return nil, apperrors.NewValidationError("due_date is in the past", map[string]any{"due_date": input.DueDate})
	}

	priority := domain.TicketPriorityMedium
	if p := strings.TrimSpace(input.Priority); p != "" {
		priority = domain.TicketPriority(strings.ToUpper(p))
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
		}
	}

	// authorize on the requested team before lookups reveal which ids exist
	if err := auth.CanProposeFor(actor, input.TeamID); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, input.ProjectID)
	if err != nil {
		return nil, notFoundOr(err, "project", input.ProjectID)
	}
	team, err := s.teams.GetByID(ctx, input.TeamID)
	if err != nil {
		return nil, notFoundOr(err, "team", input.TeamID)
	}
	if team.ProjectID != project.ID {
		return nil, apperrors.NewValidationError("team does not belong to project", map[string]any{
			"project_id": project.ID,
			"team_id":    team.ID,
		})
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Type:        strings.TrimSpace(input.Type),
		Category:    strings.TrimSpace(input.Category),
		Department:  strings.TrimSpace(input.Department),
		Priority:    priority,
		DueDate:     dueDate,
		ProjectID:   project.ID,
		TeamID:      team.ID,
		CreatorID:   actor.ID,
		Status:      domain.TicketStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
		ModifiedBy:  actor.ID,
	}
	entry := &domain.TicketHistory{
		ChangedByID: actor.ID,
		ChangedRole: actor.Role,
		ChangeType:  domain.ChangeTypeCreated,
		NewValue:    map[string]any{"status": string(ticket.Status), "priority": string(ticket.Priority)},
		CreatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket proposed",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", actor.ID),
		zap.String("team_id", ticket.TeamID))
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketProposed,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.TicketProposedPayload{
			CreatorID: ticket.CreatorID,
			ProjectID: ticket.ProjectID,
			TeamID:    ticket.TeamID,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// Get fetches a ticket the actor may read.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if err := auth.Authorize(actor, domain.ActionReadTicket, auth.ContextOf(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns tickets within the actor's scope. Admins and above see every
// ticket; other roles see their team's tickets.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		ProjectID:  filter.ProjectID,
		TeamID:     filter.TeamID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		if actor.TeamID == nil {
			creator := actor.ID
			repoFilter.CreatorID = &creator
		} else {
			if filter.TeamID != nil && *filter.TeamID != *actor.TeamID {
				return []domain.Ticket{}, nil
			}
			repoFilter.TeamID = actor.TeamID
		}
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// AddComment appends an immutable comment. Status is never touched.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, content string, internal bool) (*domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	tc := auth.ContextOf(ticket)
	if err := auth.Authorize(actor, domain.ActionComment, tc); err != nil {
		return nil, err
	}
	if internal {
		if err := auth.Authorize(actor, domain.ActionCommentInternal, tc); err != nil {
			return nil, err
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		Content:    content,
		IsInternal: internal,
		CreatedAt:  s.now(),
	}
	if err := s.comments.Append(ctx, comment); err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}

	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorOf(actor),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			CreatorID:   ticket.CreatorID,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// ListComments returns comments visible to the actor.
func (s *TicketService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Comment, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	all, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	showInternal := auth.CanSeeInternal(actor.Role)
	visible := make([]domain.Comment, 0, len(all))
	for _, c := range all {
		if c.IsInternal && !showInternal {
			continue
		}
		visible = append(visible, c)
	}
	return visible, nil
}

// History returns the audit trail for a ticket the actor may read.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}

// beforeToday compares calendar days in UTC.
func beforeToday(t, now time.Time) bool {
	day := 24 * time.Hour
	return t.UTC().Truncate(day).Before(now.UTC().Truncate(day))
}

// stringPreview shortens body to at most max runes, never splitting one.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
