package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/events"
	"github.com/spec-kit/ticketflow/internal/notify"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// NotificationService turns workflow events into per-recipient notifications
// and serves each recipient's inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	comments      repository.CommentRepository
	users         repository.UserRepository
	deliverer     notify.Deliverer
	logger        *zap.Logger
	now           func() time.Time
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	CommentRepo      repository.CommentRepository
	UserRepo         repository.UserRepository
	// Deliverer defaults to the inbox alone.
	Deliverer notify.Deliverer
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		notifications: deps.NotificationRepo,
		comments:      deps.CommentRepo,
		users:         deps.UserRepo,
		deliverer:     deps.Deliverer,
		logger:        deps.Logger,
		now:           deps.Now,
	}
	if n.deliverer == nil {
		n.deliverer = notify.NewInbox(deps.NotificationRepo)
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// HandledEvents lists the event types Handle understands.
func HandledEvents() []events.EventType {
	return []events.EventType{events.EventTicketProposed, events.EventTicketDecided, events.EventCommentAdded}
}

// RegisterHandlers subscribes Handle directly so delivery runs inline with
// the publisher.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, t := range HandledEvents() {
		dispatcher.Subscribe(t, n.Handle)
	}
}

// Handle delivers one notification to each recipient of event. Failed
// deliveries are logged and do not stop the others.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	recipients, err := n.Recipients(ctx, event)
	if err != nil {
		return err
	}
	kind, message := describe(event)
	delivered := 0
	for _, recipientID := range recipients {
		note := &domain.Notification{
			RecipientID: recipientID,
			Type:        kind,
			TicketID:    event.TicketID,
			Message:     message,
			CreatedAt:   n.now(),
		}
		if err := n.deliverer.Deliver(ctx, note); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.String("recipient_id", recipientID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	n.logger.Debug("notifications delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", delivered))
	return nil
}

// Recipients computes the de-duplicated recipient set for event. The acting
// actor is never included.
func (n *NotificationService) Recipients(ctx context.Context, event events.Event) ([]string, error) {
	set := newRecipientSet(event.Actor.ID)
	switch event.Type {
	case events.EventTicketProposed:
		approvers, err := n.listUsers(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleSuperAdmin, domain.RoleAdmin}})
		if err != nil {
			return nil, err
		}
		for _, u := range approvers {
			set.add(u.ID)
		}
	case events.EventTicketDecided:
		payload, ok := event.Payload.(events.TicketDecidedPayload)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
		}
		set.add(payload.CreatorID)
		teamID := payload.TeamID
		managers, err := n.listUsers(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleTeamManager}, TeamID: &teamID})
		if err != nil {
			return nil, err
		}
		for _, u := range managers {
			set.add(u.ID)
		}
	case events.EventCommentAdded:
		payload, ok := event.Payload.(events.CommentAddedPayload)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
		}
		set.add(payload.CreatorID)
		comments, err := n.comments.ListByTicket(ctx, event.TicketID)
		if err != nil {
			return nil, err
		}
		// comments are oldest first; only authors before this one count
		for _, c := range comments {
			if c.ID == payload.CommentID {
				break
			}
			set.add(c.AuthorID)
		}
		if payload.IsInternal {
			return n.onlyAdmins(ctx, set.ids)
		}
	default:
		return nil, fmt.Errorf("unhandled event type %s", event.Type)
	}
	return set.ids, nil
}

// List returns the actor's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, actor domain.Actor, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	items, err := n.notifications.ListByRecipient(ctx, actor.ID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the actor's notifications as read. Notifications
// belonging to someone else are reported as not found.
func (n *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, id string) (*domain.Notification, error) {
	note, err := n.notifications.MarkRead(ctx, id, actor.ID)
	if err != nil {
		return nil, notFoundOr(err, "notification", id)
	}
	return note, nil
}

func (n *NotificationService) onlyAdmins(ctx context.Context, ids []string) ([]string, error) {
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		user, err := n.users.GetByID(ctx, id)
		if err != nil {
			n.logger.Warn("skipping unknown recipient", zap.String("recipient_id", id), zap.Error(err))
			continue
		}
		if user.Role.AtLeast(domain.RoleAdmin) {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

func (n *NotificationService) listUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	const pageSize = 200
	var all []domain.User
	for offset := 0; ; offset += pageSize {
		filter.Limit, filter.Offset = pageSize, offset
		batch, err := n.users.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			return all, nil
		}
	}
}

type recipientSet struct {
	exclude string
	seen    map[string]struct{}
	ids     []string
}

func newRecipientSet(exclude string) *recipientSet {
	return &recipientSet{exclude: exclude, seen: make(map[string]struct{})}
}

func (r *recipientSet) add(id string) {
	if id == "" || id == r.exclude {
		return
	}
	if _, ok := r.seen[id]; ok {
		return
	}
	r.seen[id] = struct{}{}
	r.ids = append(r.ids, id)
}

func describe(event events.Event) (domain.NotificationType, string) {
	switch event.Type {
	case events.EventTicketProposed:
		title := ""
		if p, ok := event.Payload.(events.TicketProposedPayload); ok {
			title = p.Title
		}
		return domain.NotificationTicketProposed, fmt.Sprintf("New ticket awaiting decision: %s", title)
	case events.EventTicketDecided:
		if p, ok := event.Payload.(events.TicketDecidedPayload); ok && p.NewStatus == domain.TicketStatusRejected {
			if p.Reason != "" {
				return domain.NotificationTicketRejected, fmt.Sprintf("Ticket rejected: %s", p.Reason)
			}
			return domain.NotificationTicketRejected, "Ticket rejected"
		}
		return domain.NotificationTicketApproved, "Ticket approved"
	default:
		preview := ""
		if p, ok := event.Payload.(events.CommentAddedPayload); ok {
			preview = p.BodyPreview
		}
		return domain.NotificationCommentAdded, fmt.Sprintf("New comment: %s", preview)
	}
}
