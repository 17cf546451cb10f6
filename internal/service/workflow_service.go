package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/events"
	"github.com/spec-kit/ticketflow/internal/lock"
	"github.com/spec-kit/ticketflow/internal/repository"
	apperrors "github.com/spec-kit/ticketflow/pkg/util/errorutil"
)

// DecisionRecorder receives the outcome of every decide request.
type DecisionRecorder interface {
	RecordDecision(action, outcome string)
}

// WorkflowService drives status transitions. Every transition for a ticket
// runs under that ticket's lock and commits with a version check.
type WorkflowService struct {
	tickets    repository.TicketRepository
	locker     lock.Locker
	dispatcher events.Dispatcher
	recorder   DecisionRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo repository.TicketRepository
	Locker     lock.Locker
	Dispatcher events.Dispatcher
	Recorder   DecisionRecorder
	Logger     *zap.Logger
	Now        func() time.Time
}

// Decision is an approve or reject request. Priority and ExpectedClosureDate
// only apply to approvals; Reason is required for rejections.
type Decision struct {
	Action              domain.Action
	Reason              string
	Priority            string
	ExpectedClosureDate string
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	s := &WorkflowService{
		tickets:    deps.TicketRepo,
		locker:     deps.Locker,
		dispatcher: deps.Dispatcher,
		recorder:   deps.Recorder,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Decide approves or rejects a ticket.
func (s *WorkflowService) Decide(ctx context.Context, actor domain.Actor, ticketID string, decision Decision) (*domain.Ticket, error) {
	ticket, oldStatus, err := s.decide(ctx, actor, ticketID, decision)
	s.record(decision.Action, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket decided",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("status", string(ticket.Status)))

	reason := ""
	if ticket.RejectionReason != nil {
		reason = *ticket.RejectionReason
	}
	publishEvent(context.WithoutCancel(ctx), s.dispatcher, s.now, events.Event{
		Type:      events.EventTicketDecided,
		TicketID:  ticket.ID,
		Actor:     events.ActorOf(actor),
		Timestamp: *ticket.DecidedAt,
		Payload: events.TicketDecidedPayload{
			CreatorID: ticket.CreatorID,
			TeamID:    ticket.TeamID,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Reason:    reason,
		},
	})
	return ticket, nil
}

func (s *WorkflowService) decide(ctx context.Context, actor domain.Actor, ticketID string, decision Decision) (*domain.Ticket, domain.TicketStatus, error) {
	if decision.Action != domain.ActionApprove && decision.Action != domain.ActionReject {
		return nil, "", apperrors.NewValidationError("decision must be approve or reject", map[string]any{"action": string(decision.Action)})
	}

	release, err := s.acquire(ctx, ticketID)
	if err != nil {
		return nil, "", err
	}
	defer release()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, "", notFoundOr(err, "ticket", ticketID)
	}
	if err := auth.CheckDecision(actor, auth.ContextOf(ticket), decision.Action); err != nil {
		return nil, "", err
	}

	now := s.now()
	switch decision.Action {
	case domain.ActionReject:
		reason := strings.TrimSpace(decision.Reason)
		if reason == "" {
			return nil, "", apperrors.NewValidationError("rejection reason is required", map[string]any{"field": "reason"})
		}
		if decision.Priority != "" || decision.ExpectedClosureDate != "" {
			return nil, "", apperrors.NewValidationError("priority and expected closure date only apply to approvals", nil)
		}
		ticket.RejectionReason = &reason
	case domain.ActionApprove:
		if p := strings.TrimSpace(decision.Priority); p != "" {
			priority := domain.TicketPriority(strings.ToUpper(p))
			if !priority.Valid() {
				return nil, "", apperrors.NewValidationError("unknown priority", map[string]any{"priority": decision.Priority})
			}
			ticket.Priority = priority
		}
		if d := strings.TrimSpace(decision.ExpectedClosureDate); d != "" {
			closure, err := parseDate(d)
			if err != nil {
				return nil, "", apperrors.NewValidationError("expected_closure_date must be RFC3339 or YYYY-MM-DD", map[string]any{"expected_closure_date": d})
			}
			if beforeToday(closure, now) {
				return nil, "", apperrors.NewValidationError("expected_closure_date is in the past", map[string]any{"expected_closure_date": d})
			}
			ticket.ExpectedClosureAt = &closure
		}
	}

	oldStatus := ticket.Status
	if err := s.commit(ctx, actor, ticket, decision.Action, now); err != nil {
		return nil, "", err
	}
	return ticket, oldStatus, nil
}

// Submit moves a CREATED ticket to PENDING. Only the creator or an admin and
// above may submit.
func (s *WorkflowService) Submit(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	release, err := s.acquire(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if ticket.Status.Terminal() {
		return nil, apperrors.NewAlreadyDecided(ticket.ID, string(ticket.Status))
	}
	if err := auth.Authorize(actor, domain.ActionSubmit, auth.ContextOf(ticket)); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, actor, ticket, domain.ActionSubmit, s.now()); err != nil {
		return nil, err
	}
	s.logger.Info("ticket submitted", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.ID))
	return ticket, nil
}

// commit applies action to ticket and writes it with its audit entry. The
// write is detached from caller cancellation so a dropped request cannot
// abort a transition halfway.
func (s *WorkflowService) commit(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, action domain.Action, now time.Time) error {
	oldStatus := ticket.Status
	expected := ticket.Version
	if err := ticket.SetStatus(action, actor.ID, now); err != nil {
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			return apperrors.NewDomainError("INVALID_TRANSITION", err.Error(), 400, map[string]any{
				"ticket_id": ticket.ID,
				"status":    string(oldStatus),
			})
		}
		return apperrors.MapError(err)
	}

	changeType := domain.ChangeTypeStatus
	newValue := map[string]any{"status": string(ticket.Status)}
	if ticket.Status.Terminal() {
		changeType = domain.ChangeTypeDecision
		newValue["priority"] = string(ticket.Priority)
		if ticket.RejectionReason != nil {
			newValue["reason"] = *ticket.RejectionReason
		}
		if ticket.ExpectedClosureAt != nil {
			newValue["expected_closure_at"] = ticket.ExpectedClosureAt.Format(time.RFC3339)
		}
	}
	entry := &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: actor.ID,
		ChangedRole: actor.Role,
		ChangeType:  changeType,
		OldValue:    map[string]any{"status": string(oldStatus)},
		NewValue:    newValue,
		CreatedAt:   now,
	}

	writeCtx := context.WithoutCancel(ctx)
	err := s.tickets.ApplyTransition(writeCtx, ticket, expected, entry)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	case errors.Is(err, repository.ErrVersionConflict):
		return s.lostRace(writeCtx, ticket.ID)
	default:
		return apperrors.MapError(err)
	}
}

// lostRace reports the state a competing writer left behind.
func (s *WorkflowService) lostRace(ctx context.Context, ticketID string) error {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOr(err, "ticket", ticketID)
	}
	if current.Status.Terminal() {
		return apperrors.NewAlreadyDecided(current.ID, string(current.Status))
	}
	return apperrors.NewConflict("ticket changed concurrently", map[string]any{
		"ticket_id": current.ID,
		"version":   current.Version,
	})
}

func (s *WorkflowService) acquire(ctx context.Context, ticketID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, ticketID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperrors.NewConflict("ticket is being decided by another request", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return release, nil
}

func (s *WorkflowService) record(action domain.Action, err error) {
	if s.recorder == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	s.recorder.RecordDecision(string(action), outcome)
}
