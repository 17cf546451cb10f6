package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketflow/internal/api/dto"
	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/domain"
	"github.com/spec-kit/ticketflow/internal/service"
)

// TicketsHandler manages ticket endpoints, including the workflow actions.
type TicketsHandler struct {
	tickets  *service.TicketService
	workflow *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, workflowService *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, workflow: workflowService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Propose(c.UserContext(), actor, service.ProposeInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Category:    req.Category,
		Department:  req.Department,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
		TeamID:      req.TeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	filter := service.TicketListFilter{
		ProjectID:  optionalQuery(c, "project_id"),
		TeamID:     optionalQuery(c, "team_id"),
		SearchTerm: optionalQuery(c, "q"),
	}
	for _, s := range splitQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(s)))
	}
	for _, p := range splitQuery(c, "priority") {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(p)))
	}
	filter.Limit, filter.Offset = pageQuery(c)

	tickets, err := h.tickets.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Submit POST /tickets/:id/submit.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.workflow.Submit(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Approve POST /tickets/:id/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, domain.ActionApprove)
}

// Reject POST /tickets/:id/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, domain.ActionReject)
}

func (h *TicketsHandler) decide(c *fiber.Ctx, action domain.Action) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	ticket, err := h.workflow.Decide(c.UserContext(), actor, c.Params("id"), service.Decision{
		Action:              action,
		Reason:              req.Reason,
		Priority:            req.Priority,
		ExpectedClosureDate: req.ExpectedClosureDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
