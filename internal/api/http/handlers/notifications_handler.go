package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketflow/internal/api/dto"
	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/service"
)

// NotificationsHandler serves the caller's inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notificationService}
}

// List GET /notifications?unread=true.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	limit, offset := pageQuery(c)
	items, err := h.notifications.List(c.UserContext(), actor, parseBoolQuery(c, "unread", false), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewNotificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	note, err := h.notifications.MarkRead(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponse(note)})
}
