package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketflow/internal/api/http/handlers"
	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Org            *handlers.OrgHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// NewApp builds the fiber app. Immutable copies params and bodies out of
// fasthttp's reused buffers so values handed to services outlive the request.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{AppName: name, Immutable: true})
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password", cfg.AuthMiddleware.Handle, cfg.Users.ChangePassword)

	protect := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAuthenticated()}

	users := app.Group("/users", protect...)
	users.Get("/", auth.RequireAction(domain.ActionListUsers), cfg.Users.ListUsers)

	projects := app.Group("/projects", protect...)
	projects.Post("/", auth.RequireAction(domain.ActionManageOrg), cfg.Org.CreateProject)
	projects.Get("/", cfg.Org.ListProjects)
	projects.Post("/:id/teams", auth.RequireAction(domain.ActionManageOrg), cfg.Org.CreateTeam)

	teams := app.Group("/teams", protect...)
	teams.Get("/", cfg.Org.ListTeams)

	tickets := app.Group("/tickets", protect...)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/submit", cfg.Tickets.Submit)
	tickets.Post("/:id/approve", cfg.Tickets.Approve)
	tickets.Post("/:id/reject", cfg.Tickets.Reject)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)

	notifications := app.Group("/notifications", protect...)
	notifications.Get("/", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
