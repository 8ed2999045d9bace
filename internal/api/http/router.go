package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vibecodefixers/help-request-service/internal/api/http/handlers"
	"github.com/vibecodefixers/help-request-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Requests       *handlers.HelpRequestsHandler
	ExpertRequests *handlers.ExpertRequestsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/experts/register", cfg.Users.RegisterExpert)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authProtected.Post("/password/change", cfg.Users.ChangePassword)

	requests := app.Group("/requests", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	requests.Get("/open", cfg.Requests.ListOpen)
	requests.Get("/search", cfg.Requests.Search)
	requests.Post("", cfg.Requests.Create)
	requests.Get("", cfg.Requests.ListMine)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Get("/:id/history", cfg.Requests.History)
	requests.Post("/:id/cancel", cfg.Requests.Cancel)
	requests.Post("/:id/solution/accept", cfg.Requests.AcceptSolution)
	requests.Post("/:id/solution/reject", cfg.Requests.RejectSolution)

	expert := app.Group("/expert/requests", cfg.AuthMiddleware.Handle, auth.RequireExpert())
	expert.Get("", cfg.ExpertRequests.ListAssigned)
	expert.Post("/:id/claim", cfg.ExpertRequests.Claim)
	expert.Post("/:id/start", cfg.ExpertRequests.StartWork)
	expert.Post("/:id/solution", cfg.ExpertRequests.SubmitSolution)
	expert.Post("/:id/decline", cfg.ExpertRequests.Decline)
	expert.Post("/:id/interest", cfg.ExpertRequests.ExpressInterest)
	expert.Post("/:id/release", cfg.ExpertRequests.ReleaseClaim)
}
