package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citytransit/transit-service/internal/api/http/handlers"
	"github.com/citytransit/transit-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Routes         *handlers.RoutesHandler
	Pricing        *handlers.PricingHandler
	Tickets        *handlers.TicketsHandler
	Analytics      *handlers.AnalyticsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/check-email", cfg.Auth.CheckEmail)
	authGroup.Post("/refresh", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Auth.Logout)

	// Public catalog reads plus the gate-facing validate/use endpoints.
	app.Get("/routes", cfg.Routes.List)
	app.Get("/routes/:id", cfg.Routes.Get)
	app.Get("/pricing", cfg.Pricing.List)
	app.Get("/pricing/:type", cfg.Pricing.GetByType)
	app.Post("/tickets/validate", cfg.Tickets.Validate)
	app.Post("/tickets/use", cfg.Tickets.Use)

	me := app.Group("/users/me", cfg.AuthMiddleware.Handle, auth.RequireUser())
	me.Get("/", cfg.Users.Profile)
	me.Patch("/", cfg.Users.UpdateProfile)
	me.Post("/password", cfg.Users.ChangePassword)
	me.Delete("/", cfg.Users.Deactivate)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("/", cfg.Tickets.Purchase)
	tickets.Get("/", cfg.Tickets.ListMine)
	tickets.Get("/eligibility/:type", cfg.Tickets.Eligibility)
	tickets.Get("/usages", cfg.Tickets.ListMyUsages)
	tickets.Get("/:id", cfg.Tickets.GetMine)
	tickets.Post("/:id/cancel", cfg.Tickets.Cancel)
	tickets.Get("/:id/usages", cfg.Tickets.ListTicketUsages)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())

	admin.Get("/users", cfg.Users.List)
	admin.Get("/users/stats", cfg.Users.Stats)
	admin.Get("/users/:id", cfg.Users.Get)
	admin.Patch("/users/:id/role", cfg.Users.UpdateRole)
	admin.Patch("/users/:id/status", cfg.Users.UpdateStatus)

	admin.Post("/routes", cfg.Routes.Create)
	admin.Get("/routes", cfg.Routes.ListAll)
	admin.Get("/routes/:id", cfg.Routes.GetAny)
	admin.Patch("/routes/:id", cfg.Routes.Update)
	admin.Delete("/routes/:id", cfg.Routes.Deactivate)
	admin.Post("/routes/:id/activate", cfg.Routes.Activate)

	admin.Post("/pricing", cfg.Pricing.SetPrice)
	admin.Get("/pricing", cfg.Pricing.ListAll)
	admin.Patch("/pricing/:type", cfg.Pricing.Update)
	admin.Get("/pricing/:type/history", cfg.Pricing.History)

	admin.Get("/tickets", cfg.Tickets.ListAll)
	admin.Get("/tickets/:id", cfg.Tickets.GetAny)
	admin.Post("/tickets/:id/cancel", cfg.Tickets.CancelAny)
	admin.Post("/tickets/process-expired", cfg.Tickets.ProcessExpired)
	admin.Delete("/tickets/usages/:id", cfg.Tickets.DeleteUsage)

	admin.Get("/analytics/dashboard", cfg.Analytics.Dashboard)
	admin.Get("/analytics/revenue", cfg.Analytics.Revenue)
	admin.Get("/analytics/sales", cfg.Analytics.Sales)
	admin.Get("/analytics/usage", cfg.Analytics.Usage)
	admin.Get("/analytics/routes/popular", cfg.Analytics.PopularRoutes)
	admin.Get("/analytics/users/top", cfg.Analytics.TopPurchasers)
}
