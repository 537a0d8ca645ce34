package routes

import (
	"github.com/gin-gonic/gin"

	"buggydispatch/internal/handlers"
	"buggydispatch/internal/middleware"
	"buggydispatch/internal/services"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Session   *handlers.SessionHandler
	Buggy     *handlers.BuggyHandler
	Location  *handlers.LocationHandler
	Request   *handlers.RequestHandler
	Audit     *handlers.AuditHandler
	WebSocket *handlers.WebSocketHandler
}

// Setup registers all API routes on the engine.
func Setup(r *gin.Engine, h *Handlers, jwtSecret string, sessions services.SessionStore) {
	api := r.Group("/api/v1")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/requests", h.Request.CreateRequest)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(middleware.AuthRequired(jwtSecret, sessions))
	{
		authed.POST("/auth/logout", h.Auth.Logout)
		authed.GET("/ws", h.WebSocket.Connect)

		authed.GET("/buggies", h.Buggy.ListBuggies)
		authed.GET("/buggies/:id", h.Buggy.GetBuggy)
		authed.GET("/locations", h.Location.ListLocations)
		authed.GET("/locations/:id", h.Location.GetLocation)
		authed.GET("/requests/open", h.Request.ListOpenRequests)
	}

	// Driver routes
	driver := api.Group("/driver")
	driver.Use(middleware.AuthRequired(jwtSecret, sessions), middleware.DriverRequired())
	{
		driver.POST("/location", h.Session.SelectLocation)
		driver.PUT("/requests/:id/accept", h.Request.AcceptRequest)
		driver.PUT("/requests/:id/complete", h.Request.CompleteRequest)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(jwtSecret, sessions), middleware.AdminRequired())
	{
		admin.POST("/buggies", h.Buggy.CreateBuggy)
		admin.PUT("/buggies/:id/status", h.Buggy.SetStatus)
		admin.POST("/buggies/:id/assignments", h.Buggy.AssignDriver)

		admin.POST("/locations", h.Location.CreateLocation)
		admin.DELETE("/locations/:id", h.Location.DeleteLocation)

		admin.PUT("/requests/:id/cancel", h.Request.CancelRequest)

		admin.GET("/audit-logs", h.Audit.ListAuditLogs)
	}
}
