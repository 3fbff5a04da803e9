package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/bizmatters/agent-builder/travel-planner/internal/auth"
)

// RegisterRoutes mounts the API under /api.
func RegisterRoutes(router *gin.Engine, h *Handler, stream *PlanStream, jwtManager *auth.JWTManager) {
	api := router.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Login)
	api.POST("/destinations/suggest", auth.OptionalAuth(jwtManager), h.SuggestDestinations)

	// The WebSocket handshake authenticates itself since browsers cannot set headers on it.
	api.GET("/ws/plans/:id", stream.StreamPlan)

	// Protected routes (require JWT authentication)
	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager), auth.RequireRole(auth.RoleUser))

	protected.POST("/plans", h.CreatePlan)
	protected.GET("/plans/:id", h.GetPlan)

	protected.POST("/sessions/:id/chat", h.Chat)
	protected.GET("/sessions/:id/messages", h.Messages)
}
