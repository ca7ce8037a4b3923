package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger))
	router.Use(Viewer())

	// Health check
	router.GET("/health", handler.HealthCheck)

	dashboards := router.Group("/dashboard/:username")
	{
		dashboards.GET("", handler.GetDashboard)
		dashboards.POST("/refresh", handler.RefreshDashboard)
	}

	return router
}
