package api

import (
	"github.com/gin-gonic/gin"

	"unit-gateway/internal/config"
	"unit-gateway/internal/logging"
)

func NewRouter(logger *logging.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Manual device control, mirrored to live viewers
		api.POST("/units/:unit_id/toggle", h.ToggleUnit)
		api.POST("/units/:unit_id/schedule", h.UpdateSchedule)
		api.POST("/units/:unit_id/auto", h.AutoUnit)
		api.GET("/units/:unit_id/status", h.UnitStatus)

		// Operator task workflow
		api.GET("/tasks", h.ListTasks)
		api.PUT("/tasks/:id/status", h.UpdateTaskStatus)
	}

	// Viewer sockets
	r.GET("/ws/unit/:unit_id/status", h.UnitStatusWS)
	r.GET("/ws/notifications", h.NotificationsWS)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
