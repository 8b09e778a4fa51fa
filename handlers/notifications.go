package handlers

import (
	"net/http"

	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/models"
	"github.com/rdpmakerop/spark-host-sell/notifications"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	queue  notifications.Queue
	logger *zap.Logger
}

func NewNotificationHandler(queue notifications.Queue, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{queue: queue, logger: logger}
}

// GetNotifications hands the caller's pending notifications over once.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	session := middleware.SessionFrom(c)
	if session == nil {
		requireLogin(c, "Please login to view notifications")
		return
	}

	pending, err := h.queue.Drain(c.Request.Context(), session.User.ID)
	if err != nil {
		h.logger.Error("Failed to drain notifications",
			zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Notifications unavailable"})
		return
	}
	if pending == nil {
		pending = []models.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{"notifications": pending})
}
