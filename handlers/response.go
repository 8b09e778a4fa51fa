package handlers

import (
	"context"
	"net/http"

	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/gin-gonic/gin"
)

// EventPublisher is satisfied by kafka.Publisher.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

func notify(level models.NotificationLevel, message string) models.Notification {
	return models.Notification{Level: level, Message: message}
}

// requireLogin answers an anonymous request for an authenticated view.
func requireLogin(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":        "Authentication required",
		"redirect":     models.RouteAuth,
		"notification": notify(models.NotificationError, message),
	})
}

func backendFailure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"error":        message,
		"notification": notify(models.NotificationError, message),
	})
}
