package handlers

import (
	"net/http"

	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/models"
	"github.com/rdpmakerop/spark-host-sell/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderHandler struct {
	store     store.Store
	publisher EventPublisher
	logger    *zap.Logger
	newID     func() string
}

// NewOrderHandler wires the order endpoints. publisher may be nil when
// order events are disabled.
func NewOrderHandler(s store.Store, publisher EventPublisher, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		store:     s,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// PlaceOrder records a pending order for the signed-in user at the price the
// catalog showed.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "PlaceOrder")
	defer span.End()

	session := middleware.SessionFrom(c)
	if session == nil {
		middleware.RecordOrderPlaced("unauthenticated")
		requireLogin(c, "Please login to place an order")
		return
	}

	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be positive"})
		return
	}

	span.SetAttributes(
		attribute.String("user_id", session.User.ID),
		attribute.String("product_id", req.ProductID),
	)

	order, err := h.store.InsertOrder(ctx, session, models.NewOrder{
		ID:         h.newID(),
		UserID:     session.User.ID,
		ProductID:  req.ProductID,
		TotalPrice: req.Price,
		Status:     models.OrderStatusPending,
	})
	if err != nil {
		span.RecordError(err)
		middleware.RecordOrderPlaced("error")
		h.logger.Error("Failed to create order",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.String("product_id", req.ProductID),
			zap.Error(err),
		)
		backendFailure(c, http.StatusBadGateway, "Failed to place order")
		return
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	middleware.RecordOrderPlaced("ok")

	if h.publisher != nil {
		event := models.OrderEvent{
			OrderID:    order.ID,
			UserID:     order.UserID,
			ProductID:  order.ProductID,
			TotalPrice: order.TotalPrice,
			Status:     order.Status,
			EventType:  models.EventOrderPlaced,
		}
		// The order exists either way; a lost event only costs a notification.
		if err := h.publisher.PublishOrderEvent(ctx, event); err != nil {
			h.logger.Error("Failed to publish order_placed event",
				zap.String("trace_id", middleware.GetTraceID(ctx)),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("Order created",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_id", order.ID),
	)
	c.JSON(http.StatusCreated, gin.H{
		"order":        order,
		"redirect":     models.RouteOrders,
		"notification": notify(models.NotificationSuccess, "Order placed successfully!"),
	})
}

// GetOrderHistory lists the signed-in user's orders, newest first.
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "GetOrderHistory")
	defer span.End()

	session := middleware.SessionFrom(c)
	if session == nil {
		requireLogin(c, "Please login to view orders")
		return
	}
	span.SetAttributes(attribute.String("user_id", session.User.ID))

	rows, err := h.store.ListOrders(ctx, session)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to load orders",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Error(err),
		)
		backendFailure(c, http.StatusBadGateway, "Failed to load orders")
		return
	}

	span.SetAttributes(attribute.Int("orders.count", len(rows)))
	c.JSON(http.StatusOK, models.NewOrderHistoryView(rows))
}
