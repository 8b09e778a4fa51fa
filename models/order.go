package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	ProductID  string          `json:"product_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewOrder is the row written by the order action. TotalPrice is the price
// the customer saw; it is never recomputed from the product afterwards.
type NewOrder struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	ProductID  string          `json:"product_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     OrderStatus     `json:"status"`
}

type PlaceOrderRequest struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Price     decimal.Decimal `json:"price"`
}

type OrderProduct struct {
	Name string      `json:"name"`
	Type ProductKind `json:"type"`
}

// OrderRow is an orders row joined with the product it references.
type OrderRow struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Products   OrderProduct    `json:"products"`
}

// OrderEvent travels on the order events topic.
type OrderEvent struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	ProductID  string          `json:"product_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     OrderStatus     `json:"status"`
	EventType  string          `json:"event_type"` // order_placed, order_completed, order_cancelled
}

const (
	EventOrderPlaced    = "order_placed"
	EventOrderCompleted = "order_completed"
	EventOrderCancelled = "order_cancelled"
)
