package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProductID = "c2a3b0b4-5d4e-4f3a-8a3b-9b8a7c6d5e4f"

func orderRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type orderResponse struct {
	Order        models.Order        `json:"order"`
	Redirect     string              `json:"redirect"`
	Notification models.Notification `json:"notification"`
	Error        string              `json:"error"`
}

func decodeOrderResponse(t *testing.T, w *httptest.ResponseRecorder) orderResponse {
	t.Helper()
	var resp orderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOrderHandler_PlaceOrder_Success(t *testing.T) {
	mock, publisher, router := setupStoreTest(t)
	price := decimal.RequireFromString("9.99")

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("3b8f0f0e-8e0e-4b7a-9d55-4b1d7c7f0a11", testUserID, testProductID, price, models.OrderStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "product_id", "total_price", "status", "created_at"}).
			AddRow("3b8f0f0e-8e0e-4b7a-9d55-4b1d7c7f0a11", testUserID, testProductID, "9.99", "pending", time.Now()))

	w := serve(router, authorized(orderRequest(t, map[string]any{"product_id": testProductID, "price": 9.99})))

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeOrderResponse(t, w)
	assert.Equal(t, models.RouteOrders, resp.Redirect)
	assert.Equal(t, models.NotificationSuccess, resp.Notification.Level)
	assert.Equal(t, models.OrderStatusPending, resp.Order.Status)
	assert.True(t, resp.Order.TotalPrice.Equal(price))

	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventOrderPlaced, publisher.events[0].EventType)
	assert.Equal(t, testUserID, publisher.events[0].UserID)

	assert.NoError(t, mock.ExpectationsWereMet(), "database expectations were not met")
}

func TestOrderHandler_PlaceOrder_NoSession(t *testing.T) {
	mock, publisher, router := setupStoreTest(t)

	w := serve(router, orderRequest(t, map[string]any{"product_id": testProductID, "price": 9.99}))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeOrderResponse(t, w)
	assert.Equal(t, models.RouteAuth, resp.Redirect)
	assert.Equal(t, "Please login to place an order", resp.Notification.Message)
	assert.Empty(t, publisher.events)

	assert.NoError(t, mock.ExpectationsWereMet(), "unexpected database calls were made")
}

func TestOrderHandler_PlaceOrder_InvalidToken(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(t, newFakeProvider())
	router.POST("/api/orders", NewOrderHandler(store, nil, testLogger(t)).PlaceOrder)

	req := orderRequest(t, map[string]any{"product_id": testProductID, "price": 9.99})
	req.Header.Set("Authorization", "Bearer expired")
	w := serve(router, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, store.insertCalls)
}

func TestOrderHandler_PlaceOrder_InvalidInput(t *testing.T) {
	tests := map[string]map[string]any{
		"missing product":  {"price": 9.99},
		"product not uuid": {"product_id": "vps-1", "price": 9.99},
		"zero price":       {"product_id": testProductID, "price": 0},
		"negative price":   {"product_id": testProductID, "price": -5},
		"missing price":    {"product_id": testProductID},
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			store := &stubStore{}
			router := newTestRouter(t, newFakeProvider())
			router.POST("/api/orders", NewOrderHandler(store, nil, testLogger(t)).PlaceOrder)

			w := serve(router, authorized(orderRequest(t, body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, store.insertCalls)
		})
	}
}

func TestOrderHandler_PlaceOrder_InsertFailure(t *testing.T) {
	store := &stubStore{err: errors.New("foreign key violation")}
	publisher := &recordingPublisher{}
	router := newTestRouter(t, newFakeProvider())
	router.POST("/api/orders", NewOrderHandler(store, publisher, testLogger(t)).PlaceOrder)

	w := serve(router, authorized(orderRequest(t, map[string]any{"product_id": testProductID, "price": "4.99"})))

	require.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeOrderResponse(t, w)
	assert.Equal(t, "Failed to place order", resp.Notification.Message)
	assert.Equal(t, models.NotificationError, resp.Notification.Level)
	assert.Equal(t, 1, store.insertCalls)
	assert.Empty(t, publisher.events)
}

func TestOrderHandler_PlaceOrder_PublishFailureStillSucceeds(t *testing.T) {
	store := &stubStore{}
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	router := newTestRouter(t, newFakeProvider())
	router.POST("/api/orders", NewOrderHandler(store, publisher, testLogger(t)).PlaceOrder)

	w := serve(router, authorized(orderRequest(t, map[string]any{"product_id": testProductID, "price": 4.99})))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, store.insertCalls)
	assert.Len(t, publisher.events, 1)
}

func TestOrderHandler_GetOrderHistory_Success(t *testing.T) {
	mock, _, router := setupStoreTest(t)

	rows := sqlmock.NewRows([]string{"id", "created_at", "status", "total_price", "name", "type"}).
		AddRow("o3", time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), "completed", "19.99", "Pro", "vps").
		AddRow("o2", time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), "pending", "4.99", "Creeper", "mc_server").
		AddRow("o1", time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), "cancelled", "9.99", "Starter", "vps").
		AddRow("o0", time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), "unknown", "9.99", "Starter", "vps")

	mock.ExpectQuery("SELECT (.+) FROM orders o JOIN products p ON p.id = o.product_id WHERE o.user_id = \\$1 ORDER BY o.created_at DESC").
		WithArgs(testUserID).
		WillReturnRows(rows)

	w := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/api/orders", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	var view models.OrderHistoryView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Orders, 4)

	tones := []models.BadgeTone{}
	for _, entry := range view.Orders {
		tones = append(tones, entry.Badge.Tone)
	}
	assert.Equal(t, []models.BadgeTone{models.BadgeGreen, models.BadgeYellow, models.BadgeRed, models.BadgeNeutral}, tones)
	assert.Equal(t, "MC Server", view.Orders[1].KindLabel)
	assert.Equal(t, "Mar 9, 2025", view.Orders[0].OrderedOn)

	assert.NoError(t, mock.ExpectationsWereMet(), "database expectations were not met")
}

func TestOrderHandler_GetOrderHistory_NoSession(t *testing.T) {
	mock, _, router := setupStoreTest(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeOrderResponse(t, w)
	assert.Equal(t, models.RouteAuth, resp.Redirect)
	assert.Equal(t, "Please login to view orders", resp.Notification.Message)

	assert.NoError(t, mock.ExpectationsWereMet(), "unexpected database calls were made")
}

func TestOrderHandler_GetOrderHistory_Empty(t *testing.T) {
	router := newTestRouter(t, newFakeProvider())
	router.GET("/api/orders", NewOrderHandler(&stubStore{}, nil, testLogger(t)).GetOrderHistory)

	w := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/api/orders", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orders":[],"empty_message":"No orders yet. Start shopping!"}`, w.Body.String())
}

func TestOrderHandler_GetOrderHistory_BackendFailure(t *testing.T) {
	router := newTestRouter(t, newFakeProvider())
	router.GET("/api/orders", NewOrderHandler(&stubStore{err: errors.New("timeout")}, nil, testLogger(t)).GetOrderHistory)

	w := serve(router, authorized(httptest.NewRequest(http.MethodGet, "/api/orders", nil)))

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed to load orders", decodeOrderResponse(t, w).Notification.Message)
}
