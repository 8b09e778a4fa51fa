package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rdpmakerop/spark-host-sell/circuitbreaker"
	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *RESTStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTStore(srv.URL, "anon-key", 5*time.Second, zaptest.NewLogger(t))
}

func testSession() *models.Session {
	return &models.Session{AccessToken: "user-token", User: models.User{ID: "user-1"}}
}

func TestRESTStore_ListActiveProducts(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "eq.true", r.URL.Query().Get("is_active"))
		assert.Equal(t, "price.asc", r.URL.Query().Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"p1","name":"Starter","description":"","type":"vps","price":4.99,"features":["1 vCPU",7],"is_active":true},
			{"id":"p2","name":"Creeper","description":"","type":"mc_server","price":"9.99","features":{"bad":true},"is_active":true}
		]`))
	})

	rows, err := store.ListActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Price.Equal(decimal.RequireFromString("4.99")))
	assert.Equal(t, []string{"1 vCPU"}, rows[0].ToProduct().Features)
	assert.Equal(t, []string{}, rows[1].ToProduct().Features)
}

func TestRESTStore_InsertOrder(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/orders", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body []models.NewOrder
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body, 1) {
			assert.Equal(t, "user-1", body[0].UserID)
			assert.Equal(t, models.OrderStatusPending, body[0].Status)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"o1","user_id":"user-1","product_id":"p1","total_price":4.99,"status":"pending","created_at":"2025-03-07T12:00:00Z"}]`))
	})

	order, err := store.InsertOrder(context.Background(), testSession(), models.NewOrder{
		ID:         "o1",
		UserID:     "user-1",
		ProductID:  "p1",
		TotalPrice: decimal.RequireFromString("4.99"),
		Status:     models.OrderStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestRESTStore_ListOrders(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, orderHistorySelect, r.URL.Query().Get("select"))

		_, _ = w.Write([]byte(`[{"id":"o2","created_at":"2025-03-08T10:00:00Z","status":"completed","total_price":9.99,"products":{"name":"Creeper","type":"mc_server"}}]`))
	})

	rows, err := store.ListOrders(context.Background(), testSession())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Creeper", rows[0].Products.Name)
	assert.Equal(t, models.OrderStatusCompleted, rows[0].Status)
}

func TestRESTStore_ClientErrorDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"42501","message":"permission denied for table orders"}`))
	})

	for i := 0; i < 6; i++ {
		_, err := store.ListOrders(context.Background(), testSession())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	}
	assert.Equal(t, int32(6), calls.Load())
	assert.Equal(t, circuitbreaker.StateClosed, store.circuitBreaker.GetState())
}

func TestRESTStore_ServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := store.ListActiveProducts(context.Background())
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	}
	_, err := store.ListActiveProducts(context.Background())
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, int32(5), calls.Load())
}
