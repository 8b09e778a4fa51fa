package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rdpmakerop/spark-host-sell/auth"
	"github.com/rdpmakerop/spark-host-sell/database"
	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const (
	testToken  = "valid-token"
	testUserID = "7f1c9a52-4a53-4a4e-a8d1-1f0e8f5c3b21"
)

// fakeProvider accepts testToken only.
type fakeProvider struct {
	events     *auth.Broadcaster
	signedOut  []string
	signOutErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{events: auth.NewBroadcaster()}
}

func (p *fakeProvider) GetSession(_ context.Context, token string) (*models.Session, error) {
	switch token {
	case "":
		return nil, auth.ErrNoSession
	case testToken:
		return &models.Session{AccessToken: token, User: models.User{ID: testUserID, Email: "player@example.com"}}, nil
	}
	return nil, auth.ErrInvalidToken
}

func (p *fakeProvider) GetUser(ctx context.Context, token string) (*models.User, error) {
	s, err := p.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return &s.User, nil
}

func (p *fakeProvider) SignIn(ctx context.Context, token string) (*models.Session, error) {
	s, err := p.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	p.events.Publish(models.SessionEvent{Type: models.SessionSignedIn, UserID: s.User.ID})
	return s, nil
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.signedOut = append(p.signedOut, token)
	p.events.Publish(models.SessionEvent{Type: models.SessionSignedOut, UserID: testUserID})
	return nil
}

func (p *fakeProvider) Subscribe() (<-chan models.SessionEvent, func()) {
	return p.events.Subscribe()
}

type recordingPublisher struct {
	events []models.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
}

// setupStoreTest wires the order and catalog handlers to a PostgresStore
// backed by sqlmock.
func setupStoreTest(t *testing.T) (sqlmock.Sqlmock, *recordingPublisher, *gin.Engine) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := testLogger(t)
	store := database.NewPostgresStore(db, logger)
	publisher := &recordingPublisher{}

	router := newTestRouter(t, newFakeProvider())
	catalog := NewCatalogHandler(store, logger)
	orders := NewOrderHandler(store, publisher, logger)
	orders.newID = func() string { return "3b8f0f0e-8e0e-4b7a-9d55-4b1d7c7f0a11" }

	router.GET("/api/catalog", catalog.GetCatalog)
	router.POST("/api/orders", orders.PlaceOrder)
	router.GET("/api/orders", orders.GetOrderHistory)

	return mock, publisher, router
}

func newTestRouter(t *testing.T, provider auth.Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.SessionMiddleware(provider, testLogger(t)))
	return router
}

func authorized(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
