// Package backend talks to the hosted backend's REST query surface
// (PostgREST dialect) on behalf of the storefront.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rdpmakerop/spark-host-sell/circuitbreaker"
	"github.com/rdpmakerop/spark-host-sell/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var ErrUnexpectedStatus = errors.New("unexpected backend status")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrUnexpectedStatus }

const (
	orderHistorySelect = "id,created_at,status,total_price,products(name,type)"
	tracerName         = "storefront-service"
)

type RESTStore struct {
	baseURL        string
	anonKey        string
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *zap.Logger
}

func NewRESTStore(baseURL, anonKey string, timeout time.Duration, logger *zap.Logger) *RESTStore {
	return &RESTStore{
		baseURL:        baseURL,
		anonKey:        anonKey,
		httpClient:     &http.Client{Timeout: timeout},
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		logger:         logger,
	}
}

func (s *RESTStore) ListActiveProducts(ctx context.Context) ([]models.ProductRow, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "backend.ListActiveProducts")
	defer span.End()

	query := url.Values{}
	query.Set("select", "*")
	query.Set("is_active", "eq.true")
	query.Set("order", "price.asc")

	var rows []models.ProductRow
	if err := s.do(ctx, http.MethodGet, "products", query, s.anonKey, nil, &rows); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	span.SetAttributes(attribute.Int("products.count", len(rows)))
	return rows, nil
}

func (s *RESTStore) InsertOrder(ctx context.Context, session *models.Session, order models.NewOrder) (models.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "backend.InsertOrder")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", order.ProductID))

	var created []models.Order
	err := s.do(ctx, http.MethodPost, "orders", nil, session.AccessToken, []models.NewOrder{order}, &created)
	if err != nil {
		span.RecordError(err)
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	if len(created) != 1 {
		return models.Order{}, fmt.Errorf("failed to insert order: backend returned %d rows", len(created))
	}
	return created[0], nil
}

func (s *RESTStore) ListOrders(ctx context.Context, session *models.Session) ([]models.OrderRow, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "backend.ListOrders")
	defer span.End()

	query := url.Values{}
	query.Set("select", orderHistorySelect)
	query.Set("user_id", "eq."+session.User.ID)
	query.Set("order", "created_at.desc")

	var rows []models.OrderRow
	if err := s.do(ctx, http.MethodGet, "orders", query, session.AccessToken, nil, &rows); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	span.SetAttributes(attribute.Int("orders.count", len(rows)))
	return rows, nil
}

// do issues one request. Transport errors and 5xx answers count against the
// circuit breaker; 4xx answers are the caller's problem and do not.
func (s *RESTStore) do(ctx context.Context, method, table string, query url.Values, bearer string, body, out any) error {
	endpoint := s.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var clientErr error
	err := s.circuitBreaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("apikey", s.anonKey)
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Prefer", "return=representation")
		}
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			apiErr := decodeAPIError(resp)
			if resp.StatusCode >= 500 {
				return apiErr
			}
			clientErr = apiErr
			return nil
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			s.logger.Warn("Backend circuit open", zap.String("table", table))
		}
		return err
	}
	return clientErr
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	return apiErr
}
