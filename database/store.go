package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rdpmakerop/spark-host-sell/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	listProductsQuery = "SELECT id, name, description, type, price, features, is_active FROM products WHERE is_active = TRUE ORDER BY price ASC"
	insertOrderQuery  = "INSERT INTO orders (id, user_id, product_id, total_price, status) VALUES ($1, $2, $3, $4, $5) RETURNING id, user_id, product_id, total_price, status, created_at"
	listOrdersQuery   = "SELECT o.id, o.created_at, o.status, o.total_price, p.name, p.type FROM orders o JOIN products p ON p.id = o.product_id WHERE o.user_id = $1 ORDER BY o.created_at DESC"
)

// PostgresStore serves the storefront straight from a Postgres database
// laid out like the hosted backend. Row-level access is emulated by always
// scoping order queries to the session's user.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) ListActiveProducts(ctx context.Context) ([]models.ProductRow, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "db.ListActiveProducts")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.ProductRow{}
	for rows.Next() {
		var (
			p        models.ProductRow
			features []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Type, &p.Price, &features, &p.IsActive); err != nil {
			span.RecordError(err)
			s.logger.Error("Failed to scan product", zap.Error(err))
			continue
		}
		p.Features = json.RawMessage(features)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, session *models.Session, order models.NewOrder) (models.Order, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "db.InsertOrder")
	defer span.End()

	if order.UserID != session.User.ID {
		return models.Order{}, fmt.Errorf("order user %q does not match session user", order.UserID)
	}

	var created models.Order
	err := s.db.QueryRowContext(ctx, insertOrderQuery,
		order.ID, order.UserID, order.ProductID, order.TotalPrice, order.Status,
	).Scan(&created.ID, &created.UserID, &created.ProductID, &created.TotalPrice, &created.Status, &created.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	span.SetAttributes(attribute.String("order.id", created.ID))
	return created, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, session *models.Session) ([]models.OrderRow, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "db.ListOrders")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, listOrdersQuery, session.User.ID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.OrderRow{}
	for rows.Next() {
		var o models.OrderRow
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.Status, &o.TotalPrice, &o.Products.Name, &o.Products.Type); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}
