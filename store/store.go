// Package store defines the query surface the storefront needs from the
// hosted backend. Implementations live in backend (REST) and database
// (direct Postgres).
package store

import (
	"context"

	"github.com/rdpmakerop/spark-host-sell/models"
)

type Store interface {
	// ListActiveProducts returns products with is_active = true ordered by
	// price ascending.
	ListActiveProducts(ctx context.Context) ([]models.ProductRow, error)
	// InsertOrder writes one order row on behalf of the session's user.
	InsertOrder(ctx context.Context, session *models.Session, order models.NewOrder) (models.Order, error)
	// ListOrders returns the session user's orders joined with product
	// name and type, newest first.
	ListOrders(ctx context.Context, session *models.Session) ([]models.OrderRow, error)
}
