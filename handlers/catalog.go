package handlers

import (
	"net/http"

	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/models"
	"github.com/rdpmakerop/spark-host-sell/store"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	store  store.Store
	logger *zap.Logger
}

func NewCatalogHandler(s store.Store, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{store: s, logger: logger}
}

// GetCatalog serves the product catalog split into one tab per kind.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-service").Start(c.Request.Context(), "GetCatalog")
	defer span.End()

	rows, err := h.store.ListActiveProducts(ctx)
	if err != nil {
		span.RecordError(err)
		middleware.RecordCatalogFetch("error")
		h.logger.Error("Failed to fetch products",
			zap.String("trace_id", middleware.GetTraceID(ctx)),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Catalog unavailable",
			"state": "loading",
		})
		return
	}

	products := models.ActiveProducts(rows)
	span.SetAttributes(attribute.Int("products.count", len(products)))
	middleware.RecordCatalogFetch("ok")

	c.JSON(http.StatusOK, models.NewCatalogView(products))
}
