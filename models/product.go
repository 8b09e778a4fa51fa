package models

import (
	"encoding/json"
	"slices"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	ProductKindVPS      ProductKind = "vps"
	ProductKindMCServer ProductKind = "mc_server"
)

// Label is the short name shown on cards and order entries.
func (k ProductKind) Label() string {
	if k == ProductKindVPS {
		return "VPS"
	}
	return "MC Server"
}

func (k ProductKind) Icon() string {
	if k == ProductKindVPS {
		return "server"
	}
	return "box"
}

// ProductRow is a products row as returned by the backend. Features are kept
// raw because the column is free-form JSON maintained by the admin tooling.
type ProductRow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        ProductKind     `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Features    json.RawMessage `json:"features"`
	IsActive    bool            `json:"is_active"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        ProductKind     `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Features    []string        `json:"features"`
}

// SanitizeFeatures decodes a features column. Anything that is not a JSON
// array yields an empty list and non-string entries are dropped.
func SanitizeFeatures(raw json.RawMessage) []string {
	features := []string{}
	if len(raw) == 0 {
		return features
	}

	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return features
	}
	for _, entry := range entries {
		if s, ok := entry.(string); ok {
			features = append(features, s)
		}
	}
	return features
}

func (r ProductRow) ToProduct() Product {
	return Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Price:       r.Price,
		Features:    SanitizeFeatures(r.Features),
	}
}

// ActiveProducts maps rows to products, keeping only active rows ordered by
// ascending price. Rows with equal prices keep their backend order.
func ActiveProducts(rows []ProductRow) []Product {
	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		if !row.IsActive {
			continue
		}
		products = append(products, row.ToProduct())
	}
	slices.SortStableFunc(products, func(a, b Product) int {
		return a.Price.Cmp(b.Price)
	})
	return products
}
