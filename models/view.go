package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Client routes used as redirect targets.
const (
	RouteCatalog = "/"
	RouteOrders  = "/orders"
	RouteAuth    = "/auth"
)

type BadgeTone string

const (
	BadgeGreen   BadgeTone = "green"
	BadgeYellow  BadgeTone = "yellow"
	BadgeRed     BadgeTone = "red"
	BadgeNeutral BadgeTone = "neutral"
)

type StatusBadge struct {
	Tone  BadgeTone `json:"tone"`
	Class string    `json:"class"`
}

var statusBadges = map[OrderStatus]StatusBadge{
	OrderStatusCompleted: {Tone: BadgeGreen, Class: "bg-green-500/20 text-green-400 border-green-500/50"},
	OrderStatusPending:   {Tone: BadgeYellow, Class: "bg-yellow-500/20 text-yellow-400 border-yellow-500/50"},
	OrderStatusCancelled: {Tone: BadgeRed, Class: "bg-red-500/20 text-red-400 border-red-500/50"},
}

var neutralBadge = StatusBadge{Tone: BadgeNeutral, Class: "bg-muted text-muted-foreground"}

// BadgeFor maps an order status to its badge. Unknown statuses are neutral.
func BadgeFor(status OrderStatus) StatusBadge {
	if badge, ok := statusBadges[status]; ok {
		return badge
	}
	return neutralBadge
}

func PriceLabel(price decimal.Decimal) string {
	return "$" + price.String()
}

type ProductCard struct {
	Product
	KindLabel  string `json:"kind_label"`
	Icon       string `json:"icon"`
	PriceLabel string `json:"price_label"`
}

func NewProductCard(p Product) ProductCard {
	return ProductCard{
		Product:    p,
		KindLabel:  p.Type.Label(),
		Icon:       p.Type.Icon(),
		PriceLabel: fmt.Sprintf("%s/month", PriceLabel(p.Price)),
	}
}

type CatalogTab struct {
	Kind  ProductKind   `json:"kind"`
	Label string        `json:"label"`
	Cards []ProductCard `json:"cards"`
}

type CatalogView struct {
	Tabs     []CatalogTab  `json:"tabs"`
	Products []ProductCard `json:"products"`
}

var catalogKinds = []ProductKind{ProductKindVPS, ProductKindMCServer}

// NewCatalogView partitions products into one tab per kind. Products of an
// unknown kind stay in the flat list but get no tab.
func NewCatalogView(products []Product) CatalogView {
	view := CatalogView{
		Tabs:     make([]CatalogTab, 0, len(catalogKinds)),
		Products: make([]ProductCard, 0, len(products)),
	}
	byKind := make(map[ProductKind][]ProductCard, len(catalogKinds))
	for _, p := range products {
		card := NewProductCard(p)
		view.Products = append(view.Products, card)
		byKind[p.Type] = append(byKind[p.Type], card)
	}
	for _, kind := range catalogKinds {
		cards := byKind[kind]
		if cards == nil {
			cards = []ProductCard{}
		}
		view.Tabs = append(view.Tabs, CatalogTab{Kind: kind, Label: kind.Label(), Cards: cards})
	}
	return view
}

type OrderEntry struct {
	ID          string          `json:"id"`
	ProductName string          `json:"product_name"`
	ProductType ProductKind     `json:"product_type"`
	KindLabel   string          `json:"kind_label"`
	Status      OrderStatus     `json:"status"`
	Badge       StatusBadge     `json:"badge"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	TotalLabel  string          `json:"total_label"`
	OrderedOn   string          `json:"ordered_on"`
}

type OrderHistoryView struct {
	Orders       []OrderEntry `json:"orders"`
	EmptyMessage string       `json:"empty_message,omitempty"`
}

const emptyHistoryMessage = "No orders yet. Start shopping!"

func NewOrderHistoryView(rows []OrderRow) OrderHistoryView {
	view := OrderHistoryView{Orders: make([]OrderEntry, 0, len(rows))}
	for _, row := range rows {
		view.Orders = append(view.Orders, OrderEntry{
			ID:          row.ID,
			ProductName: row.Products.Name,
			ProductType: row.Products.Type,
			KindLabel:   row.Products.Type.Label(),
			Status:      row.Status,
			Badge:       BadgeFor(row.Status),
			TotalPrice:  row.TotalPrice,
			TotalLabel:  PriceLabel(row.TotalPrice),
			OrderedOn:   row.CreatedAt.Format("Jan 2, 2006"),
		})
	}
	if len(view.Orders) == 0 {
		view.EmptyMessage = emptyHistoryMessage
	}
	return view
}
