package queries

//go:generate mockgen -source=cart.go -destination=../../../tests/mock/queries/cart_mock.go -package=queriesmock

import (
	"context"

	"github.com/google/uuid"
)

// CartLineRow is a cart line joined against the live catalog. Catalog fields
// are nil when the product or variant no longer exists.
type CartLineRow struct {
	ProductID    uuid.UUID
	VariantSKU   string
	Quantity     int
	Title        *string
	Price        *int64
	Stock        *int
	Image        *string
	Attributes   map[string]string
	VariantFound bool
}

type CartLineView struct {
	ProductID  uuid.UUID         `json:"productId"`
	VariantSKU string            `json:"variantSku"`
	Quantity   int               `json:"quantity"`
	Title      string            `json:"title"`
	UnitPrice  int64             `json:"unitPrice"`
	LineTotal  int64             `json:"lineTotal"`
	Stock      int               `json:"stock"`
	Image      *string           `json:"image"`
	Attributes map[string]string `json:"attributes"`
	Available  bool              `json:"available"`
}

type CartView struct {
	UserID    uuid.UUID      `json:"userId"`
	Items     []CartLineView `json:"items"`
	ItemCount int            `json:"itemCount"`
	Subtotal  int64          `json:"subtotal"`
}

type CartReadStore interface {
	FindLines(ctx context.Context, userID uuid.UUID) ([]CartLineRow, error)
}

type CartQueries interface {
	// GetCart resolves every line against current catalog data. A missing
	// cart is returned as an empty one.
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type cartQueriesImpl struct {
	store CartReadStore
}

func NewCartQueries(store CartReadStore) CartQueries {
	return &cartQueriesImpl{store: store}
}

func (q *cartQueriesImpl) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	rows, err := q.store.FindLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{UserID: userID, Items: make([]CartLineView, 0, len(rows))}
	for _, r := range rows {
		line := CartLineView{
			ProductID:  r.ProductID,
			VariantSKU: r.VariantSKU,
			Quantity:   r.Quantity,
			Image:      r.Image,
			Attributes: r.Attributes,
		}
		if r.Title != nil {
			line.Title = *r.Title
		}
		if r.VariantFound && r.Price != nil && r.Stock != nil {
			line.UnitPrice = *r.Price
			line.Stock = *r.Stock
			line.LineTotal = *r.Price * int64(r.Quantity)
			line.Available = r.Quantity <= *r.Stock
		}
		if line.Attributes == nil {
			line.Attributes = map[string]string{}
		}
		if line.Available {
			view.Subtotal += line.LineTotal
		}
		view.ItemCount += r.Quantity
		view.Items = append(view.Items, line)
	}
	return view, nil
}
