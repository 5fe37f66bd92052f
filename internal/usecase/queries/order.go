package queries

//go:generate mockgen -source=order.go -destination=../../../tests/mock/queries/order_mock.go -package=queriesmock

import (
	"context"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/domain/user"
	"storefront/internal/infra"

	"github.com/google/uuid"
)

type SnapshotView struct {
	Title      string            `json:"title"`
	Price      int64             `json:"price"`
	Image      *string           `json:"image"`
	Attributes map[string]string `json:"attributes"`
}

type OrderItemView struct {
	ProductID  uuid.UUID    `json:"productId"`
	VariantSKU string       `json:"variantSku"`
	Quantity   int          `json:"quantity"`
	Snapshot   SnapshotView `json:"snapshot"`
}

type ShippingAddressView struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          uuid.UUID           `json:"userId"`
	Items           []OrderItemView     `json:"items"`
	Total           int64               `json:"total"`
	Status          string              `json:"status"`
	ShippingAddress ShippingAddressView `json:"shippingAddress"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func OrderViewFromDomain(o *order.Order) *OrderView {
	items := make([]OrderItemView, 0, len(o.Items()))
	for _, it := range o.Items() {
		snap := it.Snapshot()
		items = append(items, OrderItemView{
			ProductID:  it.ProductID(),
			VariantSKU: it.SKU(),
			Quantity:   it.Quantity(),
			Snapshot: SnapshotView{
				Title:      snap.Title(),
				Price:      snap.Price().Minor(),
				Image:      snap.Image(),
				Attributes: snap.Attributes(),
			},
		})
	}
	addr := o.ShippingAddress()
	return &OrderView{
		ID:          o.ID(),
		OrderNumber: o.Number(),
		UserID:      o.UserID(),
		Items:       items,
		Total:       o.Total().Minor(),
		Status:      o.Status().String(),
		ShippingAddress: ShippingAddressView{
			Street:  addr.Street,
			City:    addr.City,
			State:   addr.State,
			Zip:     addr.Zip,
			Country: addr.Country,
		},
		CreatedAt: o.CreatedAt(),
		UpdatedAt: o.UpdatedAt(),
	}
}

type OrderReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page Page) ([]*OrderView, error)
}

type OrderQueries interface {
	// GetByID returns the order when actor owns it or is an administrator.
	GetByID(ctx context.Context, id uuid.UUID, actor user.Actor) (*OrderView, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *Cursor, limit int) ([]*OrderView, *Cursor, error)
}

type orderQueriesImpl struct {
	store OrderReadStore
}

func NewOrderQueries(store OrderReadStore) OrderQueries {
	return &orderQueriesImpl{store: store}
}

func (q *orderQueriesImpl) GetByID(ctx context.Context, id uuid.UUID, actor user.Actor) (*OrderView, error) {
	v, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	// Another user's order is reported as missing, not forbidden.
	if v.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrOrderNotFound
	}
	return v, nil
}

func (q *orderQueriesImpl) ListByUser(ctx context.Context, userID uuid.UUID, cursor *Cursor, limit int) ([]*OrderView, *Cursor, error) {
	limit = ValidateLimit(limit)
	page, err := pageFor(cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	rows, err := q.store.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, nil, err
	}

	rows, next := nextCursor(rows, limit, func(v *OrderView) (time.Time, uuid.UUID) {
		return v.CreatedAt, v.ID
	})
	return rows, next, nil
}
