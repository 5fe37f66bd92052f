package shared

import (
	"context"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations. Rolled back on every exit
	// path except a successful commit. Retried only on serialization failure
	// or deadlock reported by the database.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single statement operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the handle every storage call of one workflow goes through.
type Tx interface {
	Catalog() CatalogRepository
	Carts() CartRepository
	Orders() OrderRepository
	Events() OrderEventRepository
	DB() db.DBTX
}

type CatalogRepository interface {
	// FindProduct loads a product with its variants. forUpdate locks the variant rows.
	FindProduct(ctx context.Context, tx db.DBTX, id uuid.UUID, forUpdate bool) (*catalog.Product, error)
	CreateProduct(ctx context.Context, tx db.DBTX, p *catalog.Product) error
	// UpdateVariant leaves the stored stock untouched when stock is nil.
	UpdateVariant(ctx context.Context, tx db.DBTX, productID uuid.UUID, v catalog.Variant, stock *int, now time.Time) error
	DeleteProduct(ctx context.Context, tx db.DBTX, id uuid.UUID) error
	// DecrementStock subtracts qty only while stock >= qty. false means no row
	// satisfied the guard.
	DecrementStock(ctx context.Context, tx db.DBTX, productID uuid.UUID, sku string, qty int) (bool, error)
	// IncrementStock adds qty unconditionally. false means the variant no longer exists.
	IncrementStock(ctx context.Context, tx db.DBTX, productID uuid.UUID, sku string, qty int) (bool, error)
}

type CartRepository interface {
	FindByUserID(ctx context.Context, tx db.DBTX, userID uuid.UUID, forUpdate bool) (*cart.Cart, error)
	Create(ctx context.Context, tx db.DBTX, c *cart.Cart) error
	UpsertItem(ctx context.Context, tx db.DBTX, cartID uuid.UUID, item cart.Item) error
	DeleteItem(ctx context.Context, tx db.DBTX, cartID uuid.UUID, sku string) error
	ClearItems(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error
}

type OrderRepository interface {
	Create(ctx context.Context, tx db.DBTX, o *order.Order) error
	FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID, forUpdate bool) (*order.Order, error)
	UpdateStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, status order.Status, now time.Time) (bool, error)
}

type OrderEventRepository interface {
	Enqueue(ctx context.Context, tx db.DBTX, ev OrderEvent) error
}

// OrderEvent is an outbox entry describing a change to an order.
type OrderEvent struct {
	Kind    string
	OrderID uuid.UUID
	Payload []byte
	RunAt   time.Time
}

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)
