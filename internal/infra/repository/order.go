package repository

import (
	"context"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	insertOrderSQL = `
INSERT INTO orders (id, order_number, user_id, total_minor, status, shipping_address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertOrderItemSQL = `
INSERT INTO order_items (order_id, position, product_id, variant_sku, quantity, snapshot)
VALUES ($1, $2, $3, $4, $5, $6)`

	findOrderSQL = `
SELECT id, order_number, user_id, total_minor, status, shipping_address, created_at, updated_at
FROM orders
WHERE id = $1`

	findOrderItemsSQL = `
SELECT product_id, variant_sku, quantity, snapshot
FROM order_items
WHERE order_id = $1
ORDER BY position`

	updateOrderStatusSQL = `
UPDATE orders
SET status = $2, updated_at = $3
WHERE id = $1`
)

// SnapshotRecord is the JSONB shape of order_items.snapshot. It is shared
// with the read store so both sides agree on the stored format.
type SnapshotRecord struct {
	Title      string            `json:"title"`
	Price      int64             `json:"price"`
	Image      *string           `json:"image"`
	Attributes map[string]string `json:"attributes"`
}

func (s SnapshotRecord) toDomain() (order.Snapshot, error) {
	price, err := catalog.NewMoney(s.Price)
	if err != nil {
		return order.Snapshot{}, err
	}
	return order.ReconstructSnapshot(s.Title, price, s.Image, s.Attributes), nil
}

func snapshotRecordFrom(s order.Snapshot) SnapshotRecord {
	attrs := s.Attributes()
	if attrs == nil {
		attrs = map[string]string{}
	}
	return SnapshotRecord{
		Title:      s.Title(),
		Price:      s.Price().Minor(),
		Image:      s.Image(),
		Attributes: attrs,
	}
}

type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func (r *OrderRepository) Create(ctx context.Context, tx db.DBTX, o *order.Order) error {
	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID(), o.Number(), o.UserID(), o.Total().Minor(), o.Status().String(),
		o.ShippingAddress(), o.CreatedAt(), o.UpdatedAt()); err != nil {
		return infra.WrapRepoErr("failed to insert order", err, infra.ClassifyPgError(err))
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items() {
		batch.Queue(insertOrderItemSQL, o.ID(), i, it.ProductID(), it.SKU(), it.Quantity(), snapshotRecordFrom(it.Snapshot()))
	}
	return sendBatch(ctx, tx, batch, "failed to insert order item")
}

// FindByID loads the order and its items. forUpdate locks the order row so a
// concurrent cancel or status change waits.
func (r *OrderRepository) FindByID(ctx context.Context, tx db.DBTX, id uuid.UUID, forUpdate bool) (*order.Order, error) {
	query := findOrderSQL
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		number               string
		userID               uuid.UUID
		totalMinor           int64
		status               string
		address              order.ShippingAddress
		createdAt, updatedAt time.Time
	)
	err := tx.QueryRow(ctx, query, id).Scan(&id, &number, &userID, &totalMinor, &status, &address, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find order", err, infra.KindDBFailure)
	}

	st, err := order.NewStatus(status)
	if err != nil {
		return nil, infra.WrapRepoErr("stored order status is invalid", err, infra.KindDBFailure)
	}
	total, err := catalog.NewMoney(totalMinor)
	if err != nil {
		return nil, infra.WrapRepoErr("stored order total is invalid", err, infra.KindDBFailure)
	}

	items, err := r.findItems(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	return order.ReconstructOrder(id, number, userID, items, total, st, address, createdAt, updatedAt), nil
}

func (r *OrderRepository) findItems(ctx context.Context, tx db.DBTX, orderID uuid.UUID) ([]order.Item, error) {
	rows, err := tx.Query(ctx, findOrderItemsSQL, orderID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query order items", err, infra.KindDBFailure)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var (
			productID uuid.UUID
			sku       string
			quantity  int
			rec       SnapshotRecord
		)
		if err := rows.Scan(&productID, &sku, &quantity, &rec); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order item", err, infra.KindDBFailure)
		}
		snapshot, err := rec.toDomain()
		if err != nil {
			return nil, infra.WrapRepoErr("stored snapshot is invalid", err, infra.KindDBFailure)
		}
		item, err := order.NewItem(productID, sku, quantity, snapshot)
		if err != nil {
			return nil, infra.WrapRepoErr("stored order item is invalid", err, infra.KindDBFailure)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order items", err, infra.KindDBFailure)
	}
	return items, nil
}

// UpdateStatus writes the status without any transition check. false means
// the order does not exist.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, status order.Status, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, updateOrderStatusSQL, id, status.String(), now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to update order status", err, infra.ClassifyPgError(err))
	}
	return tag.RowsAffected() > 0, nil
}
