package readstore

import (
	"context"

	"storefront/internal/domain/order"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/infra/repository"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	orderColumns = `id, order_number, user_id, total_minor, status, shipping_address, created_at, updated_at`

	getOrderViewSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersFirstPageSQL = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	listOrdersKeysetSQL = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND (created_at, id) < ($2, $3)
ORDER BY created_at DESC, id DESC
LIMIT $4`

	orderItemsByOrdersSQL = `
SELECT order_id, product_id, variant_sku, quantity, snapshot
FROM order_items
WHERE order_id = ANY($1)
ORDER BY order_id, position`
)

type OrderReadStore struct {
	db db.DBTX
}

var _ queries.OrderReadStore = (*OrderReadStore)(nil)

func NewOrderReadStore(db db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: db}
}

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	v, err := scanOrderView(r.db.QueryRow(ctx, getOrderViewSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("order not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get order view", err, infra.KindDBFailure)
	}

	if err := r.attachItems(ctx, []*queries.OrderView{v}); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *OrderReadStore) ListByUser(ctx context.Context, userID uuid.UUID, page queries.Page) ([]*queries.OrderView, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if page.IsFirst() {
		rows, err = r.db.Query(ctx, listOrdersFirstPageSQL, userID, page.Limit)
	} else {
		rows, err = r.db.Query(ctx, listOrdersKeysetSQL, userID, page.AfterTime, page.AfterID, page.Limit)
	}
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list orders", err, infra.KindDBFailure)
	}
	defer rows.Close()

	views := make([]*queries.OrderView, 0, page.Limit)
	for rows.Next() {
		v, err := scanOrderView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan order", err, infra.KindDBFailure)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate orders", err, infra.KindDBFailure)
	}
	rows.Close()

	if err := r.attachItems(ctx, views); err != nil {
		return nil, err
	}
	return views, nil
}

// attachItems loads the items of all given orders in one query.
func (r *OrderReadStore) attachItems(ctx context.Context, views []*queries.OrderView) error {
	if len(views) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*queries.OrderView, len(views))
	ids := make([]uuid.UUID, 0, len(views))
	for _, v := range views {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	rows, err := r.db.Query(ctx, orderItemsByOrdersSQL, ids)
	if err != nil {
		return infra.WrapRepoErr("failed to query order items", err, infra.KindDBFailure)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    queries.OrderItemView
			snap    repository.SnapshotRecord
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.VariantSKU, &item.Quantity, &snap); err != nil {
			return infra.WrapRepoErr("failed to scan order item", err, infra.KindDBFailure)
		}
		item.Snapshot = queries.SnapshotView{
			Title:      snap.Title,
			Price:      snap.Price,
			Image:      snap.Image,
			Attributes: snap.Attributes,
		}
		if v, ok := byID[orderID]; ok {
			v.Items = append(v.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return infra.WrapRepoErr("failed to iterate order items", err, infra.KindDBFailure)
	}
	return nil
}

func scanOrderView(row pgx.Row) (*queries.OrderView, error) {
	var (
		v    queries.OrderView
		addr order.ShippingAddress
	)
	if err := row.Scan(&v.ID, &v.OrderNumber, &v.UserID, &v.Total, &v.Status, &addr, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.ShippingAddress = queries.ShippingAddressView(addr)
	v.Items = []queries.OrderItemView{}
	return &v, nil
}
