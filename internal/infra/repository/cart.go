package repository

import (
	"context"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"

	"github.com/google/uuid"
)

const (
	findCartSQL = `
SELECT id, user_id, created_at, updated_at
FROM carts
WHERE user_id = $1`

	findCartItemsSQL = `
SELECT product_id, variant_sku, quantity
FROM cart_items
WHERE cart_id = $1
ORDER BY id`

	insertCartSQL = `
INSERT INTO carts (id, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO NOTHING`

	upsertCartItemSQL = `
INSERT INTO cart_items (cart_id, product_id, variant_sku, quantity)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, variant_sku) DO UPDATE SET quantity = EXCLUDED.quantity`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND variant_sku = $2`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE id = $1`
)

type CartRepository struct{}

func NewCartRepository() *CartRepository {
	return &CartRepository{}
}

// FindByUserID loads the cart with its lines in insertion order. forUpdate
// locks the cart row, which serializes checkouts of the same cart.
func (r *CartRepository) FindByUserID(ctx context.Context, tx db.DBTX, userID uuid.UUID, forUpdate bool) (*cart.Cart, error) {
	query := findCartSQL
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		id                   uuid.UUID
		createdAt, updatedAt time.Time
	)
	if err := tx.QueryRow(ctx, query, userID).Scan(&id, &userID, &createdAt, &updatedAt); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("cart not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find cart", err, infra.KindDBFailure)
	}

	rows, err := tx.Query(ctx, findCartItemsSQL, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query cart items", err, infra.KindDBFailure)
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var (
			productID uuid.UUID
			sku       string
			quantity  int
		)
		if err := rows.Scan(&productID, &sku, &quantity); err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart item", err, infra.KindDBFailure)
		}
		item, err := cart.NewItem(productID, sku, quantity)
		if err != nil {
			return nil, infra.WrapRepoErr("stored cart item is invalid", err, infra.KindDBFailure)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate cart items", err, infra.KindDBFailure)
	}

	return cart.ReconstructCart(id, userID, items, createdAt, updatedAt), nil
}

// Create is a no-op when the user already has a cart.
func (r *CartRepository) Create(ctx context.Context, tx db.DBTX, c *cart.Cart) error {
	if _, err := tx.Exec(ctx, insertCartSQL, c.ID(), c.UserID(), c.CreatedAt(), c.UpdatedAt()); err != nil {
		return infra.WrapRepoErr("failed to create cart", err, infra.ClassifyPgError(err))
	}
	return nil
}

func (r *CartRepository) UpsertItem(ctx context.Context, tx db.DBTX, cartID uuid.UUID, item cart.Item) error {
	if _, err := tx.Exec(ctx, upsertCartItemSQL, cartID, item.ProductID(), item.SKU(), item.Quantity()); err != nil {
		return infra.WrapRepoErr("failed to upsert cart item", err, infra.ClassifyPgError(err))
	}
	return r.touch(ctx, tx, cartID)
}

func (r *CartRepository) DeleteItem(ctx context.Context, tx db.DBTX, cartID uuid.UUID, sku string) error {
	tag, err := tx.Exec(ctx, deleteCartItemSQL, cartID, sku)
	if err != nil {
		return infra.WrapRepoErr("failed to delete cart item", err, infra.KindDBFailure)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("cart item not found", nil, infra.KindNotFound)
	}
	return r.touch(ctx, tx, cartID)
}

func (r *CartRepository) ClearItems(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to clear cart", err, infra.KindDBFailure)
	}
	return r.touch(ctx, tx, cartID)
}

func (r *CartRepository) touch(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, touchCartSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to touch cart", err, infra.KindDBFailure)
	}
	return nil
}
