package readstore

import (
	"context"

	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Lines whose product or variant was deleted still come back, with the
// catalog columns NULL.
const cartLinesSQL = `
SELECT ci.product_id, ci.variant_sku, ci.quantity,
       p.title, pv.price_minor, pv.stock, pv.images[1], pv.attributes,
       pv.id IS NOT NULL AS variant_found
FROM carts c
JOIN cart_items ci ON ci.cart_id = c.id
LEFT JOIN products p ON p.id = ci.product_id
LEFT JOIN product_variants pv ON pv.product_id = ci.product_id AND pv.sku = ci.variant_sku
WHERE c.user_id = $1
ORDER BY ci.id`

type CartReadStore struct {
	db db.DBTX
}

var _ queries.CartReadStore = (*CartReadStore)(nil)

func NewCartReadStore(db db.DBTX) *CartReadStore {
	return &CartReadStore{db: db}
}

func (r *CartReadStore) FindLines(ctx context.Context, userID uuid.UUID) ([]queries.CartLineRow, error) {
	rows, err := r.db.Query(ctx, cartLinesSQL, userID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query cart lines", err, infra.KindDBFailure)
	}
	defer rows.Close()

	var lines []queries.CartLineRow
	for rows.Next() {
		var (
			line  queries.CartLineRow
			title pgtype.Text
			price pgtype.Int8
			stock pgtype.Int4
			image pgtype.Text
		)
		if err := rows.Scan(&line.ProductID, &line.VariantSKU, &line.Quantity,
			&title, &price, &stock, &image, &line.Attributes, &line.VariantFound); err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart line", err, infra.KindDBFailure)
		}
		line.Title = pgconv.StringPtrFromPgtype(title)
		line.Price = pgconv.Int64PtrFromPgtype(price)
		line.Stock = pgconv.IntPtrFromPgtype(stock)
		line.Image = pgconv.StringPtrFromPgtype(image)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate cart lines", err, infra.KindDBFailure)
	}
	return lines, nil
}
