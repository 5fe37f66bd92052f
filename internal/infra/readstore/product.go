package readstore

import (
	"context"
	"encoding/json"

	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	productColumns = `id, title, description, options, created_at, updated_at`

	getProductViewSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listProductsFirstPageSQL = `
SELECT ` + productColumns + `
FROM products
ORDER BY created_at DESC, id DESC
LIMIT $1`

	listProductsKeysetSQL = `
SELECT ` + productColumns + `
FROM products
WHERE (created_at, id) < ($1, $2)
ORDER BY created_at DESC, id DESC
LIMIT $3`

	variantsByProductsSQL = `
SELECT product_id, sku, attributes, stock, price_minor, images
FROM product_variants
WHERE product_id = ANY($1)
ORDER BY product_id, id`
)

type ProductReadStore struct {
	db db.DBTX
}

var _ queries.ProductReadStore = (*ProductReadStore)(nil)

func NewProductReadStore(db db.DBTX) *ProductReadStore {
	return &ProductReadStore{db: db}
}

func (r *ProductReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ProductView, error) {
	v, err := scanProductView(r.db.QueryRow(ctx, getProductViewSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("product not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get product view", err, infra.KindDBFailure)
	}
	if err := r.attachVariants(ctx, []*queries.ProductView{v}); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *ProductReadStore) List(ctx context.Context, page queries.Page) ([]*queries.ProductView, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if page.IsFirst() {
		rows, err = r.db.Query(ctx, listProductsFirstPageSQL, page.Limit)
	} else {
		rows, err = r.db.Query(ctx, listProductsKeysetSQL, page.AfterTime, page.AfterID, page.Limit)
	}
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list products", err, infra.KindDBFailure)
	}
	defer rows.Close()

	views := make([]*queries.ProductView, 0, page.Limit)
	for rows.Next() {
		v, err := scanProductView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan product", err, infra.KindDBFailure)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate products", err, infra.KindDBFailure)
	}
	rows.Close()

	if err := r.attachVariants(ctx, views); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *ProductReadStore) attachVariants(ctx context.Context, views []*queries.ProductView) error {
	if len(views) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*queries.ProductView, len(views))
	ids := make([]uuid.UUID, 0, len(views))
	for _, v := range views {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	rows, err := r.db.Query(ctx, variantsByProductsSQL, ids)
	if err != nil {
		return infra.WrapRepoErr("failed to query variants", err, infra.KindDBFailure)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID uuid.UUID
			vv        queries.VariantView
		)
		if err := rows.Scan(&productID, &vv.SKU, &vv.Attributes, &vv.Stock, &vv.Price, &vv.Images); err != nil {
			return infra.WrapRepoErr("failed to scan variant", err, infra.KindDBFailure)
		}
		if p, ok := byID[productID]; ok {
			p.Variants = append(p.Variants, vv)
		}
	}
	if err := rows.Err(); err != nil {
		return infra.WrapRepoErr("failed to iterate variants", err, infra.KindDBFailure)
	}
	return nil
}

func scanProductView(row pgx.Row) (*queries.ProductView, error) {
	var (
		v       queries.ProductView
		options []byte
	)
	if err := row.Scan(&v.ID, &v.Title, &v.Description, &options, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &v.Options); err != nil {
		return nil, err
	}
	if v.Options == nil {
		v.Options = []queries.OptionView{}
	}
	v.Variants = []queries.VariantView{}
	return &v, nil
}
