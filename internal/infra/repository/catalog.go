package repository

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	findProductSQL = `
SELECT id, title, description, options, created_at, updated_at
FROM products
WHERE id = $1`

	findVariantsSQL = `
SELECT sku, attributes, stock, price_minor, images
FROM product_variants
WHERE product_id = $1
ORDER BY id`

	insertProductSQL = `
INSERT INTO products (id, title, description, options, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	insertVariantSQL = `
INSERT INTO product_variants (product_id, sku, attributes, stock, price_minor, images)
VALUES ($1, $2, $3, $4, $5, $6)`

	updateVariantSQL = `
UPDATE product_variants
SET attributes = $3, stock = COALESCE($4::integer, stock), price_minor = $5, images = $6
WHERE product_id = $1 AND sku = $2`

	touchProductSQL = `UPDATE products SET updated_at = $2 WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	decrementStockSQL = `
UPDATE product_variants
SET stock = stock - $1
WHERE product_id = $2 AND sku = $3 AND stock >= $1`

	incrementStockSQL = `
UPDATE product_variants
SET stock = stock + $1
WHERE product_id = $2 AND sku = $3`
)

// optionRecord is the JSONB shape of products.options.
type optionRecord struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type CatalogRepository struct{}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{}
}

func (r *CatalogRepository) FindProduct(ctx context.Context, tx db.DBTX, id uuid.UUID, forUpdate bool) (*catalog.Product, error) {
	var (
		title, description   string
		optionsJSON          []byte
		createdAt, updatedAt time.Time
	)
	err := tx.QueryRow(ctx, findProductSQL, id).Scan(&id, &title, &description, &optionsJSON, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("product not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find product", err, infra.KindDBFailure)
	}

	options, err := decodeOptions(optionsJSON)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to decode product options", err, infra.KindDBFailure)
	}

	query := findVariantsSQL
	if forUpdate {
		query += " FOR UPDATE"
	}
	variants, err := r.findVariants(ctx, tx, query, id)
	if err != nil {
		return nil, err
	}

	return catalog.ReconstructProduct(id, title, description, options, variants, createdAt, updatedAt), nil
}

func (r *CatalogRepository) findVariants(ctx context.Context, tx db.DBTX, query string, productID uuid.UUID) ([]catalog.Variant, error) {
	rows, err := tx.Query(ctx, query, productID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query variants", err, infra.KindDBFailure)
	}
	defer rows.Close()

	var variants []catalog.Variant
	for rows.Next() {
		var (
			sku        string
			attributes map[string]string
			stock      int
			priceMinor int64
			images     []string
		)
		if err := rows.Scan(&sku, &attributes, &stock, &priceMinor, &images); err != nil {
			return nil, infra.WrapRepoErr("failed to scan variant", err, infra.KindDBFailure)
		}
		price, err := catalog.NewMoney(priceMinor)
		if err != nil {
			return nil, infra.WrapRepoErr("stored variant price is invalid", err, infra.KindDBFailure)
		}
		v, err := catalog.NewVariant(sku, attributes, stock, price, images)
		if err != nil {
			return nil, infra.WrapRepoErr("stored variant is invalid", err, infra.KindDBFailure)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate variants", err, infra.KindDBFailure)
	}
	return variants, nil
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, tx db.DBTX, p *catalog.Product) error {
	optionsJSON, err := encodeOptions(p.Options())
	if err != nil {
		return infra.WrapRepoErr("failed to encode product options", err, infra.KindDBFailure)
	}

	if _, err := tx.Exec(ctx, insertProductSQL,
		p.ID(), p.Title(), p.Description(), optionsJSON, p.CreatedAt(), p.UpdatedAt()); err != nil {
		return infra.WrapRepoErr("failed to insert product", err, infra.ClassifyPgError(err))
	}

	batch := &pgx.Batch{}
	for _, v := range p.Variants() {
		batch.Queue(insertVariantSQL, p.ID(), v.SKU(), v.Attributes(), v.Stock(), v.Price().Minor(), v.Images())
	}
	return sendBatch(ctx, tx, batch, "failed to insert variant")
}

// UpdateVariant writes the variant's attributes, price and images. The stock
// column is only written when stock is non-nil.
func (r *CatalogRepository) UpdateVariant(ctx context.Context, tx db.DBTX, productID uuid.UUID, v catalog.Variant, stock *int, now time.Time) error {
	tag, err := tx.Exec(ctx, updateVariantSQL,
		productID, v.SKU(), v.Attributes(), stock, v.Price().Minor(), v.Images())
	if err != nil {
		return infra.WrapRepoErr("failed to update variant", err, infra.ClassifyPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("variant not found", nil, infra.KindNotFound)
	}

	if _, err := tx.Exec(ctx, touchProductSQL, productID, now); err != nil {
		return infra.WrapRepoErr("failed to touch product", err, infra.KindDBFailure)
	}
	return nil
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, tx db.DBTX, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return infra.WrapRepoErr("failed to delete product", err, infra.KindDBFailure)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("product not found", nil, infra.KindNotFound)
	}
	return nil
}

// DecrementStock never drives stock negative: the guard is part of the
// statement, so a competing writer that got there first leaves zero rows
// affected.
func (r *CatalogRepository) DecrementStock(ctx context.Context, tx db.DBTX, productID uuid.UUID, sku string, qty int) (bool, error) {
	tag, err := tx.Exec(ctx, decrementStockSQL, qty, productID, sku)
	if err != nil {
		return false, infra.WrapRepoErr("failed to decrement stock", err, infra.ClassifyPgError(err))
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CatalogRepository) IncrementStock(ctx context.Context, tx db.DBTX, productID uuid.UUID, sku string, qty int) (bool, error) {
	tag, err := tx.Exec(ctx, incrementStockSQL, qty, productID, sku)
	if err != nil {
		return false, infra.WrapRepoErr("failed to increment stock", err, infra.KindDBFailure)
	}
	return tag.RowsAffected() > 0, nil
}

func encodeOptions(options []catalog.Option) ([]byte, error) {
	records := make([]optionRecord, 0, len(options))
	for _, o := range options {
		records = append(records, optionRecord{Name: o.Name(), Values: o.Values()})
	}
	return json.Marshal(records)
}

func decodeOptions(raw []byte) ([]catalog.Option, error) {
	var records []optionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	options := make([]catalog.Option, 0, len(records))
	for _, rec := range records {
		o, err := catalog.NewOption(rec.Name, rec.Values)
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, nil
}

// sendBatch needs a connection-level batch; a DBTX that cannot send batches
// falls back to sequential Exec.
func sendBatch(ctx context.Context, tx db.DBTX, batch *pgx.Batch, msg string) error {
	if b, ok := tx.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	}); ok {
		results := b.SendBatch(ctx, batch)
		defer results.Close()
		for range batch.QueuedQueries {
			if _, err := results.Exec(); err != nil {
				return infra.WrapRepoErr(msg, err, infra.ClassifyPgError(err))
			}
		}
		return nil
	}

	for _, q := range batch.QueuedQueries {
		if _, err := tx.Exec(ctx, q.SQL, q.Arguments...); err != nil {
			return infra.WrapRepoErr(msg, err, infra.ClassifyPgError(err))
		}
	}
	return nil
}
