//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	dbpkg "storefront/internal/infra/db"
	"storefront/internal/infra/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Stock reads the current stock of a variant straight from the table.
func Stock(t *testing.T, db DBLike, sku string) int {
	t.Helper()

	var stock int
	err := db.QueryRow(context.Background(), "SELECT stock FROM product_variants WHERE sku = $1", sku).Scan(&stock)
	require.NoError(t, err)
	return stock
}

func SetStock(t *testing.T, db DBLike, sku string, stock int) {
	t.Helper()

	tag, err := db.Exec(context.Background(), "UPDATE product_variants SET stock = $2 WHERE sku = $1", sku, stock)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected(), "variant %s not found", sku)
}

func CartItemCount(t *testing.T, db DBLike, userID uuid.UUID) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(), `
		SELECT count(*) FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE c.user_id = $1`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}

func OrderCount(t *testing.T, db DBLike) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(), "SELECT count(*) FROM orders").Scan(&n)
	require.NoError(t, err)
	return n
}

func PendingEventKinds(t *testing.T, db DBLike, orderID uuid.UUID) []string {
	t.Helper()

	var kinds []string
	err := db.QueryRow(context.Background(), `
		SELECT coalesce(array_agg(kind ORDER BY id), '{}') FROM order_events WHERE order_id = $1 AND status = 'pending'`,
		orderID).Scan(&kinds)
	require.NoError(t, err)
	return kinds
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}

// InsertProduct persists p through the catalog repository.
func InsertProduct(t *testing.T, db dbpkg.DBTX, p *catalog.Product) {
	t.Helper()
	require.NoError(t, repository.NewCatalogRepository().CreateProduct(context.Background(), db, p))
}

type CartLine struct {
	ProductID uuid.UUID
	SKU       string
	Quantity  int
}

// InsertCart creates the user's cart with the given lines in order.
func InsertCart(t *testing.T, db dbpkg.DBTX, userID uuid.UUID, lines ...CartLine) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewCartRepository()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, db, cart.NewCart(userID, now)))
	c, err := repo.FindByUserID(ctx, db, userID, false)
	require.NoError(t, err)
	for _, l := range lines {
		item, err := c.Add(l.ProductID, l.SKU, l.Quantity, now)
		require.NoError(t, err)
		require.NoError(t, repo.UpsertItem(ctx, db, c.ID(), item))
	}
}
