//go:build e2e

package uow_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/infra/uow"
	"storefront/internal/usecase/shared"
	"storefront/tests/common/builder"
	"storefront/tests/common/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAbort = errors.New("abort")

func productCount(t *testing.T, u *uow.PostgresUoW) int {
	t.Helper()
	var n int
	err := u.WithDB(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		return tx.DB().QueryRow(ctx, "SELECT count(*) FROM products").Scan(&n)
	})
	require.NoError(t, err)
	return n
}

func TestPostgresUoW_Within(t *testing.T) {
	ctx := context.Background()
	pool, _ := dbtest.NewDatabase(t)
	u := uow.NewPostgresUoW(pool)

	t.Run("commit on success", func(t *testing.T) {
		p := builder.NewProductBuilder().WithVariants(builder.VariantSpec{SKU: "COMMIT", Stock: 1, Price: 100}).MustBuildDomain()
		err := u.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Catalog().CreateProduct(ctx, tx.DB(), p)
		})
		require.NoError(t, err)
		assert.Equal(t, 1, productCount(t, u))
	})

	t.Run("rollback on error", func(t *testing.T) {
		p := builder.NewProductBuilder().WithVariants(builder.VariantSpec{SKU: "ERR", Stock: 1, Price: 100}).MustBuildDomain()
		err := u.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			if err := tx.Catalog().CreateProduct(ctx, tx.DB(), p); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		assert.Equal(t, 1, productCount(t, u))
	})

	t.Run("rollback on panic", func(t *testing.T) {
		p := builder.NewProductBuilder().WithVariants(builder.VariantSpec{SKU: "PANIC", Stock: 1, Price: 100}).MustBuildDomain()
		assert.Panics(t, func() {
			_ = u.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
				if err := tx.Catalog().CreateProduct(ctx, tx.DB(), p); err != nil {
					return err
				}
				panic("boom")
			})
		})
		assert.Equal(t, 1, productCount(t, u))
	})

	t.Run("read-only transaction rejects writes", func(t *testing.T) {
		p := builder.NewProductBuilder().WithVariants(builder.VariantSpec{SKU: "RO", Stock: 1, Price: 100}).MustBuildDomain()
		err := u.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Catalog().CreateProduct(ctx, tx.DB(), p)
		})
		assert.Error(t, err)
		assert.Equal(t, 1, productCount(t, u))
	})
}
