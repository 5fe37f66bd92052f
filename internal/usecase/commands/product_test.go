//go:build unit

package commands_test

import (
	"context"
	"testing"

	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/commands"
	"storefront/tests/common/builder"
	"storefront/tests/common/memstore"
	queriesmock "storefront/tests/mock/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newProductCommands(t *testing.T) (*memstore.Store, *queriesmock.MockProductCache, commands.ProductCommands) {
	t.Helper()
	store := memstore.New()
	cache := queriesmock.NewMockProductCache(gomock.NewController(t))
	return store, cache, commands.NewProductCommands(store, cache, clock.NewMockClock(testNow))
}

func TestProductCommands_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store, _, cmds := newProductCommands(t)

		view, err := cmds.CreateProduct(ctx, builder.NewProductBuilder().BuildCreateCommand())
		require.NoError(t, err)

		assert.Equal(t, "Classic Tee", view.Title)
		assert.Equal(t, testNow, view.CreatedAt)
		require.Len(t, view.Variants, 1)
		assert.Equal(t, 10, view.Variants[0].Stock)
		assert.Equal(t, 10, store.Stock(view.ID, "TEE-M-RED"))
	})

	t.Run("validation failures", func(t *testing.T) {
		testCases := []struct {
			name   string
			mutate func(*builder.ProductBuilder)
		}{
			{"empty title", func(b *builder.ProductBuilder) { b.Title = "" }},
			{"no variants", func(b *builder.ProductBuilder) { b.Variants = nil }},
			{"negative stock", func(b *builder.ProductBuilder) { b.Variants[0].Stock = -1 }},
			{"negative price", func(b *builder.ProductBuilder) { b.Variants[0].Price = -1 }},
			{"attribute outside the option values", func(b *builder.ProductBuilder) {
				b.Variants[0].Attributes = map[string]string{"size": "XXL", "color": "red"}
			}},
			{"duplicate sku within the product", func(b *builder.ProductBuilder) {
				b.Variants = append(b.Variants, b.Variants[0])
			}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				store, _, cmds := newProductCommands(t)
				req := builder.NewProductBuilder().With(tc.mutate).BuildCreateCommand()

				_, err := cmds.CreateProduct(ctx, req)
				assert.True(t, errs.Is(err, commands.ErrDomainValidation), "got %v", err)
				assert.Zero(t, store.Commits)
			})
		}
	})

	t.Run("sku taken by another product", func(t *testing.T) {
		_, _, cmds := newProductCommands(t)
		_, err := cmds.CreateProduct(ctx, builder.NewProductBuilder().BuildCreateCommand())
		require.NoError(t, err)

		_, err = cmds.CreateProduct(ctx, builder.NewProductBuilder().WithTitle("Another Tee").BuildCreateCommand())
		assert.True(t, errs.Is(err, commands.ErrDuplicateSKU), "got %v", err)
	})
}

func TestProductCommands_UpdateVariant(t *testing.T) {
	ctx := context.Background()

	t.Run("patches only the given fields and evicts the cache", func(t *testing.T) {
		store, cache, cmds := newProductCommands(t)
		p := builder.NewProductBuilder().MustBuildDomain()
		store.SeedProduct(p)
		cache.EXPECT().Invalidate(gomock.Any(), p.ID()).Return(nil).Times(1)

		stock := 3
		view, err := cmds.UpdateVariant(ctx, p.ID(), "TEE-M-RED", commands.UpdateVariantRequest{Stock: &stock})
		require.NoError(t, err)

		require.Len(t, view.Variants, 1)
		assert.Equal(t, 3, view.Variants[0].Stock)
		assert.Equal(t, int64(1999), view.Variants[0].Price)
		assert.Len(t, view.Variants[0].Images, 2)
		assert.Equal(t, 3, store.Stock(p.ID(), "TEE-M-RED"))
	})

	t.Run("rejections", func(t *testing.T) {
		negPrice := int64(-1)
		negStock := -1
		badAttrs := map[string]string{"size": "XXL"}

		testCases := []struct {
			name      string
			productID func(real uuid.UUID) uuid.UUID
			sku       string
			req       commands.UpdateVariantRequest
			expected  error
		}{
			{"unknown product", func(uuid.UUID) uuid.UUID { return uuid.New() }, "TEE-M-RED", commands.UpdateVariantRequest{}, commands.ErrProductNotFound},
			{"unknown variant", func(p uuid.UUID) uuid.UUID { return p }, "TEE-XL-RED", commands.UpdateVariantRequest{}, commands.ErrVariantNotFound},
			{"negative price", func(p uuid.UUID) uuid.UUID { return p }, "TEE-M-RED", commands.UpdateVariantRequest{Price: &negPrice}, commands.ErrDomainValidation},
			{"negative stock", func(p uuid.UUID) uuid.UUID { return p }, "TEE-M-RED", commands.UpdateVariantRequest{Stock: &negStock}, commands.ErrDomainValidation},
			{"attribute outside the option values", func(p uuid.UUID) uuid.UUID { return p }, "TEE-M-RED", commands.UpdateVariantRequest{Attributes: &badAttrs}, commands.ErrDomainValidation},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				store, _, cmds := newProductCommands(t)
				p := builder.NewProductBuilder().MustBuildDomain()
				store.SeedProduct(p)

				_, err := cmds.UpdateVariant(ctx, tc.productID(p.ID()), tc.sku, tc.req)
				assert.True(t, errs.Is(err, tc.expected), "expected %v, got %v", tc.expected, err)
				assert.Equal(t, 10, store.Stock(p.ID(), "TEE-M-RED"))
			})
		}
	})
}

func TestProductCommands_DeleteProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store, cache, cmds := newProductCommands(t)
		p := builder.NewProductBuilder().MustBuildDomain()
		store.SeedProduct(p)
		cache.EXPECT().Invalidate(gomock.Any(), p.ID()).Return(nil).Times(1)

		require.NoError(t, cmds.DeleteProduct(ctx, p.ID()))
		assert.Equal(t, -1, store.Stock(p.ID(), "TEE-M-RED"))
	})

	t.Run("unknown product", func(t *testing.T) {
		_, _, cmds := newProductCommands(t)
		err := cmds.DeleteProduct(ctx, uuid.New())
		assert.True(t, errs.Is(err, commands.ErrProductNotFound))
	})
}
