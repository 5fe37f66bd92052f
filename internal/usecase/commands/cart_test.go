//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartCommands(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, stock int) (*orderFixture, commands.CartCommands, uuid.UUID) {
		t.Helper()
		f := newOrderFixture(t, false)
		p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", stock, 1999), variant("TEE-S-BLUE", "S", "blue", stock, 1499))
		return f, commands.NewCartCommands(f.store, f.clock), p.ID()
	}

	t.Run("add creates the cart and merges repeated skus", func(t *testing.T) {
		f, cmds, productID := setup(t, 10)
		userID := uuid.New()

		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-M-RED", 2))
		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-M-RED", 3))
		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-S-BLUE", 1))

		items := f.store.CartItems(userID)
		require.Len(t, items, 2)
		assert.Equal(t, "TEE-M-RED", items[0].SKU())
		assert.Equal(t, 5, items[0].Quantity())
		assert.Equal(t, "TEE-S-BLUE", items[1].SKU())
		assert.Equal(t, 10, f.store.Stock(productID, "TEE-M-RED"), "carting must not reserve stock")
	})

	t.Run("add checks the merged quantity against live stock", func(t *testing.T) {
		f, cmds, productID := setup(t, 4)
		userID := uuid.New()
		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-M-RED", 3))

		err := cmds.AddItem(ctx, userID, productID, "TEE-M-RED", 2)
		var stockErr *commands.InsufficientStockError
		require.True(t, errors.As(err, &stockErr), "got %v", err)
		assert.Equal(t, 4, stockErr.Available)
		assert.Equal(t, 5, stockErr.Requested)
		assert.Equal(t, 3, f.store.CartItems(userID)[0].Quantity())
	})

	t.Run("add rejects", func(t *testing.T) {
		testCases := []struct {
			name      string
			productID func(real uuid.UUID) uuid.UUID
			sku       string
			qty       int
			expected  error
		}{
			{"zero quantity", func(p uuid.UUID) uuid.UUID { return p }, "TEE-M-RED", 0, commands.ErrInvalidQuantity},
			{"negative quantity", func(p uuid.UUID) uuid.UUID { return p }, "TEE-M-RED", -2, commands.ErrInvalidQuantity},
			{"unknown product", func(uuid.UUID) uuid.UUID { return uuid.New() }, "TEE-M-RED", 1, commands.ErrProductNotFound},
			{"unknown variant", func(p uuid.UUID) uuid.UUID { return p }, "TEE-XL-RED", 1, commands.ErrVariantNotFound},
			{"more than in stock", func(p uuid.UUID) uuid.UUID { return p }, "TEE-M-RED", 11, commands.ErrInsufficientStock},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				f, cmds, productID := setup(t, 10)
				userID := uuid.New()

				err := cmds.AddItem(ctx, userID, tc.productID(productID), tc.sku, tc.qty)
				assert.True(t, errs.Is(err, tc.expected), "expected %v, got %v", tc.expected, err)
				assert.Empty(t, f.store.CartItems(userID))
			})
		}
	})

	t.Run("update quantity", func(t *testing.T) {
		f, cmds, productID := setup(t, 6)
		userID := uuid.New()
		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-M-RED", 1))

		require.NoError(t, cmds.UpdateItemQuantity(ctx, userID, "TEE-M-RED", 6))
		assert.Equal(t, 6, f.store.CartItems(userID)[0].Quantity())

		assert.True(t, errs.Is(cmds.UpdateItemQuantity(ctx, userID, "TEE-M-RED", 7), commands.ErrInsufficientStock))
		assert.True(t, errs.Is(cmds.UpdateItemQuantity(ctx, userID, "TEE-M-RED", 0), commands.ErrInvalidQuantity))
		assert.True(t, errs.Is(cmds.UpdateItemQuantity(ctx, userID, "TEE-S-BLUE", 1), commands.ErrCartItemNotFound))
		assert.True(t, errs.Is(cmds.UpdateItemQuantity(ctx, uuid.New(), "TEE-M-RED", 1), commands.ErrCartItemNotFound))
		assert.Equal(t, 6, f.store.CartItems(userID)[0].Quantity())
	})

	t.Run("remove and clear", func(t *testing.T) {
		f, cmds, productID := setup(t, 10)
		userID := uuid.New()
		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-M-RED", 1))
		require.NoError(t, cmds.AddItem(ctx, userID, productID, "TEE-S-BLUE", 1))

		require.NoError(t, cmds.RemoveItem(ctx, userID, "TEE-M-RED"))
		require.Len(t, f.store.CartItems(userID), 1)
		assert.True(t, errs.Is(cmds.RemoveItem(ctx, userID, "TEE-M-RED"), commands.ErrCartItemNotFound))

		require.NoError(t, cmds.Clear(ctx, userID))
		assert.Empty(t, f.store.CartItems(userID))

		assert.NoError(t, cmds.Clear(ctx, uuid.New()), "clearing a missing cart is a no-op")
	})
}
