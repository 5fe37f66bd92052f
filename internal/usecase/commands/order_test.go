//go:build unit

package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/domain/user"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/commands"
	"storefront/internal/usecase/shared"
	"storefront/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// =============================================================================
// CreateOrder
// =============================================================================

func TestOrderCommands_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("success: snapshots lines, takes stock and clears the cart", func(t *testing.T) {
		f := newOrderFixture(t, false)
		p := f.seedProduct(t,
			variant("TEE-M-RED", "M", "red", 10, 1999),
			variant("TEE-L-BLUE", "L", "blue", 3, 2499),
		)
		userID := uuid.New()
		f.seedCart(t, userID,
			cartLine{p.ID(), "TEE-M-RED", 2},
			cartLine{p.ID(), "TEE-L-BLUE", 3},
		)

		view, err := f.cmds.CreateOrder(ctx, userID, builder.DefaultAddress())
		require.NoError(t, err)

		assert.Equal(t, "ORD-20260115093000-00000001", view.OrderNumber)
		assert.Equal(t, userID, view.UserID)
		assert.Equal(t, order.StatusPending.String(), view.Status)
		assert.Equal(t, int64(2*1999+3*2499), view.Total)
		assert.Equal(t, testNow, view.CreatedAt)
		require.Len(t, view.Items, 2)
		assert.Equal(t, "TEE-M-RED", view.Items[0].VariantSKU)
		assert.Equal(t, "Classic Tee", view.Items[0].Snapshot.Title)
		assert.Equal(t, int64(1999), view.Items[0].Snapshot.Price)
		assert.Equal(t, map[string]string{"size": "M", "color": "red"}, view.Items[0].Snapshot.Attributes)
		require.NotNil(t, view.Items[0].Snapshot.Image)
		assert.Equal(t, "https://cdn.example.com/TEE-M-RED.png", *view.Items[0].Snapshot.Image)

		assert.Equal(t, 8, f.store.Stock(p.ID(), "TEE-M-RED"))
		assert.Equal(t, 0, f.store.Stock(p.ID(), "TEE-L-BLUE"))
		assert.Empty(t, f.store.CartItems(userID))
		assert.Equal(t, 1, f.store.OrderCount())
		assert.Equal(t, []int64{view.Total}, f.metrics.created)

		events := f.store.Events()
		require.Len(t, events, 1)
		assert.Equal(t, shared.EventOrderCreated, events[0].Kind)
		assert.Equal(t, view.ID, events[0].OrderID)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
		assert.Equal(t, "PENDING", payload["status"])
		assert.Equal(t, view.OrderNumber, payload["orderNumber"])
	})

	t.Run("success: exact stock can be bought out", func(t *testing.T) {
		f := newOrderFixture(t, false)
		p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 2, 1999))
		userID := uuid.New()
		f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 2})

		_, err := f.cmds.CreateOrder(ctx, userID, builder.DefaultAddress())
		require.NoError(t, err)
		assert.Zero(t, f.store.Stock(p.ID(), "TEE-M-RED"))
	})

	t.Run("rejections leave every row untouched", func(t *testing.T) {
		testCases := []struct {
			name    string
			arrange func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID
			address order.ShippingAddress
			check   func(t *testing.T, err error)
			reason  string
		}{
			{
				name:    "no cart at all",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID { return f.seedProduct(t).ID() },
				check:   func(t *testing.T, err error) { assert.True(t, errs.Is(err, commands.ErrEmptyCart)) },
				reason:  "empty_cart",
			},
			{
				name: "cart without lines",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					f.seedCart(t, userID)
					return f.seedProduct(t).ID()
				},
				check:  func(t *testing.T, err error) { assert.True(t, errs.Is(err, commands.ErrEmptyCart)) },
				reason: "empty_cart",
			},
			{
				name: "product deleted after it was carted",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					kept := f.seedProduct(t)
					f.seedCart(t, userID, cartLine{kept.ID(), "TEE-M-RED", 1}, cartLine{uuid.New(), "GONE", 1})
					return kept.ID()
				},
				check:  func(t *testing.T, err error) { assert.True(t, errs.Is(err, commands.ErrProductNotFound)) },
				reason: "product_not_found",
			},
			{
				name: "variant missing from product",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					p := f.seedProduct(t)
					f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 1}, cartLine{p.ID(), "TEE-XL-RED", 1})
					return p.ID()
				},
				check:  func(t *testing.T, err error) { assert.True(t, errs.Is(err, commands.ErrVariantNotFound)) },
				reason: "variant_not_found",
			},
			{
				name: "second line exceeds stock",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 10, 1999), variant("TEE-S-BLUE", "S", "blue", 1, 1999))
					f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 4}, cartLine{p.ID(), "TEE-S-BLUE", 2})
					return p.ID()
				},
				check: func(t *testing.T, err error) {
					var stockErr *commands.InsufficientStockError
					require.True(t, errors.As(err, &stockErr), "got %v", err)
					assert.Equal(t, commands.InsufficientStockError{SKU: "TEE-S-BLUE", Available: 1, Requested: 2}, *stockErr)
					assert.True(t, errs.Is(err, commands.ErrInsufficientStock))
				},
				reason: "insufficient_stock",
			},
			{
				name: "conditional decrement affects no row",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					p := f.seedProduct(t)
					f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 1})
					f.store.ConflictSKUs["TEE-M-RED"] = true
					return p.ID()
				},
				check:  func(t *testing.T, err error) { assert.True(t, errs.Is(err, commands.ErrStockConflict)) },
				reason: "stock_conflict",
			},
			{
				name: "order insert fails after stock was taken",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					p := f.seedProduct(t)
					f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 3})
					f.store.Failures["orders.create"] = errors.New("disk full")
					return p.ID()
				},
				check:  func(t *testing.T, err error) { assert.ErrorContains(t, err, "disk full") },
				reason: "internal",
			},
			{
				name: "cart clear fails after the order was written",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					p := f.seedProduct(t)
					f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 3})
					f.store.Failures["carts.clear"] = errors.New("connection reset")
					return p.ID()
				},
				check:  func(t *testing.T, err error) { assert.ErrorContains(t, err, "connection reset") },
				reason: "internal",
			},
			{
				name: "incomplete shipping address",
				arrange: func(t *testing.T, f *orderFixture, userID uuid.UUID) uuid.UUID {
					p := f.seedProduct(t)
					f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 1})
					return p.ID()
				},
				address: order.ShippingAddress{Street: "1 Main St"},
				check:   func(t *testing.T, err error) { assert.True(t, errs.Is(err, commands.ErrDomainValidation)) },
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				f := newOrderFixture(t, false)
				userID := uuid.New()
				productID := tc.arrange(t, f, userID)
				stockBefore := f.store.Stock(productID, "TEE-M-RED")
				cartBefore := f.store.CartItems(userID)

				addr := tc.address
				if addr == (order.ShippingAddress{}) {
					addr = builder.DefaultAddress()
				}
				view, err := f.cmds.CreateOrder(ctx, userID, addr)

				require.Error(t, err)
				assert.Nil(t, view)
				tc.check(t, err)
				assert.Equal(t, stockBefore, f.store.Stock(productID, "TEE-M-RED"), "stock must be rolled back")
				assert.Equal(t, cartBefore, f.store.CartItems(userID), "cart must be kept")
				assert.Zero(t, f.store.OrderCount())
				assert.Empty(t, f.store.Events())
				assert.Empty(t, f.metrics.created)
				if tc.reason != "" {
					assert.Equal(t, 1, f.metrics.failures[tc.reason])
				}
			})
		}
	})

	t.Run("snapshot survives later catalog changes", func(t *testing.T) {
		f := newOrderFixture(t, false)
		p := f.seedProduct(t)
		userID := uuid.New()
		f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 1})

		created, err := f.cmds.CreateOrder(ctx, userID, builder.DefaultAddress())
		require.NoError(t, err)

		f.store.SetPrice(p.ID(), "TEE-M-RED", 9999)
		f.store.DeleteProduct(p.ID())

		reloaded, err := f.store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1999), reloaded.Items[0].Snapshot.Price)
		assert.Equal(t, "Classic Tee", reloaded.Items[0].Snapshot.Title)
		assert.Equal(t, created.Total, reloaded.Total)
	})

	t.Run("touched products are evicted from the cache once each", func(t *testing.T) {
		f := newOrderFixture(t, true)
		p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 10, 1999), variant("TEE-L-BLUE", "L", "blue", 10, 1999))
		userID := uuid.New()
		f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", 1}, cartLine{p.ID(), "TEE-L-BLUE", 1})

		f.cache.EXPECT().Invalidate(gomock.Any(), p.ID()).Return(errors.New("redis down")).Times(1)

		_, err := f.cmds.CreateOrder(ctx, userID, builder.DefaultAddress())
		require.NoError(t, err, "cache failures must not fail checkout")
	})

	t.Run("concurrent checkouts never oversell", func(t *testing.T) {
		f := newOrderFixture(t, false)
		p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 5, 1999))

		const buyers = 12
		users := make([]uuid.UUID, buyers)
		for i := range users {
			users[i] = uuid.New()
			f.seedCart(t, users[i], cartLine{p.ID(), "TEE-M-RED", 1})
		}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			rejected  int
		)
		for _, u := range users {
			wg.Add(1)
			go func(userID uuid.UUID) {
				defer wg.Done()
				_, err := f.cmds.CreateOrder(ctx, userID, builder.DefaultAddress())
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errs.Is(err, commands.ErrInsufficientStock):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(u)
		}
		wg.Wait()

		assert.Equal(t, 5, succeeded)
		assert.Equal(t, buyers-5, rejected)
		assert.Zero(t, f.store.Stock(p.ID(), "TEE-M-RED"))
		assert.Equal(t, 5, f.store.OrderCount())
	})
}

// =============================================================================
// CancelOrder
// =============================================================================

func TestOrderCommands_CancelOrder(t *testing.T) {
	ctx := context.Background()

	checkout := func(t *testing.T, f *orderFixture, userID uuid.UUID, qty int) (uuid.UUID, uuid.UUID) {
		t.Helper()
		p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 10, 1999))
		f.seedCart(t, userID, cartLine{p.ID(), "TEE-M-RED", qty})
		view, err := f.cmds.CreateOrder(ctx, userID, builder.DefaultAddress())
		require.NoError(t, err)
		return view.ID, p.ID()
	}

	t.Run("success: restores stock and emits an event", func(t *testing.T) {
		f := newOrderFixture(t, false)
		owner := uuid.New()
		orderID, productID := checkout(t, f, owner, 4)
		require.Equal(t, 6, f.store.Stock(productID, "TEE-M-RED"))

		f.clock.Add(time.Hour)
		view, err := f.cmds.CancelOrder(ctx, orderID, user.NewActor(owner, user.RoleCustomer))
		require.NoError(t, err)

		assert.Equal(t, order.StatusCancelled.String(), view.Status)
		assert.Equal(t, testNow.Add(time.Hour), view.UpdatedAt)
		assert.Equal(t, 10, f.store.Stock(productID, "TEE-M-RED"), "create then cancel must conserve stock")
		assert.Equal(t, 1, f.metrics.cancelled)

		events := f.store.Events()
		require.Len(t, events, 2)
		assert.Equal(t, shared.EventOrderCancelled, events[1].Kind)
	})

	t.Run("admin may cancel someone else's order", func(t *testing.T) {
		f := newOrderFixture(t, false)
		orderID, productID := checkout(t, f, uuid.New(), 2)

		_, err := f.cmds.CancelOrder(ctx, orderID, user.NewActor(uuid.New(), user.RoleAdmin))
		require.NoError(t, err)
		assert.Equal(t, 10, f.store.Stock(productID, "TEE-M-RED"))
	})

	t.Run("other customers see not found", func(t *testing.T) {
		f := newOrderFixture(t, false)
		orderID, productID := checkout(t, f, uuid.New(), 2)

		_, err := f.cmds.CancelOrder(ctx, orderID, user.NewActor(uuid.New(), user.RoleCustomer))
		assert.True(t, errs.Is(err, commands.ErrOrderNotFound))
		assert.Equal(t, 8, f.store.Stock(productID, "TEE-M-RED"))
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t, false)
		_, err := f.cmds.CancelOrder(ctx, uuid.New(), user.NewActor(uuid.New(), user.RoleAdmin))
		assert.True(t, errs.Is(err, commands.ErrOrderNotFound))
	})

	t.Run("second cancel is rejected and stock is restored once", func(t *testing.T) {
		f := newOrderFixture(t, false)
		owner := uuid.New()
		orderID, productID := checkout(t, f, owner, 3)
		actor := user.NewActor(owner, user.RoleCustomer)

		_, err := f.cmds.CancelOrder(ctx, orderID, actor)
		require.NoError(t, err)

		_, err = f.cmds.CancelOrder(ctx, orderID, actor)
		var transitionErr *order.InvalidStateTransitionError
		require.True(t, errors.As(err, &transitionErr), "got %v", err)
		assert.Equal(t, order.StatusCancelled, transitionErr.Current)
		assert.Equal(t, order.StatusCancelled, transitionErr.Target)
		assert.Equal(t, 10, f.store.Stock(productID, "TEE-M-RED"))
	})

	t.Run("orders past PENDING cannot be cancelled", func(t *testing.T) {
		for _, st := range []order.Status{order.StatusPaid, order.StatusShipped, order.StatusDelivered} {
			t.Run(st.String(), func(t *testing.T) {
				f := newOrderFixture(t, false)
				owner := uuid.New()
				orderID, productID := checkout(t, f, owner, 1)
				_, err := f.cmds.UpdateStatus(ctx, orderID, st.String())
				require.NoError(t, err)

				_, err = f.cmds.CancelOrder(ctx, orderID, user.NewActor(owner, user.RoleCustomer))
				var transitionErr *order.InvalidStateTransitionError
				require.True(t, errors.As(err, &transitionErr), "got %v", err)
				assert.Equal(t, st, transitionErr.Current)
				assert.Equal(t, 9, f.store.Stock(productID, "TEE-M-RED"))
			})
		}
	})

	t.Run("deleted variant is skipped while the rest is restored", func(t *testing.T) {
		f := newOrderFixture(t, false)
		owner := uuid.New()
		gone := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 5, 1999))
		kept := f.seedProduct(t, variant("TEE-S-BLUE", "S", "blue", 5, 1499))
		f.seedCart(t, owner, cartLine{gone.ID(), "TEE-M-RED", 2}, cartLine{kept.ID(), "TEE-S-BLUE", 2})
		created, err := f.cmds.CreateOrder(ctx, owner, builder.DefaultAddress())
		require.NoError(t, err)

		f.store.DeleteProduct(gone.ID())

		view, err := f.cmds.CancelOrder(ctx, created.ID, user.NewActor(owner, user.RoleCustomer))
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", view.Status)
		assert.Equal(t, 5, f.store.Stock(kept.ID(), "TEE-S-BLUE"))
		assert.Equal(t, -1, f.store.Stock(gone.ID(), "TEE-M-RED"))
	})

	t.Run("failed restore rolls the cancel back", func(t *testing.T) {
		f := newOrderFixture(t, false)
		owner := uuid.New()
		orderID, productID := checkout(t, f, owner, 2)
		f.store.Failures["catalog.increment"] = errors.New("lock timeout")

		_, err := f.cmds.CancelOrder(ctx, orderID, user.NewActor(owner, user.RoleCustomer))
		require.Error(t, err)

		reloaded, err := f.store.FindByID(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", reloaded.Status)
		assert.Equal(t, 8, f.store.Stock(productID, "TEE-M-RED"))
		assert.Zero(t, f.metrics.cancelled)
	})
}

// =============================================================================
// UpdateStatus
// =============================================================================

func TestOrderCommands_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("any status may follow any other and stock is untouched", func(t *testing.T) {
		f := newOrderFixture(t, false)
		owner := uuid.New()
		p := f.seedProduct(t, variant("TEE-M-RED", "M", "red", 10, 1999))
		f.seedCart(t, owner, cartLine{p.ID(), "TEE-M-RED", 2})
		created, err := f.cmds.CreateOrder(ctx, owner, builder.DefaultAddress())
		require.NoError(t, err)

		for _, next := range []string{"SHIPPED", "CANCELLED", "PENDING", "DELIVERED"} {
			f.clock.Add(time.Hour)
			view, err := f.cmds.UpdateStatus(ctx, created.ID, next)
			require.NoError(t, err)
			assert.Equal(t, next, view.Status)
			assert.Equal(t, f.clock.Now(), view.UpdatedAt)
			assert.Equal(t, 8, f.store.Stock(p.ID(), "TEE-M-RED"))
		}

		kinds := make([]string, 0)
		for _, ev := range f.store.Events() {
			kinds = append(kinds, ev.Kind)
		}
		assert.Equal(t, []string{
			shared.EventOrderCreated,
			shared.EventOrderStatusChanged,
			shared.EventOrderStatusChanged,
			shared.EventOrderStatusChanged,
			shared.EventOrderStatusChanged,
		}, kinds)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newOrderFixture(t, false)
		for _, s := range []string{"", "LOST", "pending"} {
			_, err := f.cmds.UpdateStatus(ctx, uuid.New(), s)
			assert.True(t, errs.Is(err, commands.ErrInvalidStatus), "status %q", s)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newOrderFixture(t, false)
		_, err := f.cmds.UpdateStatus(ctx, uuid.New(), "PAID")
		assert.True(t, errs.Is(err, commands.ErrOrderNotFound))
	})

	t.Run("event failure does not fail the update", func(t *testing.T) {
		f := newOrderFixture(t, false)
		owner := uuid.New()
		p := f.seedProduct(t)
		f.seedCart(t, owner, cartLine{p.ID(), "TEE-M-RED", 1})
		created, err := f.cmds.CreateOrder(ctx, owner, builder.DefaultAddress())
		require.NoError(t, err)

		f.store.Failures["events.enqueue"] = errors.New("outbox full")
		view, err := f.cmds.UpdateStatus(ctx, created.ID, "PAID")
		require.NoError(t, err)
		assert.Equal(t, "PAID", view.Status)
	})
}
