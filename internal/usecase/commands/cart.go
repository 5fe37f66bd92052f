package commands

//go:generate mockgen -source=cart.go -destination=../../../tests/mock/commands/cart_mock.go -package=commandsmock

import (
	"context"

	"storefront/internal/domain/cart"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

// CartCommands validate against live stock but never reserve it; stock is
// only taken at checkout.
type CartCommands interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, sku string, qty int) error
	UpdateItemQuantity(ctx context.Context, userID uuid.UUID, sku string, qty int) error
	RemoveItem(ctx context.Context, userID uuid.UUID, sku string) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewCartCommands(uow shared.UnitOfWork, clk clock.Clock) CartCommands {
	return &cartCommandsImpl{uow: uow, clock: clk}
}

func (uc *cartCommandsImpl) AddItem(ctx context.Context, userID, productID uuid.UUID, sku string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := uc.loadOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		merged, err := c.Add(productID, sku, qty, uc.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrInvalidQuantity)
		}
		if err := checkLiveStock(ctx, tx, merged.ProductID(), sku, merged.Quantity()); err != nil {
			return err
		}
		return tx.Carts().UpsertItem(ctx, tx.DB(), c.ID(), merged)
	})
}

func (uc *cartCommandsImpl) UpdateItemQuantity(ctx context.Context, userID uuid.UUID, sku string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := uc.load(ctx, tx, userID)
		if err != nil {
			return err
		}

		item, err := c.SetQuantity(sku, qty, uc.clock.Now())
		if err != nil {
			return mapCartErr(err)
		}
		if err := checkLiveStock(ctx, tx, item.ProductID(), sku, item.Quantity()); err != nil {
			return err
		}
		return tx.Carts().UpsertItem(ctx, tx.DB(), c.ID(), item)
	})
}

func (uc *cartCommandsImpl) RemoveItem(ctx context.Context, userID uuid.UUID, sku string) error {
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := uc.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := c.Remove(sku, uc.clock.Now()); err != nil {
			return mapCartErr(err)
		}
		return tx.Carts().DeleteItem(ctx, tx.DB(), c.ID(), sku)
	})
}

func (uc *cartCommandsImpl) Clear(ctx context.Context, userID uuid.UUID) error {
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := tx.Carts().FindByUserID(ctx, tx.DB(), userID, true)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		return tx.Carts().ClearItems(ctx, tx.DB(), c.ID())
	})
}

func (uc *cartCommandsImpl) load(ctx context.Context, tx shared.Tx, userID uuid.UUID) (*cart.Cart, error) {
	c, err := tx.Carts().FindByUserID(ctx, tx.DB(), userID, true)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}
	return c, nil
}

// loadOrCreate tolerates a concurrent first insert for the same user: Create
// is a no-op on conflict and the row is read back under lock.
func (uc *cartCommandsImpl) loadOrCreate(ctx context.Context, tx shared.Tx, userID uuid.UUID) (*cart.Cart, error) {
	c, err := tx.Carts().FindByUserID(ctx, tx.DB(), userID, true)
	if err == nil {
		return c, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	if err := tx.Carts().Create(ctx, tx.DB(), cart.NewCart(userID, uc.clock.Now())); err != nil {
		return nil, err
	}
	return tx.Carts().FindByUserID(ctx, tx.DB(), userID, true)
}

func checkLiveStock(ctx context.Context, tx shared.Tx, productID uuid.UUID, sku string, qty int) error {
	product, err := findProduct(ctx, tx, productID, false)
	if err != nil {
		return err
	}
	variant, ok := product.Variant(sku)
	if !ok {
		return errs.Wrapf(ErrVariantNotFound, "sku %s", sku)
	}
	if !variant.HasStock(qty) {
		return &InsufficientStockError{SKU: sku, Available: variant.Stock(), Requested: qty}
	}
	return nil
}

func mapCartErr(err error) error {
	switch {
	case errs.Is(err, cart.ErrItemNotFound):
		return ErrCartItemNotFound
	case errs.Is(err, cart.ErrInvalidQuantity):
		return ErrInvalidQuantity
	default:
		return err
	}
}
