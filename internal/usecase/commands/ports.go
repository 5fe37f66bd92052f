package commands

import (
	"context"
	"fmt"

	"storefront/internal/domain/catalog"
	"storefront/internal/infra"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart         = errs.New("cart is empty")
	ErrProductNotFound   = errs.New("product not found")
	ErrVariantNotFound   = errs.New("variant not found")
	ErrInsufficientStock = errs.New("insufficient stock")
	ErrStockConflict     = errs.New("stock changed by a concurrent request")
	ErrOrderNotFound     = errs.New("order not found")
	ErrCartItemNotFound  = errs.New("cart item not found")
	ErrInvalidQuantity   = errs.New("quantity must be at least 1")
	ErrInvalidStatus     = errs.New("invalid order status")
	ErrDuplicateSKU      = errs.New("sku already exists")
	ErrDomainValidation  = errs.New("domain validation error")
)

// InsufficientStockError carries the quantities behind ErrInsufficientStock.
type InsufficientStockError struct {
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.SKU, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func isNotFound(err error) bool {
	return infra.IsKind(err, infra.KindNotFound)
}

// findProduct maps a missing product to ErrProductNotFound.
func findProduct(ctx context.Context, tx shared.Tx, id uuid.UUID, forUpdate bool) (*catalog.Product, error) {
	p, err := tx.Catalog().FindProduct(ctx, tx.DB(), id, forUpdate)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.Wrapf(ErrProductNotFound, "product %s", id)
		}
		return nil, err
	}
	return p, nil
}
