package commands

//go:generate mockgen -source=order.go -destination=../../../tests/mock/commands/order_mock.go -package=commandsmock

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/order"
	"storefront/internal/domain/user"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type OrderCommands interface {
	// CreateOrder turns the user's cart into a PENDING order, decrementing
	// stock and clearing the cart in one unit of work.
	CreateOrder(ctx context.Context, userID uuid.UUID, address order.ShippingAddress) (*queries.OrderView, error)
	// CancelOrder cancels a PENDING order and gives its stock back.
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor user.Actor) (*queries.OrderView, error)
	// UpdateStatus sets any valid status without stock effects.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*queries.OrderView, error)
}

type orderCommandsImpl struct {
	uow     shared.UnitOfWork
	clock   clock.Clock
	numbers order.NumberGenerator
	metrics shared.OrderMetrics
	cache   queries.ProductCache
}

func NewOrderCommands(
	uow shared.UnitOfWork,
	clk clock.Clock,
	numbers order.NumberGenerator,
	metrics shared.OrderMetrics,
	cache queries.ProductCache,
) OrderCommands {
	return &orderCommandsImpl{
		uow:     uow,
		clock:   clk,
		numbers: numbers,
		metrics: metrics,
		cache:   cache,
	}
}

func (uc *orderCommandsImpl) CreateOrder(ctx context.Context, userID uuid.UUID, address order.ShippingAddress) (*queries.OrderView, error) {
	if err := address.Validate(); err != nil {
		return nil, errs.Mark(err, ErrDomainValidation)
	}

	var created *order.Order
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := tx.Carts().FindByUserID(ctx, tx.DB(), userID, true)
		if err != nil {
			if isNotFound(err) {
				return ErrEmptyCart
			}
			return err
		}
		if c.IsEmpty() {
			return ErrEmptyCart
		}

		lines := c.Items()
		items := make([]order.Item, 0, len(lines))
		for _, line := range lines {
			item, err := uc.reserveLine(ctx, tx, line)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		o, err := order.NewOrder(uc.numbers.Next(), userID, items, address, uc.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrDomainValidation)
		}
		if err := tx.Orders().Create(ctx, tx.DB(), o); err != nil {
			return err
		}
		if err := tx.Carts().ClearItems(ctx, tx.DB(), c.ID()); err != nil {
			return err
		}
		if err := uc.enqueue(ctx, tx, shared.EventOrderCreated, o); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		uc.logCheckoutFailure(userID, err)
		return nil, err
	}

	uc.metrics.OrderCreated(created.Total().Minor())
	uc.invalidateProducts(ctx, created)
	slog.Info("order created",
		"order_id", created.ID().String(),
		"order_number", created.Number(),
		"user_id", userID.String(),
		"total", created.Total().Minor(),
		"items", len(created.Items()))

	return uc.reload(ctx, created.ID())
}

// reserveLine validates one cart line against live stock, takes the stock
// and captures the snapshot.
func (uc *orderCommandsImpl) reserveLine(ctx context.Context, tx shared.Tx, line cart.Item) (order.Item, error) {
	product, err := findProduct(ctx, tx, line.ProductID(), false)
	if err != nil {
		return order.Item{}, err
	}

	variant, ok := product.Variant(line.SKU())
	if !ok {
		return order.Item{}, errs.Wrapf(ErrVariantNotFound, "sku %s", line.SKU())
	}

	if !variant.HasStock(line.Quantity()) {
		return order.Item{}, &InsufficientStockError{
			SKU:       variant.SKU(),
			Available: variant.Stock(),
			Requested: line.Quantity(),
		}
	}

	taken, err := tx.Catalog().DecrementStock(ctx, tx.DB(), product.ID(), variant.SKU(), line.Quantity())
	if err != nil {
		return order.Item{}, err
	}
	if !taken {
		return order.Item{}, errs.Wrapf(ErrStockConflict, "sku %s", variant.SKU())
	}

	item, err := order.NewItem(product.ID(), variant.SKU(), line.Quantity(), order.SnapshotOf(product.Title(), variant))
	if err != nil {
		return order.Item{}, errs.Mark(err, ErrDomainValidation)
	}
	return item, nil
}

func (uc *orderCommandsImpl) CancelOrder(ctx context.Context, orderID uuid.UUID, actor user.Actor) (*queries.OrderView, error) {
	var cancelled *order.Order
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByID(ctx, tx.DB(), orderID, true)
		if err != nil {
			if isNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if !o.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
			return ErrOrderNotFound
		}

		if err := o.Cancel(uc.clock.Now()); err != nil {
			return err
		}

		for _, it := range o.Items() {
			restored, err := tx.Catalog().IncrementStock(ctx, tx.DB(), it.ProductID(), it.SKU(), it.Quantity())
			if err != nil {
				return err
			}
			if !restored {
				slog.Warn("variant no longer exists, stock not restored",
					"order_id", o.ID().String(),
					"product_id", it.ProductID().String(),
					"sku", it.SKU(),
					"quantity", it.Quantity())
			}
		}

		updated, err := tx.Orders().UpdateStatus(ctx, tx.DB(), o.ID(), o.Status(), o.UpdatedAt())
		if err != nil {
			return err
		}
		if !updated {
			return ErrOrderNotFound
		}
		cancelled = o
		return uc.enqueue(ctx, tx, shared.EventOrderCancelled, o)
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.OrderCancelled()
	uc.invalidateProducts(ctx, cancelled)
	slog.Info("order cancelled", "order_id", orderID.String(), "actor_id", actor.ID.String())

	return uc.reload(ctx, orderID)
}

func (uc *orderCommandsImpl) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*queries.OrderView, error) {
	st, err := order.NewStatus(status)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidStatus)
	}

	var o *order.Order
	err = uc.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		updated, err := tx.Orders().UpdateStatus(ctx, tx.DB(), orderID, st, uc.clock.Now())
		if err != nil {
			return err
		}
		if !updated {
			return ErrOrderNotFound
		}

		o, err = tx.Orders().FindByID(ctx, tx.DB(), orderID, false)
		if err != nil {
			if isNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}

		// Outside a transaction the event is best effort.
		if err := uc.enqueue(ctx, tx, shared.EventOrderStatusChanged, o); err != nil {
			slog.Error("failed to enqueue status change event", "order_id", orderID.String(), "error", err.Error())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("order status updated", "order_id", orderID.String(), "status", st.String())
	return queries.OrderViewFromDomain(o), nil
}

// invalidateProducts drops cached product views whose stock just changed.
func (uc *orderCommandsImpl) invalidateProducts(ctx context.Context, o *order.Order) {
	seen := make(map[uuid.UUID]struct{})
	for _, it := range o.Items() {
		if _, ok := seen[it.ProductID()]; ok {
			continue
		}
		seen[it.ProductID()] = struct{}{}
		if err := uc.cache.Invalidate(ctx, it.ProductID()); err != nil {
			slog.Warn("product cache invalidation failed", "product_id", it.ProductID().String(), "error", err.Error())
		}
	}
}

func (uc *orderCommandsImpl) reload(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	var view *queries.OrderView
	err := uc.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Orders().FindByID(ctx, tx.DB(), id, false)
		if err != nil {
			if isNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		view = queries.OrderViewFromDomain(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

type orderEventPayload struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	Status      string    `json:"status"`
	Total       int64     `json:"total"`
}

func (uc *orderCommandsImpl) enqueue(ctx context.Context, tx shared.Tx, kind string, o *order.Order) error {
	payload, err := json.Marshal(orderEventPayload{
		OrderID:     o.ID(),
		OrderNumber: o.Number(),
		UserID:      o.UserID(),
		Status:      o.Status().String(),
		Total:       o.Total().Minor(),
	})
	if err != nil {
		return errs.Wrap(err, "failed to marshal order event")
	}
	return tx.Events().Enqueue(ctx, tx.DB(), shared.OrderEvent{
		Kind:    kind,
		OrderID: o.ID(),
		Payload: payload,
		RunAt:   uc.clock.Now(),
	})
}

func (uc *orderCommandsImpl) logCheckoutFailure(userID uuid.UUID, err error) {
	reason := checkoutFailureReason(err)
	uc.metrics.CheckoutFailed(reason)

	attrs := []any{"user_id", userID.String(), "reason", reason}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		attrs = append(attrs, "sku", stockErr.SKU, "available", stockErr.Available, "requested", stockErr.Requested)
	}

	if reason == "internal" {
		attrs = append(attrs, "error", err.Error(), "stack", errs.ExtractStackLines(err, 8))
		slog.Error("checkout failed", attrs...)
		return
	}
	slog.Warn("checkout rejected", append(attrs, "error", err.Error())...)
}

func checkoutFailureReason(err error) string {
	switch {
	case errs.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errs.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errs.Is(err, ErrVariantNotFound):
		return "variant_not_found"
	case errs.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errs.Is(err, ErrStockConflict):
		return "stock_conflict"
	case errs.Is(err, ErrDomainValidation):
		return "validation"
	default:
		return "internal"
	}
}
