package commands

//go:generate mockgen -source=product.go -destination=../../../tests/mock/commands/product_mock.go -package=commandsmock

import (
	"context"
	"log/slog"

	"storefront/internal/domain/catalog"
	"storefront/internal/infra"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

type OptionInput struct {
	Name   string
	Values []string
}

type VariantInput struct {
	SKU        string
	Attributes map[string]string
	Stock      int
	Price      int64
	Images     []string
}

type CreateProductRequest struct {
	Title       string
	Description string
	Options     []OptionInput
	Variants    []VariantInput
}

type UpdateVariantRequest struct {
	Price      *int64
	Stock      *int
	Images     *[]string
	Attributes *map[string]string
}

type ProductCommands interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*queries.ProductView, error)
	UpdateVariant(ctx context.Context, productID uuid.UUID, sku string, req UpdateVariantRequest) (*queries.ProductView, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}

type productCommandsImpl struct {
	uow   shared.UnitOfWork
	cache queries.ProductCache
	clock clock.Clock
}

func NewProductCommands(uow shared.UnitOfWork, cache queries.ProductCache, clk clock.Clock) ProductCommands {
	return &productCommandsImpl{uow: uow, cache: cache, clock: clk}
}

func (uc *productCommandsImpl) CreateProduct(ctx context.Context, req CreateProductRequest) (*queries.ProductView, error) {
	p, err := req.toDomain(uc.clock)
	if err != nil {
		return nil, errs.Mark(err, ErrDomainValidation)
	}

	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Catalog().CreateProduct(ctx, tx.DB(), p)
	})
	if err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return nil, ErrDuplicateSKU
		}
		return nil, err
	}

	slog.Info("product created", "product_id", p.ID().String(), "variants", len(p.Variants()))
	return queries.ProductViewFromDomain(p), nil
}

func (uc *productCommandsImpl) UpdateVariant(ctx context.Context, productID uuid.UUID, sku string, req UpdateVariantRequest) (*queries.ProductView, error) {
	patch := catalog.VariantPatch{
		Stock:      req.Stock,
		Images:     req.Images,
		Attributes: req.Attributes,
	}
	if req.Price != nil {
		price, err := catalog.NewMoney(*req.Price)
		if err != nil {
			return nil, errs.Mark(err, ErrDomainValidation)
		}
		patch.Price = &price
	}

	var updated *catalog.Product
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		p, err := findProduct(ctx, tx, productID, true)
		if err != nil {
			return err
		}

		v, err := p.UpdateVariant(sku, patch, uc.clock.Now())
		if err != nil {
			if errs.Is(err, catalog.ErrVariantNotFound) {
				return errs.Wrapf(ErrVariantNotFound, "sku %s", sku)
			}
			return errs.Mark(err, ErrDomainValidation)
		}

		if err := tx.Catalog().UpdateVariant(ctx, tx.DB(), productID, v, req.Stock, p.UpdatedAt()); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, productID)
	return queries.ProductViewFromDomain(updated), nil
}

// DeleteProduct removes the product and its variants. Existing orders keep
// their snapshots; carts referencing it fail at checkout.
func (uc *productCommandsImpl) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		err := tx.Catalog().DeleteProduct(ctx, tx.DB(), productID)
		if isNotFound(err) {
			return ErrProductNotFound
		}
		return err
	})
	if err != nil {
		return err
	}

	uc.invalidate(ctx, productID)
	return nil
}

func (uc *productCommandsImpl) invalidate(ctx context.Context, productID uuid.UUID) {
	if err := uc.cache.Invalidate(ctx, productID); err != nil {
		slog.Warn("product cache invalidation failed", "product_id", productID.String(), "error", err.Error())
	}
}

func (r CreateProductRequest) toDomain(clk clock.Clock) (*catalog.Product, error) {
	options := make([]catalog.Option, 0, len(r.Options))
	for _, o := range r.Options {
		opt, err := catalog.NewOption(o.Name, o.Values)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	variants := make([]catalog.Variant, 0, len(r.Variants))
	for _, in := range r.Variants {
		price, err := catalog.NewMoney(in.Price)
		if err != nil {
			return nil, err
		}
		v, err := catalog.NewVariant(in.SKU, in.Attributes, in.Stock, price, in.Images)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}

	return catalog.NewProduct(r.Title, r.Description, options, variants, clk.Now())
}
