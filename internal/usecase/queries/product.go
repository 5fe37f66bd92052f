package queries

//go:generate mockgen -source=product.go -destination=../../../tests/mock/queries/product_mock.go -package=queriesmock

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/infra"

	"github.com/google/uuid"
)

type OptionView struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type VariantView struct {
	SKU        string            `json:"sku"`
	Attributes map[string]string `json:"attributes"`
	Stock      int               `json:"stock"`
	Price      int64             `json:"price"`
	Images     []string          `json:"images"`
}

type ProductView struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Options     []OptionView  `json:"options"`
	Variants    []VariantView `json:"variants"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func ProductViewFromDomain(p *catalog.Product) *ProductView {
	options := make([]OptionView, 0, len(p.Options()))
	for _, o := range p.Options() {
		options = append(options, OptionView{Name: o.Name(), Values: o.Values()})
	}
	variants := make([]VariantView, 0, len(p.Variants()))
	for _, v := range p.Variants() {
		variants = append(variants, VariantView{
			SKU:        v.SKU(),
			Attributes: v.Attributes(),
			Stock:      v.Stock(),
			Price:      v.Price().Minor(),
			Images:     v.Images(),
		})
	}
	return &ProductView{
		ID:          p.ID(),
		Title:       p.Title(),
		Description: p.Description(),
		Options:     options,
		Variants:    variants,
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

type ProductReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductView, error)
	List(ctx context.Context, page Page) ([]*ProductView, error)
}

// ProductCache is a best-effort read-through cache for product views.
// Errors are logged by callers and never fail a request.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductView, bool, error)
	Set(ctx context.Context, view *ProductView) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

type ProductQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ProductView, error)
	List(ctx context.Context, cursor *Cursor, limit int) ([]*ProductView, *Cursor, error)
}

type productQueriesImpl struct {
	store    ProductReadStore
	cache    ProductCache
	observer CacheObserver
}

func NewProductQueries(store ProductReadStore, cache ProductCache, observer CacheObserver) ProductQueries {
	return &productQueriesImpl{store: store, cache: cache, observer: observer}
}

func (q *productQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	if cached, ok, err := q.cache.Get(ctx, id); err != nil {
		slog.Warn("product cache read failed", "product_id", id.String(), "error", err.Error())
	} else if ok {
		q.observer.CacheHit()
		return cached, nil
	}
	q.observer.CacheMiss()

	v, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := q.cache.Set(ctx, v); err != nil {
		slog.Warn("product cache write failed", "product_id", id.String(), "error", err.Error())
	}
	return v, nil
}

func (q *productQueriesImpl) List(ctx context.Context, cursor *Cursor, limit int) ([]*ProductView, *Cursor, error) {
	limit = ValidateLimit(limit)
	page, err := pageFor(cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	rows, err := q.store.List(ctx, page)
	if err != nil {
		return nil, nil, err
	}

	rows, next := nextCursor(rows, limit, func(v *ProductView) (time.Time, uuid.UUID) {
		return v.CreatedAt, v.ID
	})
	return rows, next, nil
}
