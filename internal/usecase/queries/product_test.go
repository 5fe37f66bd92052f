//go:build unit

package queries_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/infra"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/queries"
	"storefront/tests/common/builder"
	queriesmock "storefront/tests/mock/queries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type productMocks struct {
	store    *queriesmock.MockProductReadStore
	cache    *queriesmock.MockProductCache
	observer *queriesmock.MockCacheObserver
}

func newProductQueries(t *testing.T) (queries.ProductQueries, productMocks) {
	ctrl := gomock.NewController(t)
	m := productMocks{
		store:    queriesmock.NewMockProductReadStore(ctrl),
		cache:    queriesmock.NewMockProductCache(ctrl),
		observer: queriesmock.NewMockCacheObserver(ctrl),
	}
	return queries.NewProductQueries(m.store, m.cache, m.observer), m
}

func TestProductQueries_GetByID(t *testing.T) {
	ctx := context.Background()
	view, err := builder.NewProductBuilder().BuildView()
	require.NoError(t, err)

	t.Run("cache hit skips the database", func(t *testing.T) {
		q, m := newProductQueries(t)
		m.cache.EXPECT().Get(ctx, view.ID).Return(view, true, nil)
		m.observer.EXPECT().CacheHit()

		got, err := q.GetByID(ctx, view.ID)
		require.NoError(t, err)
		assert.Same(t, view, got)
	})

	t.Run("cache miss reads through and fills the cache", func(t *testing.T) {
		q, m := newProductQueries(t)
		gomock.InOrder(
			m.cache.EXPECT().Get(ctx, view.ID).Return(nil, false, nil),
			m.observer.EXPECT().CacheMiss(),
			m.store.EXPECT().FindByID(ctx, view.ID).Return(view, nil),
			m.cache.EXPECT().Set(ctx, view).Return(nil),
		)

		got, err := q.GetByID(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, view, got)
	})

	t.Run("cache errors degrade to the database", func(t *testing.T) {
		q, m := newProductQueries(t)
		m.cache.EXPECT().Get(ctx, view.ID).Return(nil, false, errors.New("redis: connection refused"))
		m.observer.EXPECT().CacheMiss()
		m.store.EXPECT().FindByID(ctx, view.ID).Return(view, nil)
		m.cache.EXPECT().Set(ctx, view).Return(errors.New("redis: connection refused"))

		got, err := q.GetByID(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, view, got)
	})

	t.Run("missing product is not cached", func(t *testing.T) {
		q, m := newProductQueries(t)
		m.cache.EXPECT().Get(ctx, view.ID).Return(nil, false, nil)
		m.observer.EXPECT().CacheMiss()
		m.store.EXPECT().FindByID(ctx, view.ID).Return(nil, infra.WrapRepoErr("product not found", nil, infra.KindNotFound))

		_, err := q.GetByID(ctx, view.ID)
		assert.True(t, errs.Is(err, queries.ErrProductNotFound))
	})
}

func TestProductQueries_List(t *testing.T) {
	ctx := context.Background()
	view, err := builder.NewProductBuilder().BuildView()
	require.NoError(t, err)

	t.Run("single page has no next cursor", func(t *testing.T) {
		q, m := newProductQueries(t)
		m.store.EXPECT().List(ctx, queries.Page{Limit: queries.DefaultListLimit + 1}).Return([]*queries.ProductView{view}, nil)

		got, next, err := q.List(ctx, nil, 0)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Nil(t, next)
	})

	t.Run("malformed cursor", func(t *testing.T) {
		q, _ := newProductQueries(t)
		_, _, err := q.List(ctx, &queries.Cursor{After: "bogus"}, 10)
		assert.True(t, errs.Is(err, queries.ErrInvalidCursor))
	})
}
