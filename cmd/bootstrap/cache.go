package bootstrap

import (
	"context"
	"log/slog"

	"storefront/internal/infra/cache"
	"storefront/internal/pkg/config"
	"storefront/internal/usecase/queries"

	"go.uber.org/fx"
)

var CacheModule = fx.Module("cache",
	fx.Provide(
		NewProductCache,
	),
)

// NewProductCache falls back to a no-op cache when REDIS_ADDR is unset.
func NewProductCache(lc fx.Lifecycle, cfg config.Config) (queries.ProductCache, error) {
	if !cfg.Redis.Enabled() {
		slog.Info("product cache disabled")
		return cache.NopProductCache{}, nil
	}

	rdb, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return rdb.Close()
		},
	})
	return cache.NewProductCache(rdb, cfg.Redis.ProductTTL), nil
}
