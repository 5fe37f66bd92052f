package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/pkg/config"
	"storefront/internal/pkg/errs"
	"storefront/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.Wrap(err, "failed to connect to redis")
	}

	slog.Info("redis connection established", "addr", cfg.Addr)
	return rdb, nil
}

func productKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id)
}

// ProductCache stores product views as JSON under product:<id>.
type ProductCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ queries.ProductCache = (*ProductCache)(nil)

func NewProductCache(rdb redis.Cmdable, ttl time.Duration) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl}
}

func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*queries.ProductView, bool, error) {
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(err, "failed to read product from cache")
	}

	var view queries.ProductView
	if err := json.Unmarshal(data, &view); err != nil {
		// A stale or foreign payload is treated as a miss and dropped.
		_ = c.rdb.Del(ctx, productKey(id)).Err()
		return nil, false, nil
	}
	return &view, true, nil
}

func (c *ProductCache) Set(ctx context.Context, view *queries.ProductView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return errs.Wrap(err, "failed to encode product for cache")
	}
	if err := c.rdb.Set(ctx, productKey(view.ID), data, c.ttl).Err(); err != nil {
		return errs.Wrap(err, "failed to write product to cache")
	}
	return nil
}

func (c *ProductCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.rdb.Del(ctx, productKey(id)).Err(); err != nil {
		return errs.Wrap(err, "failed to invalidate product cache")
	}
	return nil
}

// NopProductCache is used when no redis address is configured.
type NopProductCache struct{}

var _ queries.ProductCache = NopProductCache{}

func (NopProductCache) Get(context.Context, uuid.UUID) (*queries.ProductView, bool, error) {
	return nil, false, nil
}

func (NopProductCache) Set(context.Context, *queries.ProductView) error { return nil }

func (NopProductCache) Invalidate(context.Context, uuid.UUID) error { return nil }
