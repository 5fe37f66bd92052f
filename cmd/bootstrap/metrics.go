package bootstrap

import (
	"storefront/internal/infra/metrics"
	"storefront/internal/usecase/queries"
	"storefront/internal/usecase/shared"

	"go.uber.org/fx"
)

var MetricsModule = fx.Module("metrics",
	fx.Provide(
		metrics.New,
		func(m *metrics.Metrics) shared.OrderMetrics { return m },
		func(m *metrics.Metrics) queries.CacheObserver { return m },
	),
)
