package bootstrap

import (
	"context"
	"log/slog"

	"storefront/internal/infra/outbox"
	"storefront/internal/infra/repository"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/config"
	"storefront/internal/usecase/shared"

	"go.uber.org/fx"
)

var OutboxModule = fx.Module("outbox",
	fx.Invoke(StartOutboxRelay),
)

// StartOutboxRelay publishes order events to Kafka when brokers are
// configured. Without brokers events accumulate in the outbox table.
func StartOutboxRelay(lc fx.Lifecycle, cfg config.Config, uow shared.UnitOfWork, clk clock.Clock) error {
	if !cfg.Outbox.Enabled() {
		slog.Info("outbox relay disabled, no kafka brokers configured")
		return nil
	}

	producer, err := outbox.NewSyncProducer(cfg.Outbox)
	if err != nil {
		return err
	}
	relay := outbox.NewRelay(uow, repository.NewOrderEventRepository(),
		outbox.NewKafkaPublisher(producer, cfg.Outbox.Topic), clk, cfg.Outbox)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			relay.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopErr := relay.Stop(ctx)
			if err := producer.Close(); err != nil {
				slog.Warn("failed to close kafka producer", "error", err.Error())
			}
			return stopErr
		},
	})
	return nil
}
