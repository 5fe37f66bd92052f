// Package outbox relays order events written to the order_events table to
// Kafka. Delivery is at least once; consumers key on the order id.
package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storefront/internal/infra/db"
	"storefront/internal/pkg/clock"
	"storefront/internal/pkg/config"
	"storefront/internal/usecase/shared"

	"github.com/google/uuid"
)

const maxRetryDelay = 5 * time.Minute

type Event struct {
	ID       int64
	Kind     string
	OrderID  uuid.UUID
	Payload  []byte
	Attempts int
}

type Store interface {
	ClaimPending(ctx context.Context, tx db.DBTX, now time.Time, limit int) ([]Event, error)
	MarkSent(ctx context.Context, tx db.DBTX, id int64, now time.Time) error
	MarkFailed(ctx context.Context, tx db.DBTX, id int64, reason string, retryAt time.Time, maxAttempts int) error
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Relay struct {
	uow       shared.UnitOfWork
	store     Store
	publisher Publisher
	clock     clock.Clock
	cfg       config.OutboxConfig

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRelay(uow shared.UnitOfWork, store Store, publisher Publisher, clk clock.Clock, cfg config.OutboxConfig) *Relay {
	return &Relay{
		uow:       uow,
		store:     store,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start polls in the background until Stop is called.
func (r *Relay) Start() {
	go r.loop()
	slog.Info("outbox relay started", "topic", r.cfg.Topic, "interval", r.cfg.PollInterval.String())
}

// Stop waits for the current batch to finish or ctx to expire.
func (r *Relay) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	select {
	case <-r.done:
		slog.Info("outbox relay stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.stop
		cancel()
	}()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			// Keep draining while full batches come back.
			for {
				n, err := r.RunOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("outbox relay batch failed", "error", err.Error())
					}
					break
				}
				if n < r.cfg.BatchSize {
					break
				}
			}
		}
	}
}

// RunOnce publishes one batch of due events and returns how many were claimed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var claimed int
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := r.clock.Now()
		events, err := r.store.ClaimPending(ctx, tx.DB(), now, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		claimed = len(events)

		for _, ev := range events {
			if err := r.publisher.Publish(ctx, ev); err != nil {
				attempts := ev.Attempts + 1
				slog.Warn("order event publish failed",
					"event_id", ev.ID,
					"kind", ev.Kind,
					"order_id", ev.OrderID.String(),
					"attempt", attempts,
					"error", err.Error())
				if attempts >= r.cfg.MaxAttempts {
					slog.Error("order event gave up", "event_id", ev.ID, "attempts", attempts)
				}
				if err := r.store.MarkFailed(ctx, tx.DB(), ev.ID, err.Error(), now.Add(r.retryDelay(attempts)), r.cfg.MaxAttempts); err != nil {
					return err
				}
				continue
			}
			if err := r.store.MarkSent(ctx, tx.DB(), ev.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) retryDelay(attempts int) time.Duration {
	d := r.cfg.PollInterval
	for i := 1; i < attempts && d < maxRetryDelay; i++ {
		d *= 2
	}
	return min(d, maxRetryDelay)
}
