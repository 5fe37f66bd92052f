package repository

import (
	"context"
	"time"

	"storefront/internal/infra"
	"storefront/internal/infra/db"
	"storefront/internal/infra/outbox"
	"storefront/internal/usecase/shared"
)

const (
	enqueueEventSQL = `
INSERT INTO order_events (kind, order_id, payload, run_at)
VALUES ($1, $2, $3, $4)`

	claimEventsSQL = `
SELECT id, kind, order_id, payload, attempts
FROM order_events
WHERE status = 'pending' AND run_at <= $1
ORDER BY run_at, id
LIMIT $2
FOR UPDATE SKIP LOCKED`

	markEventSentSQL = `
UPDATE order_events
SET status = 'sent', sent_at = $2, attempts = attempts + 1, last_error = NULL
WHERE id = $1`

	markEventFailedSQL = `
UPDATE order_events
SET attempts = attempts + 1,
    last_error = $2,
    run_at = $3,
    status = CASE WHEN attempts + 1 >= $4 THEN 'failed' ELSE 'pending' END
WHERE id = $1`
)

// OrderEventRepository writes the order event outbox and serves the relay.
type OrderEventRepository struct{}

func NewOrderEventRepository() *OrderEventRepository {
	return &OrderEventRepository{}
}

var (
	_ shared.OrderEventRepository = (*OrderEventRepository)(nil)
	_ outbox.Store                = (*OrderEventRepository)(nil)
)

func (r *OrderEventRepository) Enqueue(ctx context.Context, tx db.DBTX, ev shared.OrderEvent) error {
	if _, err := tx.Exec(ctx, enqueueEventSQL, ev.Kind, ev.OrderID, ev.Payload, ev.RunAt); err != nil {
		return infra.WrapRepoErr("failed to enqueue order event", err, infra.ClassifyPgError(err))
	}
	return nil
}

// ClaimPending locks up to limit due events. Rows locked by another relay
// are skipped, so several instances can run side by side.
func (r *OrderEventRepository) ClaimPending(ctx context.Context, tx db.DBTX, now time.Time, limit int) ([]outbox.Event, error) {
	rows, err := tx.Query(ctx, claimEventsSQL, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim order events", err, infra.KindDBFailure)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var ev outbox.Event
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.OrderID, &ev.Payload, &ev.Attempts); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order event", err, infra.KindDBFailure)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate order events", err, infra.KindDBFailure)
	}
	return events, nil
}

func (r *OrderEventRepository) MarkSent(ctx context.Context, tx db.DBTX, id int64, now time.Time) error {
	if _, err := tx.Exec(ctx, markEventSentSQL, id, now); err != nil {
		return infra.WrapRepoErr("failed to mark order event sent", err, infra.KindDBFailure)
	}
	return nil
}

func (r *OrderEventRepository) MarkFailed(ctx context.Context, tx db.DBTX, id int64, reason string, retryAt time.Time, maxAttempts int) error {
	if _, err := tx.Exec(ctx, markEventFailedSQL, id, reason, retryAt, maxAttempts); err != nil {
		return infra.WrapRepoErr("failed to mark order event failed", err, infra.KindDBFailure)
	}
	return nil
}
