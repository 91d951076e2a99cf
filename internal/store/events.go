package store

import (
	"context"

	"shoestore/internal/models"

	"github.com/jmoiron/sqlx"
)

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// RecordOrderEvent stores an audited order event and marks it processed in
// the same transaction. It reports false when the event was already recorded.
func (s *Store) RecordOrderEvent(ctx context.Context, rec *models.OrderEventRecord) (bool, error) {
	recorded := false

	err := s.withTransaction(ctx, s.txOpts, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
			rec.EventID, rec.EventType)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}

		err = tx.GetContext(ctx, rec, `
			INSERT INTO order_events (event_id, event_type, order_id, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, event_id, event_type, order_id, payload, occurred_at, recorded_at`,
			rec.EventID, rec.EventType, rec.OrderID, string(rec.Payload), rec.OccurredAt)
		if err != nil {
			return err
		}
		recorded = true
		return nil
	})

	return recorded, translate(err, "record order event")
}

// ListOrderEvents returns the audit trail of one order, oldest first
func (s *Store) ListOrderEvents(ctx context.Context, orderID int64) ([]models.OrderEventRecord, error) {
	out := []models.OrderEventRecord{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, event_id, event_type, order_id, payload, occurred_at, recorded_at
		FROM order_events WHERE order_id = $1 ORDER BY occurred_at, id`, orderID)
	return out, translate(err, "list order events")
}
