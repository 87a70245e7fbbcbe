package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/callbook/libs/db"
)

// Dispatch is one booking-link SMS attempt. Only the link is logged, never
// an appointment: bookings are owned by the calendar provider.
type Dispatch struct {
	ID            string
	Recipient     string
	Provider      string
	Status        string
	SchedulingURL string
	EventTime     string
	Error         string
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

type DispatchRepository struct {
	pool *db.Pool
}

func NewDispatchRepository(pool *db.Pool) *DispatchRepository {
	return &DispatchRepository{pool: pool}
}

func (r *DispatchRepository) Record(ctx context.Context, d Dispatch) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sms_dispatches (id, recipient, provider, status, scheduling_url, event_time, error, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''))
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, error = EXCLUDED.error
	`, d.ID, d.Recipient, d.Provider, d.Status, d.SchedulingURL, d.EventTime, d.Error, d.Traceparent, d.Tracestate)
	return err
}

// ListByRecipient returns the most recent dispatches to one number.
func (r *DispatchRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]Dispatch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient, provider, status, scheduling_url, event_time,
		       COALESCE(error, ''), COALESCE(traceparent, ''), COALESCE(tracestate, ''), created_at
		FROM sms_dispatches
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(&d.ID, &d.Recipient, &d.Provider, &d.Status, &d.SchedulingURL, &d.EventTime,
			&d.Error, &d.Traceparent, &d.Tracestate, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
