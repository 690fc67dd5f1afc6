package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	getCursorSQL = `SELECT
        id,
        last_processed_signature,
        last_processed_slot,
        total_events_processed,
        last_poll_time,
        created_at,
        updated_at
    FROM cursors
    WHERE id = $1;`

	advanceCursorSQL = `INSERT INTO cursors (
        id,
        last_processed_signature,
        last_processed_slot,
        total_events_processed,
        last_poll_time
    ) VALUES (
        $1,$2,$3,$4,CURRENT_TIMESTAMP
    )
    ON CONFLICT (id) DO UPDATE
    SET
        last_processed_signature = EXCLUDED.last_processed_signature,
        last_processed_slot      = EXCLUDED.last_processed_slot,
        total_events_processed   = cursors.total_events_processed + $4,
        last_poll_time           = CURRENT_TIMESTAMP,
        updated_at               = CURRENT_TIMESTAMP;`

	listCursorsSQL = `SELECT
        id,
        last_processed_signature,
        last_processed_slot,
        total_events_processed,
        last_poll_time,
        created_at,
        updated_at
    FROM cursors
    ORDER BY updated_at DESC;`
)

// CursorStore defines durable per-category cursor operations. The
// non-decreasing-slot contract is the caller's to uphold; the store performs
// no monotonicity validation.
type CursorStore interface {
	GetCursor(ctx context.Context, category string) (*Cursor, error)
	AdvanceCursor(ctx context.Context, category, signature string, slot int64, eventsDelta int64) error
}

// GetCursor returns the cursor for a category, or nil when the category has
// never been polled.
func (s *Store) GetCursor(ctx context.Context, category string) (*Cursor, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var cur Cursor
	row := pool.QueryRow(ctx, getCursorSQL, category)
	if err := row.Scan(
		&cur.ID,
		&cur.LastProcessedSignature,
		&cur.LastProcessedSlot,
		&cur.TotalEventsProcessed,
		&cur.LastPollTime,
		&cur.CreatedAt,
		&cur.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cursor %s: %w", category, err)
	}
	return &cur, nil
}

// AdvanceCursor upserts the category's cursor to the given signature/slot,
// accumulating eventsDelta and always touching last_poll_time. It succeeds
// even when zero events were extracted, so a transaction with no matching
// markers is never re-fetched.
func (s *Store) AdvanceCursor(ctx context.Context, category, signature string, slot int64, eventsDelta int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, advanceCursorSQL, category, signature, slot, eventsDelta); err != nil {
		return fmt.Errorf("advance cursor %s: %w", category, err)
	}
	return nil
}

// ListCursors returns all cursors, most recently updated first.
func (s *Store) ListCursors(ctx context.Context) ([]Cursor, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCursorsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list cursors: %w", queryErr)
	}
	defer rows.Close()

	cursors := make([]Cursor, 0)
	for rows.Next() {
		var cur Cursor
		if err := rows.Scan(
			&cur.ID,
			&cur.LastProcessedSignature,
			&cur.LastProcessedSlot,
			&cur.TotalEventsProcessed,
			&cur.LastPollTime,
			&cur.CreatedAt,
			&cur.UpdatedAt,
		); err != nil {
			return nil, err
		}
		cursors = append(cursors, cur)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return cursors, nil
}
