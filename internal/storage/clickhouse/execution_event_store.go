package clickhouse

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ExecutionEventStore implements storage.ExecutionEventStore using ClickHouse.
type ExecutionEventStore struct {
	conn *Conn
}

// NewExecutionEventStore creates a new ExecutionEventStore.
func NewExecutionEventStore(conn *Conn) *ExecutionEventStore {
	return &ExecutionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExecutionEventStore = (*ExecutionEventStore)(nil)

// InsertBulk appends a batch of events.
func (s *ExecutionEventStore) InsertBulk(ctx context.Context, events []*domain.ExecutionEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.ExecutionID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO execution_events (
			execution_id, request_id, mint, side, stage, route, detail, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.ExecutionID, e.RequestID, e.Mint, e.Side,
			e.Stage, e.Route, e.Detail, uint64(e.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByExecutionID retrieves all events for an execution, ordered by timestamp ASC.
func (s *ExecutionEventStore) GetByExecutionID(ctx context.Context, executionID string) ([]*domain.ExecutionEvent, error) {
	query := `
		SELECT execution_id, request_id, mint, side, stage, route, detail, timestamp_ms
		FROM execution_events
		WHERE execution_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("query by execution id: %w", err)
	}
	defer rows.Close()

	return scanExecutionEvents(rows)
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanExecutionEvents scans multiple rows.
func scanExecutionEvents(rows chRows) ([]*domain.ExecutionEvent, error) {
	var events []*domain.ExecutionEvent

	for rows.Next() {
		var e domain.ExecutionEvent
		var timestampMs uint64

		err := rows.Scan(
			&e.ExecutionID, &e.RequestID, &e.Mint, &e.Side,
			&e.Stage, &e.Route, &e.Detail, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution event row: %w", err)
		}

		e.TimestampMs = int64(timestampMs)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution event rows: %w", err)
	}

	return events, nil
}
