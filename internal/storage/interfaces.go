package storage

import (
	"context"

	"solana-trade-engine/internal/domain"
)

// ExecutionRecordStore provides access to execution_records storage.
// The ledger is append-only: an execution is written once, at its
// terminal state, keyed by its deterministic execution ID.
type ExecutionRecordStore interface {
	// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetByID retrieves an execution by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, executionID string) (*domain.ExecutionRecord, error)

	// GetByMint retrieves all executions for a mint, newest first.
	GetByMint(ctx context.Context, mint string) ([]*domain.ExecutionRecord, error)

	// GetRecent retrieves the latest executions, newest first, at most limit rows.
	GetRecent(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error)
}

// ExecutionEventStore provides access to execution_events storage.
// Events are pure append: per-stage transitions with timestamps, never
// updated, never deduplicated (a stage can legitimately repeat within
// one execution after a rebuild).
type ExecutionEventStore interface {
	// InsertBulk appends a batch of events.
	InsertBulk(ctx context.Context, events []*domain.ExecutionEvent) error

	// GetByExecutionID retrieves all events for an execution, ordered by timestamp ASC.
	GetByExecutionID(ctx context.Context, executionID string) ([]*domain.ExecutionEvent, error)
}
