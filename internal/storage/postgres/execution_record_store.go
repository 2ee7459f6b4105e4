package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ExecutionRecordStore implements storage.ExecutionRecordStore using PostgreSQL.
type ExecutionRecordStore struct {
	pool *Pool
}

// NewExecutionRecordStore creates a new ExecutionRecordStore.
func NewExecutionRecordStore(pool *Pool) *ExecutionRecordStore {
	return &ExecutionRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionRecordStore = (*ExecutionRecordStore)(nil)

const executionRecordColumns = `
	execution_id, request_id, mint, side, amount_key, raw_amount,
	signature, route, cache_hit, rebuilds, submit_ms, confirm_ms,
	status, error_kind, created_at
`

// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionRecordStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.ExecutionID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO execution_records (` + executionRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ExecutionID, r.RequestID, r.Mint, string(r.Side), r.AmountKey, int64(r.RawAmount),
		r.Signature, string(r.Route), r.CacheHit, r.Rebuilds, r.SubmitMs, r.ConfirmMs,
		string(r.Status), r.ErrorKind, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// GetByID retrieves an execution by its ID. Returns ErrNotFound if not exists.
func (s *ExecutionRecordStore) GetByID(ctx context.Context, executionID string) (*domain.ExecutionRecord, error) {
	query := `
		SELECT ` + executionRecordColumns + `
		FROM execution_records
		WHERE execution_id = $1
	`

	row := s.pool.QueryRow(ctx, query, executionID)
	r, err := scanExecutionRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get execution record by id: %w", err)
	}
	return r, nil
}

// GetByMint retrieves all executions for a mint, newest first.
func (s *ExecutionRecordStore) GetByMint(ctx context.Context, mint string) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT ` + executionRecordColumns + `
		FROM execution_records
		WHERE mint = $1
		ORDER BY created_at DESC, execution_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get execution records by mint: %w", err)
	}
	defer rows.Close()

	return scanExecutionRecords(rows)
}

// GetRecent retrieves the latest executions, newest first, at most limit rows.
func (s *ExecutionRecordStore) GetRecent(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + executionRecordColumns + `
		FROM execution_records
		ORDER BY created_at DESC, execution_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent execution records: %w", err)
	}
	defer rows.Close()

	return scanExecutionRecords(rows)
}

// scanExecutionRecord scans a single row into an ExecutionRecord.
func scanExecutionRecord(row pgx.Row) (*domain.ExecutionRecord, error) {
	var r domain.ExecutionRecord
	var side, route, status string
	var rawAmount int64

	err := row.Scan(
		&r.ExecutionID, &r.RequestID, &r.Mint, &side, &r.AmountKey, &rawAmount,
		&r.Signature, &route, &r.CacheHit, &r.Rebuilds, &r.SubmitMs, &r.ConfirmMs,
		&status, &r.ErrorKind, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Side = domain.Side(side)
	r.Route = domain.Route(route)
	r.Status = domain.ExecutionStatus(status)
	r.RawAmount = uint64(rawAmount)
	return &r, nil
}

// scanExecutionRecords scans multiple rows into a slice of ExecutionRecord.
func scanExecutionRecords(rows pgx.Rows) ([]*domain.ExecutionRecord, error) {
	var records []*domain.ExecutionRecord

	for rows.Next() {
		r, err := scanExecutionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution record rows: %w", err)
	}

	return records, nil
}
