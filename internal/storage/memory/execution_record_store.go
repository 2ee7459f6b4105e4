package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ExecutionRecordStore is an in-memory implementation of storage.ExecutionRecordStore.
type ExecutionRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExecutionRecord // keyed by execution_id
}

// NewExecutionRecordStore creates a new in-memory execution record store.
func NewExecutionRecordStore() *ExecutionRecordStore {
	return &ExecutionRecordStore{
		data: make(map[string]*domain.ExecutionRecord),
	}
}

// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionRecordStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.ExecutionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ExecutionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ExecutionID] = &copy
	return nil
}

// GetByID retrieves an execution by its ID. Returns ErrNotFound if not exists.
func (s *ExecutionRecordStore) GetByID(_ context.Context, executionID string) (*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[executionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByMint retrieves all executions for a mint, newest first.
func (s *ExecutionRecordStore) GetByMint(_ context.Context, mint string) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.data {
		if r.Mint == mint {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// GetRecent retrieves the latest executions, newest first, at most limit rows.
func (s *ExecutionRecordStore) GetRecent(_ context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ExecutionRecord, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}

	sortNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortNewestFirst orders records by created_at DESC with execution_id
// as the tiebreaker so repeated reads see a stable order.
func sortNewestFirst(records []*domain.ExecutionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ExecutionID < records[j].ExecutionID
	})
}

var _ storage.ExecutionRecordStore = (*ExecutionRecordStore)(nil)
