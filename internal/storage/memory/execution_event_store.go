package memory

import (
	"context"
	"sort"
	"sync"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// ExecutionEventStore is an in-memory implementation of storage.ExecutionEventStore.
type ExecutionEventStore struct {
	mu     sync.RWMutex
	events []*domain.ExecutionEvent
}

// NewExecutionEventStore creates a new in-memory execution event store.
func NewExecutionEventStore() *ExecutionEventStore {
	return &ExecutionEventStore{}
}

// InsertBulk appends a batch of events.
func (s *ExecutionEventStore) InsertBulk(_ context.Context, events []*domain.ExecutionEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.ExecutionID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		copy := *e
		s.events = append(s.events, &copy)
	}
	return nil
}

// GetByExecutionID retrieves all events for an execution, ordered by timestamp ASC.
func (s *ExecutionEventStore) GetByExecutionID(_ context.Context, executionID string) ([]*domain.ExecutionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionEvent
	for _, e := range s.events {
		if e.ExecutionID == executionID {
			copy := *e
			result = append(result, &copy)
		}
	}

	// Stable sort keeps insertion order for equal timestamps, which is
	// the stage order the pipeline emitted.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.ExecutionEventStore = (*ExecutionEventStore)(nil)
