package memory

import (
	"context"
	"errors"
	"testing"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func testRecord(executionID, mint string, createdAt int64) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{
		ExecutionID: executionID,
		RequestID:   "req-" + executionID,
		Mint:        mint,
		Side:        domain.SideBuy,
		AmountKey:   "0.5",
		RawAmount:   500_000_000,
		Signature:   "sig-" + executionID,
		Route:       domain.RouteDirect,
		CacheHit:    true,
		SubmitMs:    120,
		ConfirmMs:   900,
		Status:      domain.ExecutionConfirmed,
		CreatedAt:   createdAt,
	}
}

func TestExecutionRecordStore_InsertAndGet(t *testing.T) {
	store := NewExecutionRecordStore()
	ctx := context.Background()

	rec := testRecord("exec1", "mintA", 1000)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "exec1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Signature != "sig-exec1" {
		t.Errorf("Signature mismatch: got %s", got.Signature)
	}
	if got.Status != domain.ExecutionConfirmed {
		t.Errorf("Status mismatch: got %s", got.Status)
	}
	if !got.CacheHit {
		t.Error("CacheHit flag lost")
	}

	// Mutating the returned copy must not touch the stored row.
	got.Signature = "tampered"
	again, err := store.GetByID(ctx, "exec1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if again.Signature != "sig-exec1" {
		t.Error("store returned a shared pointer instead of a copy")
	}
}

func TestExecutionRecordStore_DuplicateKey(t *testing.T) {
	store := NewExecutionRecordStore()
	ctx := context.Background()

	rec := testRecord("exec1", "mintA", 1000)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, rec)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestExecutionRecordStore_NotFound(t *testing.T) {
	store := NewExecutionRecordStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestExecutionRecordStore_InvalidInput(t *testing.T) {
	store := NewExecutionRecordStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil record, got %v", err)
	}
	if err := store.Insert(ctx, &domain.ExecutionRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty execution_id, got %v", err)
	}
}

func TestExecutionRecordStore_GetByMint(t *testing.T) {
	store := NewExecutionRecordStore()
	ctx := context.Background()

	for _, rec := range []*domain.ExecutionRecord{
		testRecord("exec1", "mintA", 1000),
		testRecord("exec2", "mintB", 2000),
		testRecord("exec3", "mintA", 3000),
	} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByMint(ctx, "mintA")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].ExecutionID != "exec3" || got[1].ExecutionID != "exec1" {
		t.Errorf("Expected newest first, got %s, %s", got[0].ExecutionID, got[1].ExecutionID)
	}
}

func TestExecutionRecordStore_GetRecent(t *testing.T) {
	store := NewExecutionRecordStore()
	ctx := context.Background()

	for _, rec := range []*domain.ExecutionRecord{
		testRecord("exec1", "mintA", 1000),
		testRecord("exec2", "mintA", 3000),
		testRecord("exec3", "mintB", 2000),
	} {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].ExecutionID != "exec2" || got[1].ExecutionID != "exec3" {
		t.Errorf("Expected exec2, exec3 newest first, got %s, %s", got[0].ExecutionID, got[1].ExecutionID)
	}

	if _, err := store.GetRecent(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for zero limit, got %v", err)
	}
}
