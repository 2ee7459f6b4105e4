package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/execution"
	"solana-trade-engine/internal/idhash"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/storage"
)

// persistTimeout bounds the ledger and event writes that run after the
// trade itself finished.
const persistTimeout = 5 * time.Second

// persist records one finished execution in the ledger and the event
// sink. Both sinks are optional and neither can fail the trade; errors
// are logged and dropped. Writes run under the background context so a
// caller hanging up mid-request does not lose the row.
func (e *Engine) persist(requestID, mint string, side domain.Side, amountKey string, started time.Time, receipt *execution.Receipt, execErr error) {
	if e.records == nil && e.events == nil {
		return
	}

	executionID := idhash.ComputeExecutionID(requestID, mint, string(side), amountKey)
	record := buildRecord(executionID, requestID, mint, side, amountKey, started, receipt, execErr)

	ctx, cancel := context.WithTimeout(e.background, persistTimeout)
	defer cancel()

	if e.records != nil {
		qStart := time.Now()
		err := e.records.Insert(ctx, record)
		observability.RecordDBQuery("postgres", "insert_execution_record", time.Since(qStart).Seconds(), err)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			e.logger.Printf("ledger write for %s failed: %v", executionID, err)
		}
	}
	if e.events != nil {
		batch := buildTrail(record, receipt, execErr, e.priorityEnabled)
		qStart := time.Now()
		err := e.events.InsertBulk(ctx, batch)
		observability.RecordDBQuery("clickhouse", "insert_execution_events", time.Since(qStart).Seconds(), err)
		if err != nil {
			e.logger.Printf("event write for %s failed: %v", executionID, err)
		}
	}
}

// buildRecord flattens one execution outcome into its ledger row. A
// nil receipt means the trade never reached the wire.
func buildRecord(executionID, requestID, mint string, side domain.Side, amountKey string, started time.Time, receipt *execution.Receipt, execErr error) *domain.ExecutionRecord {
	rec := &domain.ExecutionRecord{
		ExecutionID: executionID,
		RequestID:   requestID,
		Mint:        mint,
		Side:        side,
		AmountKey:   amountKey,
		Status:      domain.ExecutionFailed,
		CreatedAt:   started.UnixMilli(),
	}
	if kind, ok := domain.KindOf(execErr); ok {
		rec.ErrorKind = string(kind)
	}
	if receipt != nil {
		rec.RawAmount = receipt.RawAmount
		rec.Signature = receipt.Signature
		rec.Route = receipt.Route
		rec.CacheHit = receipt.CacheHit
		rec.Rebuilds = receipt.Rebuilds
		rec.SubmitMs = receipt.SubmitMs
		rec.ConfirmMs = receipt.ConfirmMs
		rec.Status = receipt.Status
		if rec.Status == domain.ExecutionPending && rec.ErrorKind == "" {
			rec.ErrorKind = string(domain.KindConfirmationTimeout)
		}
	}
	return rec
}

// trail accumulates the stage events of one execution with strictly
// increasing timestamps, so the sink's chronological order always
// matches the stage order even where latencies round to the same
// millisecond.
type trail struct {
	rec    *domain.ExecutionRecord
	lastMs int64
	events []*domain.ExecutionEvent
}

func newTrail(rec *domain.ExecutionRecord) *trail {
	return &trail{rec: rec, lastMs: rec.CreatedAt - 1}
}

func (t *trail) add(stage domain.Stage, route, detail string) {
	t.at(t.lastMs+1, stage, route, detail)
}

func (t *trail) at(ms int64, stage domain.Stage, route, detail string) {
	if ms <= t.lastMs {
		ms = t.lastMs + 1
	}
	t.lastMs = ms
	t.events = append(t.events, &domain.ExecutionEvent{
		ExecutionID: t.rec.ExecutionID,
		RequestID:   t.rec.RequestID,
		Mint:        t.rec.Mint,
		Side:        string(t.rec.Side),
		Stage:       string(stage),
		Route:       route,
		Detail:      detail,
		TimestampMs: ms,
	})
}

// buildTrail reconstructs the stage sequence of one execution from its
// receipt. The submitted and confirmed stages sit at their measured
// offsets; the stages between advance one millisecond at a time.
func buildTrail(rec *domain.ExecutionRecord, receipt *execution.Receipt, execErr error, priorityEnabled bool) []*domain.ExecutionEvent {
	t := newTrail(rec)
	if receipt == nil {
		t.add(domain.StageFailed, "", errDetail(execErr))
		return t.events
	}

	route := string(receipt.Route)
	// A rebuild implies the cache was consulted first, whichever stage
	// rejected the cached artifact.
	if receipt.CacheHit || receipt.Rebuilds > 0 {
		t.add(domain.StageCacheHit, "", "artifact "+rec.AmountKey)
	} else {
		t.add(domain.StageRebuild, "", "cache miss, built synchronously")
	}
	if receipt.Rebuilds > 0 {
		t.add(domain.StageRebuild, "", "cached artifact rejected, rebuilt once")
	}
	t.add(domain.StageSigned, "", "")
	if priorityEnabled && receipt.Route == domain.RouteDirect {
		t.add(domain.StageFallback, route, "priority channel unavailable")
	}
	t.at(rec.CreatedAt+receipt.SubmitMs, domain.StageSubmitted, route, fmt.Sprintf("submit took %dms", receipt.SubmitMs))

	switch receipt.Status {
	case domain.ExecutionConfirmed:
		t.at(rec.CreatedAt+receipt.SubmitMs+receipt.ConfirmMs, domain.StageConfirmed, route, fmt.Sprintf("slot %d", receipt.Slot))
	case domain.ExecutionPending:
		t.add(domain.StageTimeout, route, "confirmation window elapsed")
	case domain.ExecutionFailed:
		if domain.IsKind(execErr, domain.KindExecutionReverted) {
			t.add(domain.StageReverted, route, errDetail(execErr))
		} else {
			t.add(domain.StageFailed, route, errDetail(execErr))
		}
	}
	return t.events
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
