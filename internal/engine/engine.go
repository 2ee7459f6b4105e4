// Package engine is the service facade in front of the trade
// machinery. It owns request validation, the per-token execution lock,
// the result envelope, and the bookkeeping around each run: metrics,
// the execution ledger and the event trail. The pipeline underneath
// stays ignorant of transports and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/execution"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/preload"
	"solana-trade-engine/internal/stats"
	"solana-trade-engine/internal/storage"
)

// Preloader builds and exposes the artifact cache.
type Preloader interface {
	Preload(ctx context.Context, mint string) (*preload.BuildResult, error)
	Snapshot() *preload.Cache
}

// Executor runs one trade to its terminal state.
type Executor interface {
	Execute(ctx context.Context, mint string, side domain.Side, amount decimal.Decimal) (*execution.Receipt, error)
}

// Restarter controls the background refresh loop.
type Restarter interface {
	Restart(ctx context.Context, mint string)
	Stop()
}

// BalanceWatcher follows the wallet's token account for the active mint.
type BalanceWatcher interface {
	Watch(ctx context.Context, owner, mint string) error
	LastBalance() (mint string, rawAmount uint64, ok bool)
	Stop()
}

// PreloadRequest asks for the cache to be built for one token.
type PreloadRequest struct {
	Token string `json:"token"`
}

// ExecuteRequest asks for one trade. Amount is the SOL to spend on a
// buy; Percent is the whole percentage of the balance to sell. Exactly
// one of them applies, selected by Side.
type ExecuteRequest struct {
	Token   string          `json:"token"`
	Side    string          `json:"side"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Options configures an Engine. Preloader, Executor and Owner are
// required for the corresponding operations; Records, Events and
// Watcher are optional and disable their feature when nil.
type Options struct {
	Preloader Preloader
	Executor  Executor
	Refresher Restarter
	Watcher   BalanceWatcher
	Records   storage.ExecutionRecordStore
	Events    storage.ExecutionEventStore
	Owner     string

	// PriorityEnabled marks that a priority channel is configured, so
	// a direct-routed receipt means a fallback happened.
	PriorityEnabled bool

	// Background outlives request contexts and parents the refresh
	// loop, the watcher and ledger writes. Defaults to
	// context.Background().
	Background context.Context

	StatsWindow int
	Logger      *log.Logger
}

// Engine serves the operations the HTTP layer exposes.
type Engine struct {
	preloader Preloader
	executor  Executor
	refresher Restarter
	watcher   BalanceWatcher
	records   storage.ExecutionRecordStore
	events    storage.ExecutionEventStore
	stats     *stats.Aggregator
	owner     string

	priorityEnabled bool
	background      context.Context
	logger          *log.Logger
	started         time.Time

	mu     sync.Mutex
	tokens map[string]*sync.Mutex
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Background == nil {
		opts.Background = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	e := &Engine{
		preloader:       opts.Preloader,
		executor:        opts.Executor,
		refresher:       opts.Refresher,
		watcher:         opts.Watcher,
		records:         opts.Records,
		events:          opts.Events,
		owner:           opts.Owner,
		priorityEnabled: opts.PriorityEnabled,
		background:      opts.Background,
		logger:          opts.Logger,
		started:         time.Now(),
		tokens:          make(map[string]*sync.Mutex),
	}
	if opts.Records != nil {
		e.stats = stats.NewAggregator(opts.Records, opts.StatsWindow)
	}
	return e
}

// Preload builds a fresh artifact generation for the requested token,
// arms the refresh loop and points the balance watcher at the token.
// It is deliberately not serialized against Execute: the cache swap is
// atomic and every consumer re-validates what it reads.
func (e *Engine) Preload(ctx context.Context, req PreloadRequest) Result {
	if req.Token == "" {
		return failure(errors.New("token is required"))
	}
	if e.preloader == nil {
		return failure(domain.Errf(domain.KindNotReady, "preload service is not configured"))
	}

	requestID := uuid.NewString()
	started := time.Now()

	res, err := e.preloader.Preload(ctx, req.Token)
	if err != nil {
		observability.RecordPreload(false, 0, time.Since(started).Seconds())
		e.logger.Printf("preload %s for %s failed: %v", requestID, req.Token, err)
		return failure(err)
	}
	count := res.Cache.Count()
	observability.RecordPreload(true, count, time.Since(started).Seconds())

	if e.refresher != nil {
		e.refresher.Restart(e.background, req.Token)
	}
	if e.watcher != nil {
		// Watching is best effort; the trade paths re-read balances
		// over RPC regardless.
		if err := e.watcher.Watch(e.background, e.owner, req.Token); err != nil {
			e.logger.Printf("balance watch for %s failed: %v", req.Token, err)
		}
	}

	e.logger.Printf("preload %s cached %d artifacts for %s in %s", requestID, count, req.Token, time.Since(started))
	return success(PreloadValue{CachedCount: count})
}

// Execute runs one trade and answers with its signature. Calls for the
// same token are serialized for the whole pipeline run, which closes
// the double-submission race between two clicks on the same button;
// different tokens proceed in parallel.
func (e *Engine) Execute(ctx context.Context, req ExecuteRequest) Result {
	side := domain.Side(strings.ToUpper(strings.TrimSpace(req.Side)))
	if req.Token == "" {
		return failure(errors.New("token is required"))
	}
	if !side.IsValid() {
		return failure(fmt.Errorf("side must be BUY or SELL, got %q", req.Side))
	}
	amount := req.Amount
	if side == domain.SideSell {
		amount = req.Percent
	}
	if !amount.IsPositive() {
		if side == domain.SideBuy {
			return failure(fmt.Errorf("amount must be a positive SOL value, got %s", amount))
		}
		return failure(fmt.Errorf("percent must be positive, got %s", amount))
	}
	if side == domain.SideSell && amount.GreaterThan(decimal.NewFromInt(100)) {
		return failure(fmt.Errorf("percent %s exceeds 100", amount))
	}
	if e.executor == nil {
		return failure(domain.Errf(domain.KindNotReady, "execution pipeline is not configured"))
	}

	requestID := uuid.NewString()

	lock := e.tokenLock(req.Token)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	receipt, err := e.executor.Execute(ctx, req.Token, side, amount)
	elapsed := time.Since(started)

	e.observe(side, receipt, err, elapsed)
	e.persist(requestID, req.Token, side, amount.String(), started, receipt, err)

	if err != nil {
		e.logger.Printf("execute %s %s %s failed after %s: %v", requestID, side, req.Token, elapsed, err)
		return failure(err)
	}
	if receipt.Status == domain.ExecutionPending {
		e.logger.Printf("execute %s %s %s submitted as %s, confirmation window elapsed", requestID, side, req.Token, receipt.Signature)
		return failure(domain.Errf(domain.KindConfirmationTimeout,
			"confirmation window elapsed for %s; the transaction may still land", receipt.Signature))
	}

	e.logger.Printf("execute %s %s %s confirmed as %s via %s in %s", requestID, side, req.Token, receipt.Signature, receipt.Route, elapsed)
	return success(ExecuteValue{Signature: receipt.Signature})
}

// Close stops the background loops. Safe to call more than once.
func (e *Engine) Close() {
	if e.refresher != nil {
		e.refresher.Stop()
	}
	if e.watcher != nil {
		e.watcher.Stop()
	}
}

// tokenLock returns the mutex serializing executions for mint. Locks
// are never removed; the tracked-token set of one wallet stays small.
func (e *Engine) tokenLock(mint string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.tokens[mint]
	if !ok {
		m = &sync.Mutex{}
		e.tokens[mint] = m
	}
	return m
}

// observe feeds the metrics that describe one finished execution.
// Submission routing metrics are recorded by the router itself.
func (e *Engine) observe(side domain.Side, receipt *execution.Receipt, err error, elapsed time.Duration) {
	status := domain.ExecutionFailed
	if receipt != nil {
		status = receipt.Status
	}
	observability.RecordExecution(string(side), string(status), elapsed.Seconds())

	if receipt == nil {
		return
	}
	observability.RecordCacheDecision(receipt.CacheHit)
	observability.RecordRebuilds(receipt.Rebuilds)
	if receipt.Signature != "" {
		observability.RecordCacheCleared()
	}
	switch receipt.Status {
	case domain.ExecutionConfirmed:
		observability.RecordConfirmation("confirmed", float64(receipt.ConfirmMs)/1000)
	case domain.ExecutionPending:
		observability.RecordConfirmation("timeout", 0)
	case domain.ExecutionFailed:
		if domain.IsKind(err, domain.KindExecutionReverted) {
			observability.RecordConfirmation("reverted", 0)
		} else {
			observability.RecordConfirmation("failed", 0)
		}
	}
}
