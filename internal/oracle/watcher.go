package oracle

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/solana"
)

// Watcher follows the owner's token account for the active mint over a
// WebSocket subscription. Observed balances are advisory: they feed logs,
// metrics and the status surface. Trade paths always re-read over RPC.
type Watcher struct {
	ws       solana.WSClient
	logger   *log.Logger
	onChange func(mint string, rawAmount uint64)

	mu      sync.Mutex
	cancel  context.CancelFunc
	account string
	mint    string
	balance uint64
	seen    bool

	wg sync.WaitGroup
}

// WatcherOptions contains configuration for creating a Watcher.
type WatcherOptions struct {
	Logger *log.Logger

	// OnChange fires once per observed balance change.
	OnChange func(mint string, rawAmount uint64)
}

// NewWatcher creates a balance watcher over an existing WebSocket client.
func NewWatcher(ws solana.WSClient, opts WatcherOptions) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Watcher{
		ws:       ws,
		logger:   logger,
		onChange: opts.OnChange,
	}
}

// Watch switches the watcher to the owner's token account for mint,
// tearing down any previous subscription.
func (w *Watcher) Watch(ctx context.Context, owner, mint string) error {
	account, err := DeriveAssociatedTokenAccount(owner, mint)
	if err != nil {
		return fmt.Errorf("derive token account: %w", err)
	}

	w.teardown(ctx)

	watchCtx, cancel := context.WithCancel(ctx)

	updates, err := w.ws.SubscribeAccount(watchCtx, account)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", account, err)
	}

	w.mu.Lock()
	w.cancel = cancel
	w.account = account
	w.mint = mint
	w.balance = 0
	w.seen = false
	w.mu.Unlock()

	w.wg.Add(1)
	go w.consume(watchCtx, mint, updates)

	w.logger.Printf("Watching token account %s for mint %s", account, mint)
	return nil
}

// Stop tears down the active subscription, if any.
func (w *Watcher) Stop() {
	w.teardown(context.Background())
	w.wg.Wait()
}

// LastBalance reports the most recent observed balance for the watched
// mint. ok is false until the first update arrives.
func (w *Watcher) LastBalance() (mint string, rawAmount uint64, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mint, w.balance, w.seen
}

func (w *Watcher) teardown(ctx context.Context) {
	w.mu.Lock()
	cancel := w.cancel
	account := w.account
	w.cancel = nil
	w.account = ""
	w.mint = ""
	w.balance = 0
	w.seen = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if account != "" {
		if err := w.ws.UnsubscribeAccount(ctx, account); err != nil {
			w.logger.Printf("Unsubscribe %s: %v", account, err)
		}
	}
}

func (w *Watcher) consume(ctx context.Context, mint string, updates <-chan solana.AccountUpdate) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			received := time.Now()
			raw, err := DecodeTokenAccountAmount(update.Data)
			if err != nil {
				w.logger.Printf("Bad account data for %s: %v", mint, err)
				continue
			}

			changed := false
			w.mu.Lock()
			// A stale goroutine from a previous Watch must not write.
			if w.mint == mint {
				changed = !w.seen || w.balance != raw
				w.balance = raw
				w.seen = true
			}
			w.mu.Unlock()

			if changed {
				w.logger.Printf("Balance change mint=%s raw=%d slot=%d", mint, raw, update.Slot)
				if w.onChange != nil {
					w.onChange(mint, raw)
				}
			}
			observability.RecordWSMessage(time.Since(received).Seconds())
		}
	}
}

// DecodeTokenAccountAmount extracts the raw token amount from base64 SPL
// token account data. Layout: mint (32), owner (32), amount u64 LE.
func DecodeTokenAccountAmount(data string) (uint64, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode account data: %w", err)
	}

	if len(decoded) < 72 {
		return 0, fmt.Errorf("token account data too short: %d bytes", len(decoded))
	}

	return binary.LittleEndian.Uint64(decoded[64:72]), nil
}
