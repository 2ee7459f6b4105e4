package preload

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/poll"
)

// Refresher keeps the live generation warm by re-running the build on
// an interval while a preload is active. The loop cancels itself as
// soon as the service reports there is nothing left to refresh, so a
// token switch, an expiry or a post-trade clear all end it without
// outside help.
type Refresher struct {
	service  *Service
	interval time.Duration
	logger   *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RefresherOptions configures a Refresher. Zero values select the
// defaults.
type RefresherOptions struct {
	Interval time.Duration
	Logger   *log.Logger
}

// NewRefresher creates a Refresher over the service.
func NewRefresher(service *Service, opts RefresherOptions) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Refresher{
		service:  service,
		interval: opts.Interval,
		logger:   opts.Logger,
	}
}

// Restart stops any running loop and starts a new one for mint. The
// first refresh fires one interval after the call; the preload that
// triggered the restart already produced a fresh generation.
func (r *Refresher) Restart(ctx context.Context, mint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		poll.Every(loopCtx, r.interval, func(ctx context.Context) bool {
			active, err := r.service.Refresh(ctx, mint)
			if err != nil {
				observability.RecordRefresh(false)
				r.logger.Printf("refresh for %s failed, keeping previous generation: %v", mint, err)
			} else if active {
				observability.RecordRefresh(true)
			}
			return active
		})
		r.logger.Printf("refresh loop for %s exited", mint)
	}()
}

// Stop cancels the running loop, if any, and waits for it to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Refresher) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	r.wg.Wait()
}
