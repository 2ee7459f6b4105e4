package engine

import (
	"context"
	"errors"
	"time"

	"solana-trade-engine/internal/stats"
)

// StatusReport is the JSON body of the status endpoint.
type StatusReport struct {
	Status          string         `json:"status"`
	Uptime          string         `json:"uptime"`
	ActiveToken     string         `json:"activeToken,omitempty"`
	CachedArtifacts int            `json:"cachedArtifacts"`
	CacheAgeMs      int64          `json:"cacheAgeMs,omitempty"`
	ObservedToken   string         `json:"observedToken,omitempty"`
	ObservedBalance uint64         `json:"observedBalance,omitempty"`
	Stats           *stats.Summary `json:"stats,omitempty"`
}

// Status reports the live cache, the last watched balance and the
// ledger aggregates. An empty ledger simply omits the stats block.
func (e *Engine) Status(ctx context.Context) *StatusReport {
	report := &StatusReport{
		Status: "running",
		Uptime: time.Since(e.started).String(),
	}

	if e.preloader != nil {
		if c := e.preloader.Snapshot(); c != nil {
			report.ActiveToken = c.Mint
			report.CachedArtifacts = c.Count()
			report.CacheAgeMs = c.Age(time.Now()).Milliseconds()
		}
	}
	if e.watcher != nil {
		if mint, raw, ok := e.watcher.LastBalance(); ok {
			report.ObservedToken = mint
			report.ObservedBalance = raw
		}
	}
	if e.stats != nil {
		summary, err := e.stats.Summarize(ctx)
		switch {
		case errors.Is(err, stats.ErrNoExecutions):
			// Nothing traded yet.
		case err != nil:
			e.logger.Printf("stats aggregation failed: %v", err)
		default:
			report.Stats = summary
		}
	}
	return report
}
