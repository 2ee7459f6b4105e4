// Package stats aggregates the execution ledger into the summary the
// status endpoint serves: hit rates, route split, latency percentiles.
package stats

import (
	"context"
	"errors"

	"solana-trade-engine/internal/storage"
)

// ErrNoExecutions is returned when the ledger has nothing to aggregate.
var ErrNoExecutions = errors.New("no executions available for aggregation")

// DefaultWindow is how many recent executions feed one summary.
const DefaultWindow = 200

// Summary describes the engine's recent execution behaviour.
type Summary struct {
	TotalExecutions int            `json:"totalExecutions"`
	Confirmed       int            `json:"confirmed"`
	Pending         int            `json:"pending"`
	Failed          int            `json:"failed"`
	CacheHits       int            `json:"cacheHits"`
	CacheHitRate    float64        `json:"cacheHitRate"`
	Rebuilds        int            `json:"rebuilds"`
	PriorityRoutes  int            `json:"priorityRoutes"`
	DirectRoutes    int            `json:"directRoutes"`
	FallbackRate    float64        `json:"fallbackRate"`
	ErrorKinds      map[string]int `json:"errorKinds,omitempty"`

	SubmitMsP50  float64 `json:"submitMsP50"`
	SubmitMsP90  float64 `json:"submitMsP90"`
	SubmitMsMax  int64   `json:"submitMsMax"`
	ConfirmMsP50 float64 `json:"confirmMsP50"`
	ConfirmMsP90 float64 `json:"confirmMsP90"`
	ConfirmMsMax int64   `json:"confirmMsMax"`
}

// Aggregator computes execution summaries from the ledger.
type Aggregator struct {
	records storage.ExecutionRecordStore
	window  int
}

// NewAggregator creates an Aggregator over the given ledger. window is
// the number of most recent executions per summary; zero means
// DefaultWindow.
func NewAggregator(records storage.ExecutionRecordStore, window int) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Aggregator{records: records, window: window}
}

// Summarize aggregates the most recent executions. Returns
// ErrNoExecutions when the ledger is empty.
func (a *Aggregator) Summarize(ctx context.Context) (*Summary, error) {
	records, err := a.records.GetRecent(ctx, a.window)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoExecutions
	}
	return computeSummary(records), nil
}
