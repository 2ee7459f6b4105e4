package domain

// Stage marks one pipeline transition inside a single execution.
type Stage string

const (
	StageCacheHit  Stage = "CACHE_HIT"
	StageRebuild   Stage = "REBUILD"
	StageSigned    Stage = "SIGNED"
	StageSubmitted Stage = "SUBMITTED"
	StageFallback  Stage = "FALLBACK"
	StageConfirmed Stage = "CONFIRMED"
	StageReverted  Stage = "REVERTED"
	StageTimeout   Stage = "TIMEOUT"
	StageFailed    Stage = "FAILED"
)

// String returns the string representation of Stage.
func (s Stage) String() string {
	return string(s)
}

// ExecutionEvent is one pipeline stage transition, written to the
// analytics sink. Corresponds to execution_events table in ClickHouse.
type ExecutionEvent struct {
	ExecutionID string // deterministic execution hash
	RequestID   string // UUID assigned at API ingress
	Mint        string // token mint address
	Side        string // BUY | SELL
	Stage       string // pipeline stage
	Route       string // PRIORITY | DIRECT, empty before routing
	Detail      string // free-form context (error text, drift pct, ...)
	TimestampMs int64  // Unix timestamp in milliseconds
}
