package domain

// Side represents the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Route identifies the submission path that carried a transaction.
type Route string

const (
	RoutePriority Route = "PRIORITY"
	RouteDirect   Route = "DIRECT"
)

// String returns the string representation of Route.
func (r Route) String() string {
	return string(r)
}

// UnsignedArtifact is one venue-built unsigned swap transaction.
// Payload carries the base64 wire bytes exactly as the venue returned
// them; nothing in the engine inspects them beyond signing. The artifact
// stops being signable once its blockhash falls out of the validity
// window, which the engine can only infer from a sign or submit failure.
type UnsignedArtifact struct {
	Mint                 string
	Side                 Side
	AmountKey            string // canonical buy amount in SOL, or sell percentage
	RawAmount            uint64 // raw units sold (sell) or lamports spent (buy)
	Payload              string // base64 unsigned wire transaction
	Blockhash            string // recent blockhash the venue embedded
	LastValidBlockHeight uint64
	BuiltAt              int64 // Unix timestamp in milliseconds
}

// SignedArtifact is an UnsignedArtifact with its fee-payer signature filled in.
type SignedArtifact struct {
	Mint      string
	Side      Side
	AmountKey string
	Payload   string // base64 signed wire transaction
	Signature string // base58 primary signature
}

// ExecutionStatus is the terminal state recorded for one execution.
type ExecutionStatus string

const (
	ExecutionConfirmed ExecutionStatus = "CONFIRMED"
	ExecutionPending   ExecutionStatus = "PENDING" // submitted, confirmation window elapsed
	ExecutionFailed    ExecutionStatus = "FAILED"
)

// String returns the string representation of ExecutionStatus.
func (s ExecutionStatus) String() string {
	return string(s)
}

// ExecutionRecord represents one user-initiated trade execution.
// Corresponds to execution_records table in PostgreSQL.
type ExecutionRecord struct {
	ExecutionID string          // PRIMARY KEY, deterministic hash
	RequestID   string          // UUID assigned at API ingress
	Mint        string          // token mint address
	Side        Side            // BUY | SELL
	AmountKey   string          // buy amount in SOL or sell percentage
	RawAmount   uint64          // raw units moved
	Signature   string          // on-chain signature, empty if never submitted
	Route       Route           // PRIORITY | DIRECT
	CacheHit    bool            // artifact came from the preload cache
	Rebuilds    int             // rebuild-and-retry count, 0 or 1
	SubmitMs    int64           // latency from request to accepted submission
	ConfirmMs   int64           // latency from submission to confirmation, 0 if unconfirmed
	Status      ExecutionStatus // CONFIRMED | PENDING | FAILED
	ErrorKind   string          // taxonomy kind, empty on success
	CreatedAt   int64           // Unix timestamp in milliseconds
}
