// Package confirm waits for submitted transactions to reach a terminal
// on-chain state. A confirmation window elapsing is not a failure: the
// transaction may still land after we stop looking, and callers must
// treat that outcome as pending rather than dead.
package confirm

import (
	"context"
	"errors"
	"log"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/poll"
	"solana-trade-engine/internal/solana"
)

// Polling defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = time.Second
)

// Result is a successful confirmation.
type Result struct {
	Signature string
	Slot      uint64
}

// Poller polls signature statuses over RPC.
type Poller struct {
	rpc      solana.RPCClient
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger
}

// PollerOptions configures a Poller. Zero values select the defaults.
type PollerOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *log.Logger
}

// NewPoller creates a Poller over the RPC client.
func NewPoller(rpc solana.RPCClient, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Poller{
		rpc:      rpc,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Await polls until the signature confirms, the chain reports an
// execution error, or the window closes. An on-chain error returns
// EXECUTION_REVERTED immediately; an elapsed window returns
// CONFIRMATION_TIMEOUT, which callers must not read as a failure.
func (p *Poller) Await(ctx context.Context, signature string) (*Result, error) {
	var confirmed *Result
	err := poll.Until(ctx, p.interval, p.timeout, func(ctx context.Context) (bool, error) {
		statuses, err := p.rpc.GetSignatureStatuses(ctx, []string{signature})
		if err != nil {
			// RPC flakes are retried until the window decides.
			p.logger.Printf("status poll for %s failed: %v", signature, err)
			return false, nil
		}
		if len(statuses) == 0 {
			return false, nil
		}
		st := statuses[0]
		if st.Failed() {
			return false, domain.Errf(domain.KindExecutionReverted, "transaction %s failed on chain: %v", signature, st.Err)
		}
		if st.Confirmed() {
			confirmed = &Result{Signature: signature, Slot: st.Slot}
			return true, nil
		}
		return false, nil
	})
	if errors.Is(err, poll.ErrDeadline) {
		return nil, domain.Errf(domain.KindConfirmationTimeout, "no terminal state for %s within %s", signature, p.timeout)
	}
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}
