// Package submit routes signed transactions to the chain. A bundle
// based priority channel is tried first when configured; rate limits
// there are retried with exponential backoff and, once exhausted,
// demoted to a direct RPC submission. Any other priority failure is
// final. The direct path returns an unconfirmed signature that the
// caller must hand to the confirmation poller; a landed bundle needs
// no further confirmation.
package submit

import (
	"context"
	"errors"

	"solana-trade-engine/internal/domain"
)

// ErrUnavailable reports that the priority channel refused the bundle
// for rate-limit reasons until the retry budget ran out. It is a
// routing signal, not a trade failure; the router consumes it by
// falling back to the direct channel.
var ErrUnavailable = errors.New("submit: priority channel unavailable")

// PriorityChannel submits artifact bundles for atomic, faster
// inclusion. Rate-limit pushback must surface as a RATE_LIMITED trade
// error so the router can tell it apart from hard failures.
type PriorityChannel interface {
	SendBundle(ctx context.Context, artifacts []*domain.SignedArtifact) (*domain.BundleSubmission, error)
	PollBundle(ctx context.Context, id string) (*domain.BundleSubmission, error)
}

// DirectChannel submits one signed transaction over plain RPC.
type DirectChannel interface {
	Send(ctx context.Context, artifact *domain.SignedArtifact) (string, error)
}

// Result is the outcome of one routed submission.
type Result struct {
	Signature string
	Route     domain.Route
	// Confirmed is true when the priority channel watched the bundle
	// land, which implies on-chain confirmation. Unconfirmed results
	// still need the confirmation poller.
	Confirmed bool
}
