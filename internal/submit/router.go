package submit

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/observability"
	"solana-trade-engine/internal/poll"
)

// Router retry and polling defaults.
const (
	DefaultSendAttempts       = 3
	DefaultRetryInitialDelay  = 250 * time.Millisecond
	DefaultRetryMaxDelay      = 2 * time.Second
	DefaultBundlePollInterval = 500 * time.Millisecond
	DefaultBundleWait         = 10 * time.Second
)

// Router picks the submission path for one signed artifact.
type Router struct {
	priority     PriorityChannel
	direct       DirectChannel
	sendAttempts int
	retryInitial time.Duration
	retryMax     time.Duration
	pollInterval time.Duration
	bundleWait   time.Duration
	logger       *log.Logger
}

// RouterOptions configures a Router. Zero values select the defaults;
// a nil Priority disables the priority path entirely.
type RouterOptions struct {
	Priority           PriorityChannel
	SendAttempts       int
	RetryInitialDelay  time.Duration
	RetryMaxDelay      time.Duration
	BundlePollInterval time.Duration
	BundleWait         time.Duration
	Logger             *log.Logger
}

// NewRouter creates a Router over the direct channel.
func NewRouter(direct DirectChannel, opts RouterOptions) *Router {
	if opts.SendAttempts <= 0 {
		opts.SendAttempts = DefaultSendAttempts
	}
	if opts.RetryInitialDelay <= 0 {
		opts.RetryInitialDelay = DefaultRetryInitialDelay
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if opts.BundlePollInterval <= 0 {
		opts.BundlePollInterval = DefaultBundlePollInterval
	}
	if opts.BundleWait <= 0 {
		opts.BundleWait = DefaultBundleWait
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Router{
		priority:     opts.Priority,
		direct:       direct,
		sendAttempts: opts.SendAttempts,
		retryInitial: opts.RetryInitialDelay,
		retryMax:     opts.RetryMaxDelay,
		pollInterval: opts.BundlePollInterval,
		bundleWait:   opts.BundleWait,
		logger:       opts.Logger,
	}
}

// Submit routes the artifact. The priority channel is tried first when
// configured; only rate-limit exhaustion falls through to the direct
// channel. Every other priority failure is returned as-is.
func (r *Router) Submit(ctx context.Context, artifact *domain.SignedArtifact) (*Result, error) {
	if r.priority != nil {
		res, err := r.submitPriority(ctx, artifact)
		if err == nil {
			observability.RecordSubmission(string(res.Route))
			return res, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		r.logger.Printf("priority channel unavailable for %s %s, falling back to direct", artifact.Side, artifact.Mint)
		observability.RecordFallback()
	}

	sig, err := r.direct.Send(ctx, artifact)
	if err != nil {
		return nil, domain.WrapErr(domain.KindSubmissionFailed, err, "direct submission failed")
	}
	observability.RecordSubmission(string(domain.RouteDirect))
	return &Result{Signature: sig, Route: domain.RouteDirect}, nil
}

func (r *Router) submitPriority(ctx context.Context, artifact *domain.SignedArtifact) (*Result, error) {
	sub, err := r.sendBundle(ctx, artifact)
	if err != nil {
		return nil, err
	}
	return r.awaitBundle(ctx, artifact, sub.ID)
}

// sendBundle retries rate-limit pushback with exponential backoff and
// returns ErrUnavailable once the attempt budget is spent on it. Any
// other failure stops the retries immediately.
func (r *Router) sendBundle(ctx context.Context, artifact *domain.SignedArtifact) (*domain.BundleSubmission, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.retryInitial
	bo.MaxInterval = r.retryMax

	for attempt := 1; ; attempt++ {
		sub, err := r.priority.SendBundle(ctx, []*domain.SignedArtifact{artifact})
		if err == nil {
			return sub, nil
		}
		if !domain.IsKind(err, domain.KindRateLimited) {
			return nil, domain.WrapErr(domain.KindSubmissionFailed, err, "priority submission failed")
		}
		if attempt >= r.sendAttempts {
			return nil, ErrUnavailable
		}
		observability.RecordRateLimitRetry()
		sleep := bo.NextBackOff()
		r.logger.Printf("priority channel rate limited, attempt %d/%d, retrying in %s", attempt, r.sendAttempts, sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// awaitBundle polls the accepted bundle until it reaches a terminal
// state or the wait window closes. A bundle that never turns terminal
// is handed onward unconfirmed; the transaction may still land, and
// the confirmation poller is the one equipped to find out.
func (r *Router) awaitBundle(ctx context.Context, artifact *domain.SignedArtifact, id string) (*Result, error) {
	var final *domain.BundleSubmission
	err := poll.Until(ctx, r.pollInterval, r.bundleWait, func(ctx context.Context) (bool, error) {
		sub, err := r.priority.PollBundle(ctx, id)
		if err != nil {
			// Poll errors are transient by definition: the bundle was
			// accepted, only our view of it is degraded.
			r.logger.Printf("bundle %s status poll failed: %v", id, err)
			return false, nil
		}
		if sub.Status.Terminal() {
			final = sub
			return true, nil
		}
		return false, nil
	})
	if errors.Is(err, poll.ErrDeadline) {
		r.logger.Printf("bundle %s still pending after %s, deferring to confirmation", id, r.bundleWait)
		return &Result{Signature: artifact.Signature, Route: domain.RoutePriority}, nil
	}
	if err != nil {
		return nil, err
	}

	switch final.Status {
	case domain.BundleLanded:
		return &Result{Signature: artifact.Signature, Route: domain.RoutePriority, Confirmed: true}, nil
	case domain.BundleTimeout:
		return &Result{Signature: artifact.Signature, Route: domain.RoutePriority}, nil
	default:
		return nil, domain.Errf(domain.KindSubmissionFailed, "bundle %s failed: %s", id, final.Err)
	}
}
