// Package execution turns a buy or sell request into a confirmed
// on-chain signature. The pipeline prefers the preloaded artifact when
// it is young enough to trust, falls back to building one on the spot,
// and gives a cached artifact exactly one second chance when signing
// or submission rejects it.
package execution

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/confirm"
	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/oracle"
	"solana-trade-engine/internal/preload"
	"solana-trade-engine/internal/submit"
	"solana-trade-engine/internal/venue"
	"solana-trade-engine/internal/wallet"
)

// DefaultFreshThreshold is the age beyond which a cached artifact is
// rebuilt instead of used. Deliberately shorter than the cache TTL:
// existence and usability are different bars.
const DefaultFreshThreshold = 5 * time.Second

// DefaultDriftThreshold is the relative balance change that rejects a
// cached sell. At five percent the floored amounts are stale enough to
// oversell or leave dust behind.
var DefaultDriftThreshold = decimal.NewFromFloat(0.05)

// Submitter routes one signed artifact to the chain.
type Submitter interface {
	Submit(ctx context.Context, artifact *domain.SignedArtifact) (*submit.Result, error)
}

// Confirmer waits for a submitted signature to turn terminal.
type Confirmer interface {
	Await(ctx context.Context, signature string) (*confirm.Result, error)
}

// CacheSource exposes the live preload generation.
type CacheSource interface {
	Snapshot() *preload.Cache
	Clear(mint string)
}

// RefreshStopper cancels the background refresh loop.
type RefreshStopper interface {
	Stop()
}

// Receipt describes one execution that reached the chain. It rides
// along with an error when the failure happened after submission, so
// the caller still gets the signature and route for its records.
type Receipt struct {
	Signature string
	Route     domain.Route
	Mint      string
	Side      domain.Side
	AmountKey string
	RawAmount uint64
	CacheHit  bool
	Rebuilds  int
	SubmitMs  int64
	ConfirmMs int64
	Slot      uint64
	Status    domain.ExecutionStatus
}

// Options configures a Pipeline. Venue, Balances, Signer, Submitter,
// Confirmer and Owner are required; a nil Cache disables the preload
// fast path entirely.
type Options struct {
	Venue     venue.Client
	Balances  oracle.Oracle
	Signer    wallet.Signer
	Submitter Submitter
	Confirmer Confirmer
	Owner     string

	Cache          CacheSource
	Refresher      RefreshStopper
	FreshThreshold time.Duration
	DriftThreshold decimal.Decimal
	Logger         *log.Logger
	Now            func() time.Time
}

// Pipeline executes trades.
type Pipeline struct {
	venue     venue.Client
	balances  oracle.Oracle
	signer    wallet.Signer
	submitter Submitter
	confirmer Confirmer
	owner     string

	cache     CacheSource
	refresher RefreshStopper
	fresh     time.Duration
	drift     decimal.Decimal
	logger    *log.Logger
	now       func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts Options) *Pipeline {
	if opts.FreshThreshold <= 0 {
		opts.FreshThreshold = DefaultFreshThreshold
	}
	if opts.DriftThreshold.IsZero() {
		opts.DriftThreshold = DefaultDriftThreshold
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		venue:     opts.Venue,
		balances:  opts.Balances,
		signer:    opts.Signer,
		submitter: opts.Submitter,
		confirmer: opts.Confirmer,
		owner:     opts.Owner,
		cache:     opts.Cache,
		refresher: opts.Refresher,
		fresh:     opts.FreshThreshold,
		drift:     opts.DriftThreshold,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// Execute runs one trade to its terminal state. amount is SOL for buys
// and a whole percentage of the balance for sells. The returned
// receipt is non-nil once a submission succeeded, even when err
// reports what happened to the transaction afterwards.
func (p *Pipeline) Execute(ctx context.Context, mint string, side domain.Side, amount decimal.Decimal) (*Receipt, error) {
	if !side.IsValid() {
		return nil, fmt.Errorf("invalid side %q", side)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if side == domain.SideSell && amount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("sell percent %s exceeds 100", amount)
	}

	started := time.Now()
	key := amount.String()

	artifact, cacheHit, err := p.resolveArtifact(ctx, mint, side, amount, key)
	if err != nil {
		return nil, err
	}

	rebuilds := 0
	signed, err := p.signer.Sign(ctx, artifact)
	if err != nil && cacheHit {
		// The cache bet a round trip on this artifact and lost. One
		// rebuild through the always-correct path, then we stop.
		p.logger.Printf("cached %s artifact for %s rejected at signing, rebuilding once: %v", side, mint, err)
		artifact, err = p.rebuild(ctx, mint, side, amount, key)
		if err != nil {
			return nil, err
		}
		cacheHit = false
		rebuilds = 1
		signed, err = p.signer.Sign(ctx, artifact)
	}
	if err != nil {
		return nil, err
	}

	res, err := p.submitter.Submit(ctx, signed)
	if err != nil && cacheHit && rebuilds == 0 {
		p.logger.Printf("cached %s artifact for %s rejected at submission, rebuilding once: %v", side, mint, err)
		artifact, err = p.rebuild(ctx, mint, side, amount, key)
		if err != nil {
			return nil, err
		}
		rebuilds = 1
		signed, err = p.signer.Sign(ctx, artifact)
		if err != nil {
			return nil, err
		}
		res, err = p.submitter.Submit(ctx, signed)
	}
	if err != nil {
		return nil, err
	}

	// The artifact is on the wire; whatever was cached is burnt now.
	p.clearCache(mint)

	receipt := &Receipt{
		Signature: res.Signature,
		Route:     res.Route,
		Mint:      mint,
		Side:      side,
		AmountKey: key,
		RawAmount: artifact.RawAmount,
		CacheHit:  cacheHit,
		Rebuilds:  rebuilds,
		SubmitMs:  time.Since(started).Milliseconds(),
		Status:    domain.ExecutionConfirmed,
	}
	if res.Confirmed {
		return receipt, nil
	}

	submitted := time.Now()
	cres, err := p.confirmer.Await(ctx, res.Signature)
	receipt.ConfirmMs = time.Since(submitted).Milliseconds()
	if err != nil {
		if domain.IsKind(err, domain.KindConfirmationTimeout) {
			// Ambiguous, not dead: the transaction can still land after
			// we stop watching.
			receipt.Status = domain.ExecutionPending
			receipt.ConfirmMs = 0
			return receipt, nil
		}
		receipt.Status = domain.ExecutionFailed
		return receipt, err
	}
	receipt.Slot = cres.Slot
	return receipt, nil
}

// resolveArtifact picks the cached artifact when every gate passes and
// rebuilds synchronously otherwise.
func (p *Pipeline) resolveArtifact(ctx context.Context, mint string, side domain.Side, amount decimal.Decimal, key string) (*domain.UnsignedArtifact, bool, error) {
	if art := p.cachedArtifact(ctx, mint, side, key); art != nil {
		return art, true, nil
	}
	art, err := p.rebuild(ctx, mint, side, amount, key)
	if err != nil {
		return nil, false, err
	}
	return art, false, nil
}

// cachedArtifact returns the preloaded artifact for the request, or
// nil when the cache cannot serve it: disabled, wrong token, past the
// freshness threshold, no entry for the amount, or a sell whose live
// balance drifted too far from the snapshot the amounts were floored
// from.
func (p *Pipeline) cachedArtifact(ctx context.Context, mint string, side domain.Side, key string) *domain.UnsignedArtifact {
	if p.cache == nil {
		return nil
	}
	cache := p.cache.Snapshot()
	if cache == nil || cache.Mint != mint {
		return nil
	}
	if !cache.Fresh(p.now(), p.fresh) {
		return nil
	}

	var art *domain.UnsignedArtifact
	var ok bool
	if side == domain.SideBuy {
		art, ok = cache.Buy(key)
	} else {
		art, ok = cache.Sell(key)
	}
	if !ok {
		return nil
	}

	if side == domain.SideSell {
		live, _, err := p.balances.RawBalance(ctx, p.owner, mint)
		if err != nil {
			p.logger.Printf("drift check for %s failed, ignoring cache: %v", mint, err)
			return nil
		}
		if driftExceeded(cache.RawBalance, live, p.drift) {
			p.logger.Printf("balance for %s drifted from %d to %d, ignoring cache", mint, cache.RawBalance, live)
			return nil
		}
	}
	return art
}

// rebuild is the always-correct cold path: current balance, current
// quote, nothing reused.
func (p *Pipeline) rebuild(ctx context.Context, mint string, side domain.Side, amount decimal.Decimal, key string) (*domain.UnsignedArtifact, error) {
	if side == domain.SideBuy {
		art, err := p.venue.BuildBuyArtifact(ctx, mint, amount)
		if err != nil {
			return nil, domain.WrapErr(domain.KindSubmissionFailed, err, "venue build failed")
		}
		art.AmountKey = key
		return art, nil
	}

	live, _, err := p.balances.RawBalance(ctx, p.owner, mint)
	if err != nil {
		return nil, domain.WrapErr(domain.KindNotReady, err, "balance read failed for "+mint)
	}
	if live == 0 {
		return nil, domain.Errf(domain.KindNoBalance, "no %s balance to sell", mint)
	}
	raw := preload.SellRawAmount(live, amount)
	if raw == 0 {
		return nil, domain.Errf(domain.KindAmountTooSmall, "%s%% of %d raw units floors to zero", key, live)
	}
	art, err := p.venue.BuildSellArtifact(ctx, mint, raw)
	if err != nil {
		return nil, domain.WrapErr(domain.KindSubmissionFailed, err, "venue build failed")
	}
	art.AmountKey = key
	return art, nil
}

func (p *Pipeline) clearCache(mint string) {
	if p.cache != nil {
		p.cache.Clear(mint)
	}
	if p.refresher != nil {
		p.refresher.Stop()
	}
}

// driftExceeded reports whether live has moved at least the threshold
// fraction away from snapshot. Computed in exact decimal arithmetic so
// the boundary is the boundary.
func driftExceeded(snapshot, live uint64, threshold decimal.Decimal) bool {
	if snapshot == live {
		return false
	}
	if snapshot == 0 {
		return true
	}
	s := decimal.NewFromBigInt(new(big.Int).SetUint64(snapshot), 0)
	l := decimal.NewFromBigInt(new(big.Int).SetUint64(live), 0)
	return l.Sub(s).Abs().GreaterThanOrEqual(s.Mul(threshold))
}
