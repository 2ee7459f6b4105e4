package preload

import (
	"context"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/oracle"
	"solana-trade-engine/internal/venue"
)

// Default presets. Buys are SOL amounts, sells are percentages of the
// live raw balance.
var (
	DefaultBuyAmounts = []decimal.Decimal{
		decimal.NewFromFloat(0.5),
		decimal.NewFromInt(1),
	}
	DefaultSellPercents = []decimal.Decimal{
		decimal.NewFromInt(25),
		decimal.NewFromInt(50),
		decimal.NewFromInt(100),
	}
)

// SellRawAmount floors percent of balance in raw units. Zero means the
// percentage is too small to move anything at this balance.
func SellRawAmount(balance uint64, percent decimal.Decimal) uint64 {
	if balance == 0 || !percent.IsPositive() {
		return 0
	}
	raw := decimal.NewFromBigInt(new(big.Int).SetUint64(balance), 0).
		Mul(percent).
		Shift(-2).
		Floor()
	return raw.BigInt().Uint64()
}

// BuildResult reports one preload build: the assembled generation plus
// every per-artifact failure that was tolerated along the way. A failed
// amount or percentage reduces coverage, it never fails the build.
type BuildResult struct {
	Cache        *Cache
	BuyFailures  map[string]error
	SellFailures map[string]error
}

// FailureCount returns how many artifacts could not be built.
func (r *BuildResult) FailureCount() int {
	return len(r.BuyFailures) + len(r.SellFailures)
}

// Builder assembles preload generations from the venue and the balance
// oracle for a single owner wallet.
type Builder struct {
	venue        venue.Client
	balances     oracle.Oracle
	owner        string
	buyAmounts   []decimal.Decimal
	sellPercents []decimal.Decimal
	logger       *log.Logger
}

// BuilderOptions configures a Builder. Zero values select the defaults.
type BuilderOptions struct {
	BuyAmounts   []decimal.Decimal
	SellPercents []decimal.Decimal
	Logger       *log.Logger
}

// NewBuilder creates a Builder for the owner wallet.
func NewBuilder(venueClient venue.Client, balances oracle.Oracle, owner string, opts BuilderOptions) *Builder {
	if opts.BuyAmounts == nil {
		opts.BuyAmounts = DefaultBuyAmounts
	}
	if opts.SellPercents == nil {
		opts.SellPercents = DefaultSellPercents
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Builder{
		venue:        venueClient,
		balances:     balances,
		owner:        owner,
		buyAmounts:   opts.BuyAmounts,
		sellPercents: opts.SellPercents,
		logger:       opts.Logger,
	}
}

// Build assembles a full generation for mint. Buy artifacts are built
// concurrently with the balance read since they do not depend on it.
// Sell artifacts are floored from a second balance read taken after the
// buys were dispatched, so the amounts reflect the freshest state the
// chain will show us. The only hard failure is the primary balance
// read; everything the venue refuses to build is logged, recorded in
// the result and skipped.
func (b *Builder) Build(ctx context.Context, mint string) (*BuildResult, error) {
	res := &BuildResult{
		BuyFailures:  make(map[string]error),
		SellFailures: make(map[string]error),
	}
	cache := &Cache{
		Mint:      mint,
		Buys:      make(map[string]*domain.UnsignedArtifact),
		Sells:     make(map[string]*domain.UnsignedArtifact),
		CreatedAt: time.Now(),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, amount := range b.buyAmounts {
		wg.Add(1)
		go func(amount decimal.Decimal) {
			defer wg.Done()
			key := amount.String()
			art, err := b.venue.BuildBuyArtifact(ctx, mint, amount)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Printf("preload: buy %s SOL for %s failed: %v", key, mint, err)
				res.BuyFailures[key] = err
				return
			}
			art.AmountKey = key
			cache.Buys[key] = art
		}(amount)
	}

	balance, decimals, balErr := b.balances.RawBalance(ctx, b.owner, mint)
	wg.Wait()
	if balErr != nil {
		return nil, domain.WrapErr(domain.KindNotReady, balErr, "balance oracle read failed for "+mint)
	}

	cache.RawBalance = balance
	cache.Decimals = decimals
	if balance == 0 && decimals == 0 {
		// No token account yet. The venue registry is the only place
		// left that knows the mint's decimals.
		d, err := b.venue.Decimals(ctx, mint)
		if err != nil {
			b.logger.Printf("preload: decimals lookup for %s failed, assuming %d: %v", mint, venue.DefaultDecimals, err)
			d = venue.DefaultDecimals
		}
		cache.Decimals = d
	}

	if balance > 0 {
		b.buildSells(ctx, mint, cache, res)
	}

	res.Cache = cache
	return res, nil
}

// buildSells re-reads the raw balance and floors each percentage from
// that fresh value. Reusing the balance fetched alongside the buys
// would let a deposit or sweep that landed meanwhile skew every sell,
// so the first read only decides whether there is anything to sell.
func (b *Builder) buildSells(ctx context.Context, mint string, cache *Cache, res *BuildResult) {
	live, _, err := b.balances.RawBalance(ctx, b.owner, mint)
	if err != nil {
		b.logger.Printf("preload: sell balance re-read for %s failed, skipping sells: %v", mint, err)
		for _, percent := range b.sellPercents {
			res.SellFailures[percent.String()] = err
		}
		return
	}
	cache.RawBalance = live
	if live == 0 {
		return
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, percent := range b.sellPercents {
		raw := SellRawAmount(live, percent)
		if raw == 0 {
			// Too small to represent a single raw unit. Not a failure.
			continue
		}
		wg.Add(1)
		go func(key string, raw uint64) {
			defer wg.Done()
			art, err := b.venue.BuildSellArtifact(ctx, mint, raw)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Printf("preload: sell %s%% (%d raw) of %s failed: %v", key, raw, mint, err)
				res.SellFailures[key] = err
				return
			}
			art.AmountKey = key
			cache.Sells[key] = art
		}(percent.String(), raw)
	}
	wg.Wait()
}
