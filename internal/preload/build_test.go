package preload

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/venue/stub"
)

type balanceRead struct {
	raw      uint64
	decimals int
	err      error
}

// fakeOracle serves scripted RawBalance reads in order; the last entry
// repeats once the script runs out.
type fakeOracle struct {
	mu    sync.Mutex
	reads []balanceRead
	calls int
}

func (f *fakeOracle) RawBalance(ctx context.Context, owner, mint string) (uint64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.reads) == 0 {
		return 0, 0, nil
	}
	r := f.reads[0]
	if len(f.reads) > 1 {
		f.reads = f.reads[1:]
	}
	return r.raw, r.decimals, r.err
}

func (f *fakeOracle) Lamports(ctx context.Context, owner string) (uint64, error) {
	return 0, nil
}

func (f *fakeOracle) UIBalance(ctx context.Context, owner, mint string) (float64, error) {
	return 0, nil
}

func (f *fakeOracle) rawCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestBuilder_Build(t *testing.T) {
	vc := stub.NewClient()
	orc := &fakeOracle{reads: []balanceRead{{raw: 1_000_000, decimals: 6}}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cache := res.Cache
	if cache.Mint != "mintX" {
		t.Errorf("mint = %q, want mintX", cache.Mint)
	}
	if cache.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if cache.RawBalance != 1_000_000 {
		t.Errorf("RawBalance = %d, want 1000000", cache.RawBalance)
	}
	if cache.Decimals != 6 {
		t.Errorf("Decimals = %d, want 6", cache.Decimals)
	}
	if res.FailureCount() != 0 {
		t.Errorf("FailureCount = %d, want 0", res.FailureCount())
	}

	wantBuys := map[string]uint64{"0.5": 500_000_000, "1": 1_000_000_000}
	if len(cache.Buys) != len(wantBuys) {
		t.Fatalf("got %d buy artifacts, want %d", len(cache.Buys), len(wantBuys))
	}
	for key, lamports := range wantBuys {
		art, ok := cache.Buy(key)
		if !ok {
			t.Fatalf("missing buy artifact %q", key)
		}
		if art.RawAmount != lamports {
			t.Errorf("buy %q RawAmount = %d, want %d", key, art.RawAmount, lamports)
		}
		if art.AmountKey != key {
			t.Errorf("buy %q AmountKey = %q", key, art.AmountKey)
		}
		if art.Side != domain.SideBuy {
			t.Errorf("buy %q side = %q", key, art.Side)
		}
	}

	wantSells := map[string]uint64{"25": 250_000, "50": 500_000, "100": 1_000_000}
	if len(cache.Sells) != len(wantSells) {
		t.Fatalf("got %d sell artifacts, want %d", len(cache.Sells), len(wantSells))
	}
	for key, raw := range wantSells {
		art, ok := cache.Sell(key)
		if !ok {
			t.Fatalf("missing sell artifact %q", key)
		}
		if art.RawAmount != raw {
			t.Errorf("sell %q RawAmount = %d, want %d", key, art.RawAmount, raw)
		}
		if art.AmountKey != key {
			t.Errorf("sell %q AmountKey = %q", key, art.AmountKey)
		}
	}

	// One read to decide whether to sell, one fresh read to size the sells.
	if got := orc.rawCalls(); got != 2 {
		t.Errorf("balance reads = %d, want 2", got)
	}
}

func TestBuilder_Build_SellsUseFreshBalance(t *testing.T) {
	vc := stub.NewClient()
	orc := &fakeOracle{reads: []balanceRead{
		{raw: 1_000, decimals: 6},
		{raw: 2_000, decimals: 6},
	}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Cache.RawBalance != 2_000 {
		t.Errorf("snapshot = %d, want the re-read 2000", res.Cache.RawBalance)
	}
	art, ok := res.Cache.Sell("50")
	if !ok {
		t.Fatal("missing 50% sell")
	}
	if art.RawAmount != 1_000 {
		t.Errorf("50%% sell RawAmount = %d, want 1000 from the fresh read", art.RawAmount)
	}
}

func TestBuilder_Build_ZeroBalance(t *testing.T) {
	vc := stub.NewClient()
	vc.DecimalsByMint["mintX"] = 7
	orc := &fakeOracle{reads: []balanceRead{{raw: 0, decimals: 0}}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Cache.Buys) != 2 {
		t.Errorf("got %d buys, want 2", len(res.Cache.Buys))
	}
	if len(res.Cache.Sells) != 0 {
		t.Errorf("got %d sells, want 0", len(res.Cache.Sells))
	}
	if res.Cache.Decimals != 7 {
		t.Errorf("Decimals = %d, want 7 from the venue registry", res.Cache.Decimals)
	}
	if got := orc.rawCalls(); got != 1 {
		t.Errorf("balance reads = %d, want 1 with nothing to sell", got)
	}
}

func TestBuilder_Build_PartialFailures(t *testing.T) {
	vc := stub.NewClient()
	vc.BuyErrs["1"] = errors.New("no route")
	vc.SellErrs[250] = errors.New("no route")
	orc := &fakeOracle{reads: []balanceRead{{raw: 1_000, decimals: 6}}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("partial failures must not fail the build: %v", err)
	}
	if _, ok := res.Cache.Buy("0.5"); !ok {
		t.Error("surviving buy 0.5 missing")
	}
	if _, ok := res.Cache.Buy("1"); ok {
		t.Error("failed buy 1 should not be cached")
	}
	if res.BuyFailures["1"] == nil {
		t.Error("buy failure for 1 not recorded")
	}
	if _, ok := res.Cache.Sell("25"); ok {
		t.Error("failed sell 25 should not be cached")
	}
	if res.SellFailures["25"] == nil {
		t.Error("sell failure for 25 not recorded")
	}
	if len(res.Cache.Sells) != 2 {
		t.Errorf("got %d sells, want 2 survivors", len(res.Cache.Sells))
	}
	if res.FailureCount() != 2 {
		t.Errorf("FailureCount = %d, want 2", res.FailureCount())
	}
}

func TestBuilder_Build_OracleDown(t *testing.T) {
	vc := stub.NewClient()
	orc := &fakeOracle{reads: []balanceRead{{err: errors.New("rpc down")}}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err == nil {
		t.Fatal("expected error when the primary balance read fails")
	}
	if !domain.IsKind(err, domain.KindNotReady) {
		t.Errorf("error kind = %v, want NOT_READY", err)
	}
	if res != nil {
		t.Error("no result expected on a failed build")
	}
}

func TestBuilder_Build_SellReadFailure(t *testing.T) {
	vc := stub.NewClient()
	orc := &fakeOracle{reads: []balanceRead{
		{raw: 1_000, decimals: 6},
		{err: errors.New("rpc flake")},
	}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("re-read failure must not fail the build: %v", err)
	}
	if len(res.Cache.Buys) != 2 {
		t.Errorf("got %d buys, want 2", len(res.Cache.Buys))
	}
	if len(res.Cache.Sells) != 0 {
		t.Errorf("got %d sells, want 0 after a failed re-read", len(res.Cache.Sells))
	}
	if len(res.SellFailures) != 3 {
		t.Errorf("got %d sell failures, want one per percentage", len(res.SellFailures))
	}
	if res.Cache.RawBalance != 1_000 {
		t.Errorf("snapshot = %d, want the primary read 1000", res.Cache.RawBalance)
	}
}

func TestBuilder_Build_DustSkipsSmallPercents(t *testing.T) {
	vc := stub.NewClient()
	orc := &fakeOracle{reads: []balanceRead{{raw: 3, decimals: 6}}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{Logger: quietLogger()})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := res.Cache.Sell("25"); ok {
		t.Error("25% of 3 floors to zero and must be skipped")
	}
	if art, ok := res.Cache.Sell("50"); !ok || art.RawAmount != 1 {
		t.Errorf("50%% sell = %+v, want RawAmount 1", art)
	}
	if art, ok := res.Cache.Sell("100"); !ok || art.RawAmount != 3 {
		t.Errorf("100%% sell = %+v, want RawAmount 3", art)
	}
	// Flooring to zero is a non-event, not a failure.
	if res.FailureCount() != 0 {
		t.Errorf("FailureCount = %d, want 0", res.FailureCount())
	}
}

func TestBuilder_CustomPresets(t *testing.T) {
	vc := stub.NewClient()
	orc := &fakeOracle{reads: []balanceRead{{raw: 1_000, decimals: 6}}}
	b := NewBuilder(vc, orc, "owner1", BuilderOptions{
		BuyAmounts:   []decimal.Decimal{decimal.NewFromFloat(0.25)},
		SellPercents: []decimal.Decimal{decimal.NewFromInt(10)},
		Logger:       quietLogger(),
	})

	res, err := b.Build(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if art, ok := res.Cache.Buy("0.25"); !ok || art.RawAmount != 250_000_000 {
		t.Errorf("buy 0.25 = %+v, want 250000000 lamports", art)
	}
	if art, ok := res.Cache.Sell("10"); !ok || art.RawAmount != 100 {
		t.Errorf("sell 10 = %+v, want RawAmount 100", art)
	}
}

func TestSellRawAmount(t *testing.T) {
	tests := []struct {
		balance uint64
		percent int64
		want    uint64
	}{
		{1_000, 25, 250},
		{3, 25, 0},
		{3, 50, 1},
		{101, 33, 33},
		{7, 100, 7},
		{0, 100, 0},
		{1_000, 0, 0},
		{18446744073709551615, 100, 18446744073709551615},
	}
	for _, tt := range tests {
		got := SellRawAmount(tt.balance, decimal.NewFromInt(tt.percent))
		if got != tt.want {
			t.Errorf("SellRawAmount(%d, %d%%) = %d, want %d", tt.balance, tt.percent, got, tt.want)
		}
	}
}
