package preload

import (
	"testing"
	"time"

	"solana-trade-engine/internal/domain"
)

func TestCache_Fresh(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Cache{CreatedAt: t0}
	threshold := 5 * time.Second

	if !c.Fresh(t0.Add(threshold-time.Millisecond), threshold) {
		t.Error("one millisecond under the threshold must be fresh")
	}
	if c.Fresh(t0.Add(threshold+time.Millisecond), threshold) {
		t.Error("one millisecond over the threshold must be stale")
	}
	if c.Fresh(t0.Add(threshold), threshold) {
		t.Error("exactly at the threshold must be stale")
	}
}

func TestCache_Expired(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Cache{CreatedAt: t0}
	ttl := 10 * time.Second

	if c.Expired(t0.Add(ttl-time.Millisecond), ttl) {
		t.Error("one millisecond under the TTL must still exist")
	}
	if !c.Expired(t0.Add(ttl+time.Millisecond), ttl) {
		t.Error("one millisecond over the TTL must be expired")
	}
}

func TestCache_Lookups(t *testing.T) {
	c := &Cache{
		Buys:  map[string]*domain.UnsignedArtifact{"0.5": {AmountKey: "0.5"}},
		Sells: map[string]*domain.UnsignedArtifact{"50": {AmountKey: "50"}},
	}
	if c.Count() != 2 {
		t.Errorf("Count = %d, want 2", c.Count())
	}
	if _, ok := c.Buy("0.5"); !ok {
		t.Error("buy 0.5 not found")
	}
	if _, ok := c.Buy("1"); ok {
		t.Error("buy 1 should be a miss")
	}
	if _, ok := c.Sell("50"); !ok {
		t.Error("sell 50 not found")
	}
	if _, ok := c.Sell("25"); ok {
		t.Error("sell 25 should be a miss")
	}
}
