// Package preload builds swap artifacts ahead of the user's click and
// holds them for a short window. A generation is built per token: one
// unsigned buy per configured SOL amount, one unsigned sell per
// configured percentage of the live balance, plus the balance snapshot
// the sell amounts were computed from. Consumers must check freshness
// and drift themselves; the cache only answers age questions.
package preload

import (
	"time"

	"solana-trade-engine/internal/domain"
)

// Timing defaults. Artifacts older than the TTL are gone for every
// purpose; the freshness threshold that gates direct use is owned by
// the execution pipeline, not by this package.
const (
	DefaultTTL             = 10 * time.Second
	DefaultRefreshInterval = 8 * time.Second
)

// Cache is one preload generation for a single token. Maps are keyed
// by the canonical amount string: SOL amount for buys ("0.5"), whole
// percentage for sells ("25"). A generation is immutable after build;
// replacement is wholesale.
type Cache struct {
	Mint       string
	Buys       map[string]*domain.UnsignedArtifact
	Sells      map[string]*domain.UnsignedArtifact
	RawBalance uint64 // balance the sell amounts were floored from
	Decimals   int
	CreatedAt  time.Time
}

// Count returns the number of artifacts held.
func (c *Cache) Count() int {
	return len(c.Buys) + len(c.Sells)
}

// Age returns how old the generation is at now.
func (c *Cache) Age(now time.Time) time.Duration {
	return now.Sub(c.CreatedAt)
}

// Expired reports whether the generation has outlived ttl entirely.
func (c *Cache) Expired(now time.Time, ttl time.Duration) bool {
	return c.Age(now) >= ttl
}

// Fresh reports whether the generation is young enough to trade from
// without a rebuild. Stricter than Expired: an unexpired generation
// can still be too stale to use.
func (c *Cache) Fresh(now time.Time, threshold time.Duration) bool {
	return c.Age(now) < threshold
}

// Buy returns the cached buy artifact for the canonical amount key.
func (c *Cache) Buy(amountKey string) (*domain.UnsignedArtifact, bool) {
	a, ok := c.Buys[amountKey]
	return a, ok
}

// Sell returns the cached sell artifact for the canonical percent key.
func (c *Cache) Sell(percentKey string) (*domain.UnsignedArtifact, bool) {
	a, ok := c.Sells[percentKey]
	return a, ok
}
