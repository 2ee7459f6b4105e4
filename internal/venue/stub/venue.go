// Package stub provides an in-memory venue client for tests.
package stub

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/venue"
)

// Client is a configurable in-memory venue.Client.
type Client struct {
	mu sync.Mutex

	// DecimalsByMint maps mint to decimals. Missing mints report
	// venue.DefaultDecimals.
	DecimalsByMint map[string]int

	// Errs injects an error per method name.
	Errs map[string]error

	// BuyErrs injects an error for a specific buy amount (decimal string).
	BuyErrs map[string]error

	// SellErrs injects an error for a specific sell raw amount.
	SellErrs map[uint64]error

	// Blockhash is embedded in every built artifact.
	Blockhash string

	// LastValidBlockHeight is embedded in every built artifact.
	LastValidBlockHeight uint64

	// Delay is applied before every build, for timing-sensitive tests.
	Delay time.Duration

	buyCalls  int
	sellCalls int
}

// NewClient creates a stub venue client.
func NewClient() *Client {
	return &Client{
		DecimalsByMint:       make(map[string]int),
		Errs:                 make(map[string]error),
		BuyErrs:              make(map[string]error),
		SellErrs:             make(map[uint64]error),
		Blockhash:            "StubBlockhash111111111111111111111111111111",
		LastValidBlockHeight: 1000,
	}
}

func (c *Client) BuildBuyArtifact(ctx context.Context, mint string, solAmount decimal.Decimal) (*domain.UnsignedArtifact, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.buyCalls++

	if err := c.Errs["BuildBuyArtifact"]; err != nil {
		return nil, err
	}
	if err := c.BuyErrs[solAmount.String()]; err != nil {
		return nil, err
	}

	lamports := solAmount.Shift(9).BigInt().Uint64()
	return &domain.UnsignedArtifact{
		Mint:                 mint,
		Side:                 domain.SideBuy,
		RawAmount:            lamports,
		Payload:              stubPayload(mint, "buy", solAmount.String()),
		Blockhash:            c.Blockhash,
		LastValidBlockHeight: c.LastValidBlockHeight,
		BuiltAt:              time.Now().UnixMilli(),
	}, nil
}

func (c *Client) BuildSellArtifact(ctx context.Context, mint string, rawAmount uint64) (*domain.UnsignedArtifact, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sellCalls++

	if err := c.Errs["BuildSellArtifact"]; err != nil {
		return nil, err
	}
	if err := c.SellErrs[rawAmount]; err != nil {
		return nil, err
	}

	return &domain.UnsignedArtifact{
		Mint:                 mint,
		Side:                 domain.SideSell,
		RawAmount:            rawAmount,
		Payload:              stubPayload(mint, "sell", fmt.Sprintf("%d", rawAmount)),
		Blockhash:            c.Blockhash,
		LastValidBlockHeight: c.LastValidBlockHeight,
		BuiltAt:              time.Now().UnixMilli(),
	}, nil
}

func (c *Client) Decimals(ctx context.Context, mint string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.Errs["Decimals"]; err != nil {
		return 0, err
	}

	if d, ok := c.DecimalsByMint[mint]; ok {
		return d, nil
	}
	return venue.DefaultDecimals, nil
}

// BuyCalls returns the number of buy builds performed.
func (c *Client) BuyCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buyCalls
}

// SellCalls returns the number of sell builds performed.
func (c *Client) SellCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sellCalls
}

func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	delay := c.Delay
	c.mu.Unlock()

	if delay == 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func stubPayload(mint, side, amount string) string {
	return base64.StdEncoding.EncodeToString([]byte("stub-tx:" + mint + ":" + side + ":" + amount))
}

var _ venue.Client = (*Client)(nil)
