package venue

import (
	"context"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/domain"
)

// WSOLMint is the wrapped SOL mint, the quote side of every route.
const WSOLMint = "So11111111111111111111111111111111111111112"

// DefaultDecimals is assumed when the venue does not know a token.
const DefaultDecimals = 9

// LamportsPerSOL converts between SOL and raw lamports.
const LamportsPerSOL = 1_000_000_000

// Client builds unsigned swap transactions against a trading venue.
type Client interface {
	// BuildBuyArtifact builds an unsigned WSOL-to-token swap spending
	// solAmount SOL.
	BuildBuyArtifact(ctx context.Context, mint string, solAmount decimal.Decimal) (*domain.UnsignedArtifact, error)

	// BuildSellArtifact builds an unsigned token-to-WSOL swap selling
	// rawAmount base units.
	BuildSellArtifact(ctx context.Context, mint string, rawAmount uint64) (*domain.UnsignedArtifact, error)

	// Decimals returns the mint's decimals, or DefaultDecimals when the
	// venue does not know the token.
	Decimals(ctx context.Context, mint string) (int, error)
}
