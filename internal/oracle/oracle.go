// Package oracle reads wallet balances from the chain. Every read goes
// over RPC at call time; trade paths must never act on cached balances.
package oracle

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/solana"
)

// Oracle answers balance questions about one wallet.
type Oracle interface {
	// Lamports returns the owner's SOL balance.
	Lamports(ctx context.Context, owner string) (uint64, error)

	// RawBalance returns raw token units and decimals for the owner's
	// associated token account. A missing account reports zero balance
	// and zero decimals without an error.
	RawBalance(ctx context.Context, owner, mint string) (uint64, int, error)

	// UIBalance returns the decimal-adjusted token balance.
	UIBalance(ctx context.Context, owner, mint string) (float64, error)
}

// RPCOracle implements Oracle over a Solana RPC client.
type RPCOracle struct {
	rpc solana.RPCClient
}

// NewRPCOracle creates an RPC-backed oracle.
func NewRPCOracle(rpc solana.RPCClient) *RPCOracle {
	return &RPCOracle{rpc: rpc}
}

func (o *RPCOracle) Lamports(ctx context.Context, owner string) (uint64, error) {
	lamports, err := o.rpc.GetBalance(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("get balance for %s: %w", owner, err)
	}
	return lamports, nil
}

func (o *RPCOracle) RawBalance(ctx context.Context, owner, mint string) (uint64, int, error) {
	amount, err := o.tokenBalance(ctx, owner, mint)
	if err != nil {
		return 0, 0, err
	}
	if amount == nil {
		return 0, 0, nil
	}
	return amount.Amount, amount.Decimals, nil
}

func (o *RPCOracle) UIBalance(ctx context.Context, owner, mint string) (float64, error) {
	amount, err := o.tokenBalance(ctx, owner, mint)
	if err != nil {
		return 0, err
	}
	if amount == nil {
		return 0, nil
	}
	return amount.UIAmount, nil
}

func (o *RPCOracle) tokenBalance(ctx context.Context, owner, mint string) (*solana.TokenAmount, error) {
	account, err := DeriveAssociatedTokenAccount(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive token account: %w", err)
	}

	amount, err := o.rpc.GetTokenAccountBalance(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("get token balance for %s: %w", account, err)
	}
	return amount, nil
}

var _ Oracle = (*RPCOracle)(nil)
