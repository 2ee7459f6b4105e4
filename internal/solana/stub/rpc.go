package stub

import (
	"context"
	"sync"

	"solana-trade-engine/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Lamports      map[string]uint64              // pubkey -> lamport balance
	TokenBalances map[string]*solana.TokenAmount // token account -> balance
	Blockhashes   map[string]bool                // blockhash -> validity
	Statuses      map[string]*solana.SignatureStatus
	Slot          int64

	// SendSignature is returned by SendTransaction when SendErr is nil.
	SendSignature string
	// SendErr fails SendTransaction when set.
	SendErr error
	// Sent records every transaction payload passed to SendTransaction.
	Sent []string

	// Errs fails the named method when set, e.g. Errs["getBalance"].
	Errs map[string]error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Lamports:      make(map[string]uint64),
		TokenBalances: make(map[string]*solana.TokenAmount),
		Blockhashes:   make(map[string]bool),
		Statuses:      make(map[string]*solana.SignatureStatus),
		Errs:          make(map[string]error),
	}
}

// GetBalance returns the configured lamport balance for a pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getBalance"]; err != nil {
		return 0, err
	}
	return c.Lamports[pubkey], nil
}

// GetTokenAccountBalance returns the configured balance for a token account.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (*solana.TokenAmount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getTokenAccountBalance"]; err != nil {
		return nil, err
	}
	amount, ok := c.TokenBalances[account]
	if !ok {
		return nil, nil
	}
	copy := *amount
	return &copy, nil
}

// IsBlockhashValid returns the configured validity for a blockhash.
// Unknown blockhashes are reported invalid.
func (c *RPCClient) IsBlockhashValid(_ context.Context, blockhash string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["isBlockhashValid"]; err != nil {
		return false, err
	}
	return c.Blockhashes[blockhash], nil
}

// SendTransaction records the payload and returns the configured signature.
func (c *RPCClient) SendTransaction(_ context.Context, signedTx string, _ *solana.SendOpts) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, signedTx)
	return c.SendSignature, nil
}

// GetSignatureStatuses returns configured statuses aligned with the input.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getSignatureStatuses"]; err != nil {
		return nil, err
	}
	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		if st, ok := c.Statuses[sig]; ok {
			copy := *st
			statuses[i] = &copy
		}
	}
	return statuses, nil
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Errs["getSlot"]; err != nil {
		return 0, err
	}
	return c.Slot, nil
}

// SetStatus configures the status returned for a signature.
func (c *RPCClient) SetStatus(signature string, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[signature] = status
}

// SetErr configures or clears the failure for a named method.
func (c *RPCClient) SetErr(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.Errs, method)
		return
	}
	c.Errs[method] = err
}

// SentCount returns how many transactions were submitted.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

var _ solana.RPCClient = (*RPCClient)(nil)
