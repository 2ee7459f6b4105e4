package solana

import "context"

// RPCClient defines Solana RPC HTTP operations used by the trade engine.
type RPCClient interface {
	// GetBalance returns the lamport balance of a public key.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountBalance returns the balance held by a token account.
	// Returns nil if the account does not exist.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// IsBlockhashValid reports whether a blockhash is still within its
	// validity window.
	IsBlockhashValid(ctx context.Context, blockhash string) (bool, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, signedTx string, opts *SendOpts) (string, error)

	// GetSignatureStatuses returns the status of each signature, aligned
	// with the input order. Unknown signatures yield nil entries.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}
