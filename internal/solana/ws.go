package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount subscribes to state changes of a single account.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountUpdate, error)

	// UnsubscribeAccount tears down the subscription for a pubkey. Best
	// effort: the server-side unsubscribe is fire-and-forget.
	UnsubscribeAccount(ctx context.Context, pubkey string) error

	// Close closes the WebSocket connection.
	Close() error
}

// AccountUpdate represents an account subscription message.
type AccountUpdate struct {
	Pubkey   string
	Slot     int64
	Lamports uint64
	Owner    string
	Data     string // base64 account data
}
