package submit

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/solana"
)

// DirectSubmitter sends single transactions straight to an RPC node.
// Preflight is skipped: the artifacts were built seconds ago against a
// live quote and a failed simulation would only add a round trip ahead
// of the real answer from the chain.
type DirectSubmitter struct {
	rpc solana.RPCClient
}

// NewDirectSubmitter creates a DirectSubmitter over the RPC client.
func NewDirectSubmitter(rpc solana.RPCClient) *DirectSubmitter {
	return &DirectSubmitter{rpc: rpc}
}

// Send submits the signed payload and returns its signature.
func (d *DirectSubmitter) Send(ctx context.Context, artifact *domain.SignedArtifact) (string, error) {
	sig, err := d.rpc.SendTransaction(ctx, artifact.Payload, &solana.SendOpts{SkipPreflight: true})
	if err != nil {
		return "", fmt.Errorf("send %s %s transaction: %w", artifact.Side, artifact.Mint, err)
	}
	return sig, nil
}

var _ DirectChannel = (*DirectSubmitter)(nil)
