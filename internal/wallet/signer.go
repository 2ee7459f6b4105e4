package wallet

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/solana"
)

// Signer turns unsigned artifacts into submittable transactions.
type Signer interface {
	Sign(ctx context.Context, artifact *domain.UnsignedArtifact) (*domain.SignedArtifact, error)
}

// KeypairSigner signs artifacts with the local keypair. Before signing it
// verifies the embedded blockhash is still within its validity window; a
// stale artifact fails with KindArtifactExpired so the caller can rebuild.
type KeypairSigner struct {
	keypair *Keypair
	rpc     solana.RPCClient
}

// NewKeypairSigner creates a signer for the given keypair.
func NewKeypairSigner(keypair *Keypair, rpc solana.RPCClient) *KeypairSigner {
	return &KeypairSigner{keypair: keypair, rpc: rpc}
}

func (s *KeypairSigner) Sign(ctx context.Context, artifact *domain.UnsignedArtifact) (*domain.SignedArtifact, error) {
	valid, err := s.rpc.IsBlockhashValid(ctx, artifact.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("check blockhash: %w", err)
	}
	if !valid {
		return nil, domain.Errf(domain.KindArtifactExpired,
			"blockhash expired for %s %s", artifact.Side, artifact.Mint)
	}

	raw, err := base64.StdEncoding.DecodeString(artifact.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	tx, err := solana.ParseTransaction(raw)
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	// The fee payer signature in slot 0 doubles as the transaction signature.
	sig := s.keypair.Sign(tx.Message)
	if err := tx.SetSignature(0, sig); err != nil {
		return nil, fmt.Errorf("set signature: %w", err)
	}

	return &domain.SignedArtifact{
		Mint:      artifact.Mint,
		Side:      artifact.Side,
		AmountKey: artifact.AmountKey,
		Payload:   base64.StdEncoding.EncodeToString(tx.Serialize()),
		Signature: base58.Encode(sig),
	}, nil
}

var _ Signer = (*KeypairSigner)(nil)
