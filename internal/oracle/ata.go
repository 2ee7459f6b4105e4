package oracle

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// SPL program IDs involved in associated token account derivation.
const (
	tokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	associatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// DeriveAssociatedTokenAccount derives the canonical token account address
// for an owner and mint. Seeds: [owner, token_program, mint].
func DeriveAssociatedTokenAccount(owner, mint string) (string, error) {
	ownerBytes, err := decodePubkey(owner)
	if err != nil {
		return "", fmt.Errorf("owner: %w", err)
	}
	mintBytes, err := decodePubkey(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgBytes, err := decodePubkey(tokenProgramID)
	if err != nil {
		return "", err
	}
	ataProgBytes, err := decodePubkey(associatedTokenProgramID)
	if err != nil {
		return "", err
	}

	seeds := [][]byte{ownerBytes, tokenProgBytes, mintBytes}

	pda := derivePDA(seeds, ataProgBytes)
	if pda == "" {
		return "", fmt.Errorf("no valid bump seed for %s/%s", owner, mint)
	}
	return pda, nil
}

func decodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", s, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("pubkey %q is %d bytes, want 32", s, len(b))
	}
	return b, nil
}

// derivePDA derives a Program Derived Address using the Solana algorithm:
// sha256 over seeds, bump, program ID and the PDA marker, taking the first
// bump that lands off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
