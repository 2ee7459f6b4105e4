// Package wallet holds the trading keypair and signs artifacts with it.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
)

// Keypair is the ed25519 keypair of the trading wallet.
type Keypair struct {
	// PublicKey is the base58 wallet address.
	PublicKey string

	priv ed25519.PrivateKey
}

// NewKeypair wraps a raw 64-byte ed25519 private key.
func NewKeypair(priv ed25519.PrivateKey) (*Keypair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key is %d bytes, want %d", len(priv), ed25519.PrivateKeySize)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{
		PublicKey: base58.Encode(pub),
		priv:      priv,
	}, nil
}

// LoadKeypair reads a keypair file. Both formats in common use are
// accepted: the JSON byte array solana-keygen writes, and a bare base58
// secret key string.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	kp, err := ParseKeypair(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse keypair file %s: %w", path, err)
	}
	return kp, nil
}

// ParseKeypair decodes a keypair from its serialized form.
func ParseKeypair(encoded string) (*Keypair, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty keypair")
	}

	var raw []byte
	if strings.HasPrefix(encoded, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(encoded), &ints); err != nil {
			return nil, fmt.Errorf("decode byte array: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte %d out of range at index %d", v, i)
			}
			raw[i] = byte(v)
		}
	} else {
		var err error
		raw, err = base58.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode base58: %w", err)
		}
	}

	return NewKeypair(ed25519.PrivateKey(raw))
}

// Sign signs message bytes with the wallet key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
