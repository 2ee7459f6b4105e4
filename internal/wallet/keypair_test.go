package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
)

func generateKeypair(t *testing.T) (*Keypair, ed25519.PrivateKey) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	kp, err := NewKeypair(priv)
	if err != nil {
		t.Fatalf("NewKeypair: %v", err)
	}
	return kp, priv
}

func TestNewKeypair(t *testing.T) {
	kp, priv := generateKeypair(t)

	pub := priv.Public().(ed25519.PublicKey)
	if kp.PublicKey != base58.Encode(pub) {
		t.Errorf("public key mismatch: %s", kp.PublicKey)
	}

	if _, err := NewKeypair(make([]byte, 32)); err == nil {
		t.Error("expected error for 32-byte key")
	}
}

func TestParseKeypair_Base58(t *testing.T) {
	_, priv := generateKeypair(t)

	kp, err := ParseKeypair(base58.Encode(priv))
	if err != nil {
		t.Fatalf("ParseKeypair: %v", err)
	}

	pub := priv.Public().(ed25519.PublicKey)
	if kp.PublicKey != base58.Encode(pub) {
		t.Errorf("public key mismatch: %s", kp.PublicKey)
	}
}

func TestParseKeypair_ByteArray(t *testing.T) {
	_, priv := generateKeypair(t)

	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	encoded, err := json.Marshal(ints)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	kp, err := ParseKeypair(string(encoded))
	if err != nil {
		t.Fatalf("ParseKeypair: %v", err)
	}

	pub := priv.Public().(ed25519.PublicKey)
	if kp.PublicKey != base58.Encode(pub) {
		t.Errorf("public key mismatch: %s", kp.PublicKey)
	}
}

func TestParseKeypair_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"bad base58", "0OIl"},
		{"short base58", base58.Encode(make([]byte, 10))},
		{"bad json", "[1, 2,"},
		{"out of range byte", "[300]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseKeypair(tc.encoded); err == nil {
				t.Errorf("expected error for %q", tc.encoded)
			}
		})
	}
}

func TestLoadKeypair(t *testing.T) {
	_, priv := generateKeypair(t)

	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	encoded, _ := json.Marshal(ints)

	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, append(encoded, '\n'), 0o600); err != nil {
		t.Fatalf("write keypair file: %v", err)
	}

	kp, err := LoadKeypair(path)
	if err != nil {
		t.Fatalf("LoadKeypair: %v", err)
	}

	pub := priv.Public().(ed25519.PublicKey)
	if kp.PublicKey != base58.Encode(pub) {
		t.Errorf("public key mismatch: %s", kp.PublicKey)
	}

	if _, err := LoadKeypair(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestKeypair_Sign(t *testing.T) {
	kp, priv := generateKeypair(t)

	message := []byte("sign me")
	sig := kp.Sign(message)

	pub := priv.Public().(ed25519.PublicKey)
	if !ed25519.Verify(pub, message, sig) {
		t.Error("signature does not verify")
	}
}
