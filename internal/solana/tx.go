package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Transaction is a wire-format Solana transaction split into signature
// slots and the message bytes that signatures cover.
type Transaction struct {
	Signatures [][]byte // 64 bytes each, zeroed until signed
	Message    []byte
}

// NewTransaction wraps message bytes with numSigs empty signature slots.
func NewTransaction(message []byte, numSigs int) *Transaction {
	sigs := make([][]byte, numSigs)
	for i := range sigs {
		sigs[i] = make([]byte, 64)
	}
	return &Transaction{Signatures: sigs, Message: message}
}

// ParseTransaction splits raw wire bytes into signature slots and message.
// Both legacy and versioned messages are accepted; the message bytes are
// kept opaque except where a field offset is needed.
func ParseTransaction(raw []byte) (*Transaction, error) {
	count, n := decodeShortVec(raw)
	if n == 0 {
		return nil, fmt.Errorf("malformed signature count")
	}

	offset := n
	sigs := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if offset+64 > len(raw) {
			return nil, fmt.Errorf("truncated signature %d", i)
		}
		sig := make([]byte, 64)
		copy(sig, raw[offset:offset+64])
		sigs = append(sigs, sig)
		offset += 64
	}

	if offset >= len(raw) {
		return nil, fmt.Errorf("missing message")
	}

	msg := make([]byte, len(raw)-offset)
	copy(msg, raw[offset:])

	return &Transaction{Signatures: sigs, Message: msg}, nil
}

// Blockhash extracts the recent blockhash from the message and returns it
// base58-encoded.
func (t *Transaction) Blockhash() (string, error) {
	msg := t.Message
	offset := 0

	// Versioned messages carry a one-byte version prefix with the high bit set.
	if len(msg) > 0 && msg[0]&0x80 != 0 {
		offset = 1
	}

	// Header: numRequiredSignatures, numReadonlySigned, numReadonlyUnsigned
	if len(msg) < offset+3 {
		return "", fmt.Errorf("message too short for header")
	}
	offset += 3

	keyCount, n := decodeShortVec(msg[offset:])
	if n == 0 {
		return "", fmt.Errorf("malformed account key count")
	}
	offset += n + keyCount*32

	if offset+32 > len(msg) {
		return "", fmt.Errorf("message too short for blockhash")
	}

	return base58.Encode(msg[offset : offset+32]), nil
}

// SetSignature fills signature slot i. Slot 0 is the fee payer and doubles
// as the transaction signature.
func (t *Transaction) SetSignature(i int, sig []byte) error {
	if i < 0 || i >= len(t.Signatures) {
		return fmt.Errorf("signature slot %d out of range (have %d)", i, len(t.Signatures))
	}
	if len(sig) != 64 {
		return fmt.Errorf("signature must be 64 bytes, got %d", len(sig))
	}
	t.Signatures[i] = sig
	return nil
}

// Serialize re-encodes the transaction to wire format.
func (t *Transaction) Serialize() []byte {
	out := encodeShortVec(len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig...)
	}
	return append(out, t.Message...)
}

// decodeShortVec decodes a compact-u16 length prefix, returning the value
// and the number of bytes consumed (0 on malformed input).
func decodeShortVec(data []byte) (int, int) {
	value := 0
	for i := 0; i < 3 && i < len(data); i++ {
		b := data[i]
		value |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1
		}
	}
	return 0, 0
}

// encodeShortVec encodes a compact-u16 length prefix.
func encodeShortVec(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
