package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeExecutionID computes a deterministic execution_id using SHA256.
// Formula: SHA256(request_id|mint|side|amount_key)
// Returns hex-encoded hash (64 characters).
//
// The same request always maps to the same ID, so re-recording an
// execution after a retried ledger write hits the duplicate-key path
// instead of creating a second row.
func ComputeExecutionID(
	requestID string,
	mint string,
	side string,
	amountKey string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		requestID,
		mint,
		side,
		amountKey,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
