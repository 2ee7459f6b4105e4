package idhash

import (
	"testing"
)

func TestComputeExecutionID(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
		mint      string
		side      string
		amountKey string
		wantLen   int // hash length should be 64
	}{
		{
			name:      "buy execution",
			requestID: "3f1c9a2e-6d2b-4c8f-9e71-8a5b0c4d2e11",
			mint:      "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			side:      "BUY",
			amountKey: "0.5",
			wantLen:   64,
		},
		{
			name:      "sell execution",
			requestID: "b7e4d8f0-11aa-4e09-8d3c-0f2a6b7c8d9e",
			mint:      "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
			side:      "SELL",
			amountKey: "100",
			wantLen:   64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeExecutionID(tt.requestID, tt.mint, tt.side, tt.amountKey)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeExecutionID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeExecutionID(tt.requestID, tt.mint, tt.side, tt.amountKey)
			if got != got2 {
				t.Errorf("ComputeExecutionID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeExecutionID_DifferentInputs(t *testing.T) {
	base := ComputeExecutionID("request", "mint", "BUY", "1.0")

	// Different request should produce different hash
	diffRequest := ComputeExecutionID("other_request", "mint", "BUY", "1.0")
	if base == diffRequest {
		t.Error("Different request should produce different hash")
	}

	// Different mint should produce different hash
	diffMint := ComputeExecutionID("request", "other_mint", "BUY", "1.0")
	if base == diffMint {
		t.Error("Different mint should produce different hash")
	}

	// Different side should produce different hash
	diffSide := ComputeExecutionID("request", "mint", "SELL", "1.0")
	if base == diffSide {
		t.Error("Different side should produce different hash")
	}

	// Different amount key should produce different hash
	diffAmount := ComputeExecutionID("request", "mint", "BUY", "2.0")
	if base == diffAmount {
		t.Error("Different amount key should produce different hash")
	}
}
