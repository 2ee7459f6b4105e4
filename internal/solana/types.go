package solana

// TokenAmount is a token balance read from the chain.
type TokenAmount struct {
	Amount   uint64 // raw amount in smallest units
	Decimals int
	UIAmount float64
}

// SendOpts defines optional parameters for sendTransaction.
type SendOpts struct {
	SkipPreflight       bool
	PreflightCommitment string // processed | confirmed | finalized
	MaxRetries          *uint  // node-side resubmission budget
}

// SignatureStatus is the confirmation state of one submitted transaction.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64     // nil once the transaction is rooted
	Err                interface{} // non-nil when execution failed on chain
	ConfirmationStatus string      // processed | confirmed | finalized
}

// Confirmed reports whether the transaction reached at least the
// confirmed commitment level.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// Failed reports whether the chain recorded an execution error.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}
