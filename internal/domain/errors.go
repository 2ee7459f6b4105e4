package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a trade failure for the caller-facing envelope.
type ErrorKind string

const (
	// KindNotReady means a required collaborator is unconfigured.
	KindNotReady ErrorKind = "NOT_READY"
	// KindNoBalance means a sell was requested with zero token balance.
	KindNoBalance ErrorKind = "NO_BALANCE"
	// KindAmountTooSmall means a sell percentage floors to zero raw units.
	KindAmountTooSmall ErrorKind = "AMOUNT_TOO_SMALL"
	// KindArtifactExpired means signing or submission rejected a stale artifact.
	KindArtifactExpired ErrorKind = "ARTIFACT_EXPIRED"
	// KindRateLimited means the priority channel pushed back. Recovered
	// internally by direct-channel fallback, never surfaced to callers.
	KindRateLimited ErrorKind = "RATE_LIMITED"
	// KindSubmissionFailed means a hard venue or network submission error.
	KindSubmissionFailed ErrorKind = "SUBMISSION_FAILED"
	// KindConfirmationTimeout means the confirmation window elapsed with no
	// terminal state. Ambiguous: the transaction may still land.
	KindConfirmationTimeout ErrorKind = "CONFIRMATION_TIMEOUT"
	// KindExecutionReverted means the chain reported an execution error.
	KindExecutionReverted ErrorKind = "EXECUTION_REVERTED"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// TradeError attaches an ErrorKind to an underlying cause so callers can
// classify failures with errors.As while the full chain stays inspectable
// with errors.Is.
type TradeError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TradeError) Error() string {
	s := string(e.Kind)
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *TradeError) Unwrap() error {
	return e.Err
}

// Errf builds a TradeError with a formatted message and no cause.
func Errf(kind ErrorKind, format string, args ...any) *TradeError {
	return &TradeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr builds a TradeError around an underlying cause.
func WrapErr(kind ErrorKind, err error, message string) *TradeError {
	return &TradeError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the ErrorKind carried by err, walking the wrap chain.
// The boolean is false when err carries no classification.
func KindOf(err error) (ErrorKind, bool) {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
