package engine

import (
	"errors"

	"solana-trade-engine/internal/domain"
)

// Result is the envelope every engine operation answers with. A
// successful call carries its value; a failed trade carries the
// taxonomy kind plus a message; a malformed request carries only the
// message, since request-shape mistakes are not trade failures.
type Result struct {
	OK        bool   `json:"ok"`
	Value     any    `json:"value,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PreloadValue is the success payload of Preload.
type PreloadValue struct {
	CachedCount int `json:"cachedCount"`
}

// ExecuteValue is the success payload of Execute.
type ExecuteValue struct {
	Signature string `json:"signature"`
}

func success(value any) Result {
	return Result{OK: true, Value: value}
}

func failure(err error) Result {
	res := Result{Message: err.Error()}

	var te *domain.TradeError
	if errors.As(err, &te) {
		res.ErrorKind = string(te.Kind)
		// Rebuild the message without the kind prefix Error() adds;
		// the envelope already names the kind in its own field.
		msg := te.Message
		if te.Err != nil {
			if msg != "" {
				msg += ": "
			}
			msg += te.Err.Error()
		}
		if msg != "" {
			res.Message = msg
		}
	}
	return res
}
