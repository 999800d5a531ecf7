package engine

import (
	"errors"
	"fmt"

	"github.com/pbriand/verifai/internal/model"
)

// Kind classifies an engine failure. FAILED checkpoints carry the kind and
// the last completed state; raw provider errors stay in the wrapped chain
// for logs only.
type Kind string

const (
	KindValidation  Kind = "ValidationError"
	KindSearch      Kind = "SearchFailure"
	KindAnalysis    Kind = "AnalysisFailure"
	KindRateLimit   Kind = "RateLimitExceeded"
	KindPersistence Kind = "PersistenceFailure"
	KindConflict    Kind = "ConflictError"
	KindCancelled   Kind = "Cancelled"
)

// Error is the engine's typed error. It wraps the underlying cause and
// records the last state that completed before the failure.
type Error struct {
	Kind      Kind
	LastState model.State
	Err       error
}

func (e *Error) Error() string {
	if e.LastState != "" {
		return fmt.Sprintf("%s after %s: %v", e.Kind, e.LastState, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an engine Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind Kind, lastState model.State, err error) *Error {
	return &Error{Kind: kind, LastState: lastState, Err: err}
}
