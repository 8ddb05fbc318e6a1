package domain

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so callers can map them to exit codes or
// structured responses without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound means the corpus file is missing.
	KindNotFound
	// KindEmpty means the corpus parsed but holds no usable chunks.
	KindEmpty
	// KindMalformed means a provider response or cache artifact violated an
	// invariant (length mismatch, corrupted JSON). Never retried.
	KindMalformed
	// KindTransient means an HTTP or connection failure that may succeed on
	// retry.
	KindTransient
	// KindFatal means the retry budget is exhausted; partial progress has
	// been checkpointed.
	KindFatal
	// KindCredentialMissing means no synthesis provider credential could be
	// resolved. No HTTP call was attempted.
	KindCredentialMissing
	// KindUnknownProvider means the user named a provider the engine does
	// not know.
	KindUnknownProvider
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindEmpty:
		return "empty"
	case KindMalformed:
		return "malformed"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindCredentialMissing:
		return "credential_missing"
	case KindUnknownProvider:
		return "unknown_provider"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the failing operation and cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errf is E with fmt.Errorf formatting.
func Errf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, or KindUnknown if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
