package core

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for registration-time and lookup failures. Registration
// errors (duplicate keys) are returned synchronously to the caller and never
// enter an event stream.
var (
	// ErrDuplicateID signals a second registration under an existing key.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrSessionNotFound signals a lookup of an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRunNotFound signals a lookup of an unknown run id.
	ErrRunNotFound = errors.New("run not found")
	// ErrNotConfigured signals missing or placeholder provider credentials.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrSessionBusy signals that a session already hosts an in-flight run.
	ErrSessionBusy = errors.New("session already has an active run")
)

// ErrorKind classifies run-time failures for the terminal error event.
type ErrorKind string

const (
	// KindConfiguration covers missing/placeholder credentials detected
	// before any provider call is attempted.
	KindConfiguration ErrorKind = "configuration"
	// KindNetwork covers transport failures reaching the provider.
	KindNetwork ErrorKind = "network"
	// KindAuth covers rejected credentials.
	KindAuth ErrorKind = "auth"
	// KindRateLimit covers provider throttling.
	KindRateLimit ErrorKind = "rate_limit"
	// KindMalformed covers unusable provider responses.
	KindMalformed ErrorKind = "malformed_response"
	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown"
)

// ProviderError wraps a model-backend failure with its classification. The
// wrapped cause is for logging; the sanitized user message comes from
// KindMessage.
type ProviderError struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

// NewProviderError wraps cause with a classification and the operation that
// produced it.
func NewProviderError(kind ErrorKind, op string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Op: op, Cause: cause}
}

func (e *ProviderError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ProviderError) Unwrap() error { return e.Cause }

// IsAbort reports whether err stems from cooperative cancellation. Aborts are
// expected and silent: no error event is emitted, simply no done.
func IsAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Classify maps an arbitrary run-time error onto its ErrorKind.
func Classify(err error) ErrorKind {
	var pe *ProviderError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindConfiguration
	case errors.As(err, &pe):
		return pe.Kind
	default:
		return KindUnknown
	}
}

// KindMessage returns the sanitized, human-readable message for a failure
// kind. Raw provider detail is excluded deliberately; it is the concern of
// the logging collaborator.
func KindMessage(kind ErrorKind) string {
	switch kind {
	case KindConfiguration:
		return "The selected provider is not configured. Add an API token in settings and try again."
	case KindNetwork:
		return "Could not reach the model provider. Check your connection and try again."
	case KindAuth:
		return "The provider rejected the configured credentials."
	case KindRateLimit:
		return "The provider is rate limiting requests. Wait a moment and try again."
	case KindMalformed:
		return "The provider returned an unusable response."
	default:
		return "The run failed unexpectedly."
	}
}
