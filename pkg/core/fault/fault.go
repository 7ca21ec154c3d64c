package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch on failure class
// without matching message strings.
type Kind string

const (
	// InvalidInput marks malformed caller input (bad dates, bad codes).
	InvalidInput Kind = "invalid_input"
	// UpstreamUnavailable marks a DART API failure (HTTP error or a
	// non-success status code in the response envelope).
	UpstreamUnavailable Kind = "upstream_unavailable"
	// UpstreamEmpty marks a DART "013" response: the call succeeded but
	// matched zero rows. Callers treat this as an empty result set.
	UpstreamEmpty Kind = "upstream_empty"
	// LLMUnavailable marks a failed or unconfigured LLM call.
	LLMUnavailable Kind = "llm_unavailable"
	// LLMMalformed marks an LLM response that could not be parsed even
	// after repair.
	LLMMalformed Kind = "llm_malformed"
	// Cancelled marks context cancellation or deadline expiry.
	Cancelled Kind = "cancelled"
	// Internal marks everything else.
	Internal Kind = "internal"
)

// Error carries a Kind alongside the usual message and cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error with additional context.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the classification of err. Context cancellation is
// recognized even when it was never wrapped.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
