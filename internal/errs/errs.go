// Package errs defines the error taxonomy shared by the dispatch engine.
// Every component failure is classified by a Kind so the transport layer
// can map it to a response status without inspecting messages.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Validation means malformed or missing input, detected before any
	// mutation.
	Validation Kind = iota
	// NotFound means no such Request/Assignment/Responder/DispatchRecord.
	NotFound
	// Conflict means the requested state transition is disallowed from
	// the entity's current state.
	Conflict
	// NoResponderAvailable means matching found no candidate.
	NoResponderAvailable
	// ResourceExhausted means the reassignment bound was reached and the
	// request is terminally unassignable.
	ResourceExhausted
	// DependencyMissing means a required collaborator record (e.g. the
	// responder's vehicle) could not be resolved.
	DependencyMissing
	// StoreFailure means a transaction or store round trip failed; the
	// enclosing transaction was rolled back with no partial effect.
	StoreFailure
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case NoResponderAvailable:
		return "no_responder_available"
	case ResourceExhausted:
		return "resource_exhausted"
	case DependencyMissing:
		return "dependency_missing"
	case StoreFailure:
		return "store_failure"
	}
	return "unknown"
}

// Error carries a kind, a caller-safe message, and an optional wrapped
// cause. The cause is for logs only and must never reach a response body.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying failure without losing its cause.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, defaulting to StoreFailure for
// unclassified failures so internals are never leaked as-is.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StoreFailure
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Message returns the caller-safe message for err. Unclassified errors get
// a generic message; their details belong in logs.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
