// Package fault classifies failures of external model-capability calls so
// that callers can branch on the kind of failure instead of matching error
// strings.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the failure class of an external call.
type Kind string

const (
	// Timeout covers deadline and cancellation failures.
	Timeout Kind = "timeout"
	// Transport covers network, HTTP-status and provider-side failures.
	Transport Kind = "transport"
	// EmptyResult marks a call that succeeded but produced nothing usable.
	EmptyResult Kind = "empty_result"
	// Malformed marks a response that could not be decoded.
	Malformed Kind = "malformed"
)

// Error wraps an underlying error with its classification and the operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error for op.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err for op, promoting context deadline/cancellation to
// Timeout. A nil err returns nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: Timeout, Op: op, Err: err}
	}
	return &Error{Kind: Transport, Op: op, Err: err}
}

// KindOf reports the classification of err, defaulting to Transport for
// unclassified errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Transport
}
