// Package apperr defines the error kinds shared by the recurrence engine,
// the function executor and the confirmation flow. Transport adapters map
// kinds to their own status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error independent of where it was raised.
type Kind string

const (
	KindNotFound                  Kind = "not_found"
	KindInvalidArguments          Kind = "invalid_arguments"
	KindValidationFailed          Kind = "validation_failed"
	KindExpired                   Kind = "expired"
	KindIterationBudgetExhausted  Kind = "iteration_budget_exhausted"
	KindExternalCapabilityFailure Kind = "external_capability_failure"
	KindUnknownFunction           Kind = "unknown_function"
	KindInternal                  Kind = "internal"
)

// Sentinels for errors.Is. Any *Error with the same kind matches.
var (
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrInvalidArguments          = &Error{Kind: KindInvalidArguments}
	ErrValidationFailed          = &Error{Kind: KindValidationFailed}
	ErrExpired                   = &Error{Kind: KindExpired}
	ErrIterationBudgetExhausted  = &Error{Kind: KindIterationBudgetExhausted}
	ErrExternalCapabilityFailure = &Error{Kind: KindExternalCapabilityFailure}
	ErrUnknownFunction           = &Error{Kind: KindUnknownFunction}
)

// Error carries a kind, the operation that failed and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, format, args...)
}

func InvalidArguments(op, format string, args ...any) *Error {
	return New(KindInvalidArguments, op, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserMessage returns text that is safe to show to an end user.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNotFound, KindExpired:
		var e *Error
		if errors.As(err, &e) && e.Op == OpConfirm {
			return "This request is no longer available, please try again."
		}
		return err.Error()
	case KindInternal:
		return "Something went wrong, please try again."
	default:
		return err.Error()
	}
}

// OpConfirm is the operation name used by the confirmation handler.
const OpConfirm = "confirm action"
