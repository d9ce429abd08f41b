package core

import (
	"context"
	"errors"
)

// Error kinds. Match with errors.Is against any error returned by this module.
var (
	// ErrInvalidArgument reports bad construction or context input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrProcessing reports a message that cannot be processed.
	ErrProcessing = errors.New("processing error")
	// ErrBackendUnavailable reports a completion backend that cannot be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendError reports a fault returned by the completion backend.
	ErrBackendError = errors.New("backend error")
	// ErrCancelled reports a call abandoned by its caller.
	ErrCancelled = errors.New("cancelled")
	// ErrTimeout reports a call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// Error carries the failing operation, the kind sentinel and the cause.
type Error struct {
	Op   string // Operation that failed, e.g. "process_message"
	Kind error  // One of the Err* sentinels
	Err  error  // Underlying cause (may be nil)
}

// NewError constructs an *Error.
func NewError(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool { return target == e.Kind }

// KindOf returns the kind sentinel carried by err, or nil when err carries
// none. The outermost *Error wins.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range []error{
		ErrInvalidArgument, ErrProcessing, ErrBackendUnavailable,
		ErrBackendError, ErrCancelled, ErrTimeout,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsRetryable reports whether the failure is transient (unavailable or timeout).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrTimeout)
}

// FromContext maps a context error to ErrCancelled / ErrTimeout. It returns
// nil if err is not a context error.
func FromContext(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(op, ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return NewError(op, ErrCancelled, err)
	default:
		return nil
	}
}
