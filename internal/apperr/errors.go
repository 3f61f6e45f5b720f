// Package apperr defines the error kinds surfaced by the order, payment and coupon
// operations. Each kind is stable and machine-readable; the message is safe to show.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidTransition  Kind = "invalid_transition"
	KindUnauthorized       Kind = "unauthorized"
	KindUnconfigured       Kind = "unconfigured"
	KindVerificationFailed Kind = "verification_failed"
	KindUpstreamTimeout    Kind = "upstream_timeout"
	KindUpstreamError      Kind = "upstream_error"
	KindInvalid            Kind = "invalid_request"
	KindInternal           Kind = "internal"
)

// Error carries a Kind, a user-visible message and an optional cause.
// The cause is for logs only and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retriable reports whether the caller may retry the same request.
func (e *Error) Retriable() bool {
	return e.Kind == KindUpstreamTimeout
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func InvalidTransition(format string, args ...any) *Error {
	return newf(KindInvalidTransition, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

func Unconfigured(format string, args ...any) *Error {
	return newf(KindUnconfigured, format, args...)
}

func VerificationFailed(format string, args ...any) *Error {
	return newf(KindVerificationFailed, format, args...)
}

func Invalid(format string, args ...any) *Error { return newf(KindInvalid, format, args...) }

// UpstreamTimeout wraps a gateway call that ran out of time.
func UpstreamTimeout(err error, format string, args ...any) *Error {
	e := newf(KindUpstreamTimeout, format, args...)
	e.Err = err
	return e
}

// UpstreamError wraps any other gateway failure.
func UpstreamError(err error, format string, args ...any) *Error {
	e := newf(KindUpstreamError, format, args...)
	e.Err = err
	return e
}

// Internal wraps a persistence or programming failure.
func Internal(err error, format string, args ...any) *Error {
	e := newf(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf extracts the kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
