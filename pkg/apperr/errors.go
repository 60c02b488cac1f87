// Package apperr converts raw failures into classified application errors and
// the presentation-ready Details consumed by boundaries and notifications.
//
// Raw exceptions never reach presentation code directly: everything passes
// through CreateAppError first, then FormatError.
package apperr

import (
	"github.com/Goden-Gun/resilience-lib/pkg/codes"
)

// Details is the normalized description of a failure, independent of its origin.
type Details struct {
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  codes.Severity `json:"severity"`
	Code      string         `json:"code,omitempty"`
	Retryable bool           `json:"retryable"`
}

// Error is a classified failure. It is immutable once constructed.
type Error struct {
	code      codes.ErrorCode
	message   string
	retryable bool
	status    int
	err       error
}

// Sentinels for errors.Is checks. Matching is by code symbol.
var (
	ErrNetwork      = New(codes.Network, "")
	ErrTimeout      = New(codes.Timeout, "")
	ErrCancelled    = New(codes.Cancelled, "")
	ErrNotFound     = New(codes.NotFound, "")
	ErrUnauthorized = New(codes.Unauthorized, "")
	ErrForbidden    = New(codes.Forbidden, "")
	ErrBadRequest   = New(codes.BadRequest, "")
	ErrServer       = New(codes.Server, "")
	ErrValidation   = New(codes.Validation, "")
	ErrAuth         = New(codes.Auth, "")
	ErrUnknown      = New(codes.Unknown, "")
)

// New builds an error using the code's default retry policy.
func New(code codes.ErrorCode, msg string) *Error {
	return &Error{code: code, message: msg, retryable: code.Retryable}
}

// Wrap builds an error around a cause.
func Wrap(code codes.ErrorCode, msg string, err error) *Error {
	return &Error{code: code, message: msg, retryable: code.Retryable, err: err}
}

// Validation reports rejected user input.
func Validation(msg string) *Error {
	return New(codes.Validation, msg)
}

// Auth reports an invalid session or credential.
func Auth(msg string, err error) *Error {
	return Wrap(codes.Auth, msg, err)
}

func newStatusError(code codes.ErrorCode, msg string, status int, err error) *Error {
	return &Error{code: code, message: msg, retryable: code.Retryable, status: status, err: err}
}

// WithRetryable returns a copy with the retry policy overridden.
func (e *Error) WithRetryable(retryable bool) *Error {
	cp := *e
	cp.retryable = retryable
	return &cp
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message()
}

// Message returns the human-readable description, falling back to the
// code's default text.
func (e *Error) Message() string {
	if e.message != "" {
		return e.message
	}
	return e.code.Message
}

func (e *Error) Code() codes.ErrorCode { return e.code }
func (e *Error) Symbol() string        { return e.code.Symbol }
func (e *Error) Retryable() bool       { return e.retryable }

// Status is the transport status that produced the error, 0 when unknown.
func (e *Error) Status() int { return e.status }

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Is matches any *Error carrying the same code symbol.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.code.Symbol == e.code.Symbol
}

// Details renders the presentation form of e.
func (e *Error) Details() Details {
	return Details{
		Title:     e.code.Title,
		Message:   e.Message(),
		Severity:  e.code.Severity,
		Code:      e.code.Symbol,
		Retryable: e.retryable,
	}
}
