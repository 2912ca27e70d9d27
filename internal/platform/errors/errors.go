// Package errors is the project error type: a message, a machine readable
// code and optional field and op labels around a wrapped cause.
//
// Import it as perr.
package errors

import (
	stderrs "errors"
	"fmt"
)

// ErrorCode classifies an error for exit codes, retries and summaries
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	// ErrorCodePanic is a recovered panic
	ErrorCodePanic
	// ErrorCodeUnavailable is a backend that is down, timed out or cancelled
	ErrorCodeUnavailable
	// ErrorCodeInvalidArgument is a bad flag, target or option
	ErrorCodeInvalidArgument
	// ErrorCodeValidation is a field value that cannot be normalized
	ErrorCodeValidation
	// ErrorCodeJSON is a stored document that does not decode
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	// ErrorCodeDB is any other database failure
	ErrorCodeDB
)

var codeNames = [...]string{
	ErrorCodeUnknown:         "unknown",
	ErrorCodePanic:           "panic",
	ErrorCodeUnavailable:     "unavailable",
	ErrorCodeInvalidArgument: "invalid_argument",
	ErrorCodeValidation:      "validation",
	ErrorCodeJSON:            "json",
	ErrorCodeNotFound:        "not_found",
	ErrorCodeDuplicateKey:    "duplicate_key",
	ErrorCodeDB:              "db",
}

func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// Usage reports whether c blames the caller's input rather than the environment
func Usage(c ErrorCode) bool {
	return c == ErrorCodeInvalidArgument || c == ErrorCodeValidation || c == ErrorCodeJSON
}

// Error carries msg for people and code for programs; field and op are optional labels
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.orig == nil:
		return e.msg
	default:
		return e.msg + ": " + e.orig.Error()
	}
}

func (e *Error) Unwrap() error   { return e.orig }
func (e *Error) Code() ErrorCode { return e.code }
func (e *Error) Field() string   { return e.field }
func (e *Error) Op() string      { return e.op }

// Root follows Unwrap to the innermost cause
func Root(err error) error {
	for {
		next := stderrs.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// As finds the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf returns the code of the first *Error in err's chain, Unknown otherwise
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// with copies the *Error found in err, or returns err when there is none
func with(err error, set func(*Error)) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	set(&c)
	return &c
}

// WithField labels err with the offending field
func WithField(err error, field string) error {
	return with(err, func(e *Error) { e.field = field })
}

// WithOp labels err with the operation that failed
func WithOp(err error, op string) error {
	return with(err, func(e *Error) { e.op = op })
}

// WithFieldChain is WithField that also adopts foreign errors as Unknown
func WithFieldChain(err error, field string) error {
	if _, ok := As(err); !ok {
		err = &Error{code: ErrorCodeUnknown, msg: err.Error(), orig: err}
	}
	return WithField(err, field)
}

func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap keeps orig as the cause
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return Wrap(orig, code, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...any) error    { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error  { return Newf(ErrorCodeInvalidArgument, format, a...) }
func PanicErrf(format string, a ...any) error    { return Newf(ErrorCodePanic, format, a...) }
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
