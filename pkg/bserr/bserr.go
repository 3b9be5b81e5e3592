// Package bserr defines the numeric error vocabulary and logging callback
// used at the public boundary of the bsdiff/bspatch engine.
//
// Internally the engine prefers idiomatic Go errors (io.EOF,
// io.ErrUnexpectedEOF, wrapped errors); this package exists so that the
// handful of callers who need a stable numeric contract (CLI exit codes,
// FFI-style embedders) can recover it with CodeOf.
package bserr

import (
	"errors"
	"fmt"
	"io"
)

// Code is the numeric result of an engine operation.
type Code int

const (
	Success Code = iota
	Generic
	InvalidArg
	OutOfMemory
	FileError
	EndOfFile
	CorruptPatch
	SizeTooLarge
)

func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Generic:
		return "ERROR"
	case InvalidArg:
		return "INVALID_ARG"
	case OutOfMemory:
		return "OUT_OF_MEMORY"
	case FileError:
		return "FILE_ERROR"
	case EndOfFile:
		return "END_OF_FILE"
	case CorruptPatch:
		return "CORRUPT_PATCH"
	case SizeTooLarge:
		return "SIZE_TOO_LARGE"
	default:
		return "UNKNOWN"
	}
}

// Error is a Code paired with a message and, optionally, an underlying cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Msg, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error with no underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf creates an *Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error carrying an underlying cause.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Wrapf creates an *Error carrying an underlying cause with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf recovers the Code for any error produced by this module, including
// the stdlib sentinels this module reuses internally (io.EOF,
// io.ErrUnexpectedEOF) and nil (Success).
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	switch {
	case errors.Is(err, io.EOF):
		return EndOfFile
	case errors.Is(err, io.ErrUnexpectedEOF):
		return FileError
	default:
		return Generic
	}
}

// Ctx carries an optional log callback plus an opaque value handed back to
// it. The callback is invoked once per failure with a short prefixed
// diagnostic.
type Ctx struct {
	Opaque   interface{}
	LogError func(opaque interface{}, msg string)
}

// Logf builds an *Error for code, invokes LogError if present, and returns
// the error. Callers "return ctx.Logf(code, format, args...)" at the
// failure site and rely on defers for teardown.
func (c *Ctx) Logf(code Code, format string, args ...interface{}) *Error {
	e := Newf(code, format, args...)
	if c != nil && c.LogError != nil {
		c.LogError(c.Opaque, fmt.Sprintf("ERROR(%d): %s", code, e.Msg))
	}
	return e
}

// LogErr is like Logf but wraps an existing error as the cause.
func (c *Ctx) LogErr(code Code, err error, format string, args ...interface{}) *Error {
	e := Wrapf(err, code, format, args...)
	if c != nil && c.LogError != nil {
		c.LogError(c.Opaque, fmt.Sprintf("ERROR(%d): %s: %s", code, e.Msg, err.Error()))
	}
	return e
}
