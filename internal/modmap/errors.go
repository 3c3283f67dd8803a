package modmap

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure. Every kind maps to a stable code
// that boundary layers (REST, tool adapters) can expose verbatim.
type Kind string

const (
	KindValidation  Kind = "VALIDATION_ERROR"
	KindNotFound    Kind = "NOT_FOUND"
	KindDuplicate   Kind = "DUPLICATE_NAME"
	KindCircular    Kind = "CIRCULAR_REFERENCE"
	KindLocked      Kind = "LOCK_UNAVAILABLE"
	KindParse       Kind = "PARSE_ERROR"
	KindWrite       Kind = "WRITE_ERROR"
	KindInit        Kind = "INITIALIZATION_ERROR"
	KindHasChildren Kind = "HAS_CHILDREN"
)

// Kind sentinels. Match with errors.Is:
//
//	if errors.Is(err, modmap.ErrLocked) { ... }
var (
	ErrValidation  = &Error{kind: KindValidation, msg: "validation failed"}
	ErrNotFound    = &Error{kind: KindNotFound, msg: "not found"}
	ErrDuplicate   = &Error{kind: KindDuplicate, msg: "duplicate hierarchical name"}
	ErrCircular    = &Error{kind: KindCircular, msg: "circular reference"}
	ErrLocked      = &Error{kind: KindLocked, msg: "lock unavailable"}
	ErrParse       = &Error{kind: KindParse, msg: "parse failure"}
	ErrWrite       = &Error{kind: KindWrite, msg: "write failure"}
	ErrInit        = &Error{kind: KindInit, msg: "initialization failure"}
	ErrHasChildren = &Error{kind: KindHasChildren, msg: "module has children"}
)

// Error is the typed result every core operation returns on failure.
// It never crosses the storage boundary as a panic.
type Error struct {
	kind Kind
	msg  string
	err  error
}

// NewError builds a typed error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapError builds a typed error of the given kind wrapping a cause.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// Kind returns the error class.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the stable string code for boundary layers.
func (e *Error) Code() string { return string(e.kind) }

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Is matches any *Error of the same kind, so the sentinels above work
// as errors.Is targets.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.kind == e.kind
	}
	return false
}

// CodeOf returns the stable error code for err, or "INTERNAL_ERROR" when
// err does not carry a core kind.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return "INTERNAL_ERROR"
}
