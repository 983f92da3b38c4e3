package model

import "fmt"

// Kind classifies an Error.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfiguration  Kind = "configuration"
	KindType           Kind = "type"
	KindIntegrity      Kind = "integrity"
	KindNotImplemented Kind = "not implemented"
	KindLookup         Kind = "lookup"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its Kind.
var (
	ErrValidation     = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConfiguration  = &Error{Kind: KindConfiguration, Message: "invalid configuration"}
	ErrType           = &Error{Kind: KindType, Message: "unexpected type"}
	ErrIntegrity      = &Error{Kind: KindIntegrity, Message: "integrity error"}
	ErrNotImplemented = &Error{Kind: KindNotImplemented, Message: "not implemented"}
	ErrLookup         = &Error{Kind: KindLookup, Message: "lookup failed"}
)

// Error is a model or field error tagged with its Kind
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a validation error.
func Validation(format string, args ...interface{}) error {
	return newError(KindValidation, format, args...)
}

// Configuration returns a configuration error.
func Configuration(format string, args ...interface{}) error {
	return newError(KindConfiguration, format, args...)
}

// TypeMismatch returns a type error.
func TypeMismatch(format string, args ...interface{}) error {
	return newError(KindType, format, args...)
}

// Integrity returns an integrity error.
func Integrity(format string, args ...interface{}) error {
	return newError(KindIntegrity, format, args...)
}

// NotImplemented returns a not-implemented error.
func NotImplemented(format string, args ...interface{}) error {
	return newError(KindNotImplemented, format, args...)
}

// LookupFailed returns a lookup error.
func LookupFailed(format string, args ...interface{}) error {
	return newError(KindLookup, format, args...)
}
