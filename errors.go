package tzcall

import (
	"errors"
	"fmt"
)

// Sentinel errors for encoding failures. Every *EncodingError wraps exactly
// one of these, so callers can branch with errors.Is.
var (
	// ErrTypeMismatch indicates the value's runtime shape is incompatible with the type.
	ErrTypeMismatch = errors.New("tzcall: type mismatch")

	// ErrShapeMismatch indicates a sequence was expected but not found.
	ErrShapeMismatch = errors.New("tzcall: sequence expected")

	// ErrPairLengthMismatch indicates a pair value has fewer elements than the type.
	ErrPairLengthMismatch = errors.New("tzcall: pair value shorter than pair type")

	// ErrMapEntryMissingField indicates a map entry lacks its key or value field.
	ErrMapEntryMissingField = errors.New("tzcall: map entry requires key and value fields")

	// ErrOrMissingField indicates a variant value lacks its kind or value field.
	ErrOrMissingField = errors.New("tzcall: or value requires kind and value fields")

	// ErrUnknownVariant indicates a variant kind other than left or right.
	ErrUnknownVariant = errors.New("tzcall: unknown or variant")

	// ErrUnknownPrimitive indicates a type primitive the encoder does not handle.
	ErrUnknownPrimitive = errors.New("tzcall: unknown primitive")
)

// Sentinel errors for descriptors, text and receipts.
var (
	// ErrInvalidArity indicates a compound type was built with too few children.
	ErrInvalidArity = errors.New("tzcall: invalid type arity")

	// ErrSyntax indicates malformed Micheline text.
	ErrSyntax = errors.New("tzcall: micheline syntax error")

	// ErrMissingSection indicates a required section is absent from client output.
	ErrMissingSection = errors.New("tzcall: missing section")

	// ErrEmptyBatch indicates a batch without any call was rendered.
	ErrEmptyBatch = errors.New("tzcall: batch has no operations")

	// ErrBatchTooLarge indicates the batch exceeds its operation limit.
	ErrBatchTooLarge = errors.New("tzcall: batch operation limit exceeded")
)

// EncodingError indicates a failure while encoding a value against a type.
// Type holds the offending descriptor in Michelson syntax.
type EncodingError struct {
	Type  string
	Value Value
	Err   error
	// Detail is an optional human readable refinement of Err.
	Detail string
}

func (e *EncodingError) Error() string {
	val := "<nil>"
	if e.Value != nil {
		if b, err := e.Value.MarshalJSON(); err == nil {
			val = string(b)
		}
	}
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s (type %s, value %s)", e.Err, e.Detail, e.Type, val)
	}
	return fmt.Sprintf("%v (type %s, value %s)", e.Err, e.Type, val)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// newEncodingError builds an EncodingError for the given descriptor.
func newEncodingError(t *Type, v Value, err error, detail string) *EncodingError {
	ts := "<nil>"
	if t != nil {
		ts = t.String()
	}
	return &EncodingError{Type: ts, Value: v, Err: err, Detail: detail}
}

// ArityError indicates a compound type was constructed with too few arguments.
type ArityError struct {
	Prim     TypePrim
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("tzcall: %s expects at least %d type arguments, got %d", e.Prim, e.Expected, e.Got)
}

func (e *ArityError) Unwrap() error {
	return ErrInvalidArity
}

// SyntaxError reports malformed Micheline text at a byte offset.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tzcall: micheline syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// ParseError indicates that client output lacked a required section.
type ParseError struct {
	Section string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tzcall: missing section %q", e.Section)
}

func (e *ParseError) Unwrap() error {
	return ErrMissingSection
}

// EntrypointNotFoundError indicates the contract has no such entrypoint.
type EntrypointNotFoundError struct {
	Contract   string
	Entrypoint string
}

func (e *EntrypointNotFoundError) Error() string {
	return fmt.Sprintf("tzcall: entrypoint %q not found in contract %s", e.Entrypoint, e.Contract)
}

// CallError wraps an argument encoding failure for a contract call.
type CallError struct {
	Entrypoint string
	Err        error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tzcall: argument for entrypoint %q: %v", e.Entrypoint, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
