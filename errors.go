// SPDX-FileCopyrightText: 2023 The twister Authors
//
// SPDX-License-Identifier: MIT

package twister // import "github.com/criccomini/twister"

import (
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the codecs and inferrers report.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	UnknownFieldNumber
	UnknownEnumIndex
	UnknownEnumValue
	UnknownEnumSymbol
	NoMatchingUnionBranch
	FixedSizeMismatch
	EmptyArrayInference
	UnsupportedValueType
	ValueOutOfRange
	TruncatedInput
	UnsupportedWireType
	UnsupportedLogicalType
	MissingField
	TypeMismatch
	MalformedInput
	DepthLimitExceeded
)

var kindNames = [...]string{
	KindUnknown:            "unknown error",
	UnknownFieldNumber:     "unknown field number",
	UnknownEnumIndex:       "unknown enum index",
	UnknownEnumValue:       "unknown enum value",
	UnknownEnumSymbol:      "unknown enum symbol",
	NoMatchingUnionBranch:  "no matching union branch",
	FixedSizeMismatch:      "fixed size mismatch",
	EmptyArrayInference:    "cannot infer schema from empty array",
	UnsupportedValueType:   "unsupported value type",
	ValueOutOfRange:        "value out of range",
	TruncatedInput:         "truncated input",
	UnsupportedWireType:    "unsupported wire type",
	UnsupportedLogicalType: "unsupported logical type",
	MissingField:           "missing field",
	TypeMismatch:           "type mismatch",
	MalformedInput:         "malformed input",
	DepthLimitExceeded:     "nesting depth limit exceeded",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is the typed failure returned by every encode, decode and infer
// operation. Only Kind is always set.
type Error struct {
	Kind ErrorKind

	// Field names the record field, union or schema node involved.
	Field string
	// Number is the Format-B field number or the offending index.
	Number int64

	Expected string
	Observed string

	Err error
}

// Sentinels for errors.Is. Any *Error matches the sentinel of its kind.
var (
	ErrUnknownFieldNumber     = &Error{Kind: UnknownFieldNumber}
	ErrUnknownEnumIndex       = &Error{Kind: UnknownEnumIndex}
	ErrUnknownEnumValue       = &Error{Kind: UnknownEnumValue}
	ErrUnknownEnumSymbol      = &Error{Kind: UnknownEnumSymbol}
	ErrNoMatchingUnionBranch  = &Error{Kind: NoMatchingUnionBranch}
	ErrFixedSizeMismatch      = &Error{Kind: FixedSizeMismatch}
	ErrEmptyArrayInference    = &Error{Kind: EmptyArrayInference}
	ErrUnsupportedValueType   = &Error{Kind: UnsupportedValueType}
	ErrValueOutOfRange        = &Error{Kind: ValueOutOfRange}
	ErrTruncatedInput         = &Error{Kind: TruncatedInput}
	ErrUnsupportedWireType    = &Error{Kind: UnsupportedWireType}
	ErrUnsupportedLogicalType = &Error{Kind: UnsupportedLogicalType}
	ErrMissingField           = &Error{Kind: MissingField}
	ErrTypeMismatch           = &Error{Kind: TypeMismatch}
	ErrMalformedInput         = &Error{Kind: MalformedInput}
	ErrDepthLimitExceeded     = &Error{Kind: DepthLimitExceeded}
)

// NewError returns an *Error of the given kind.
func NewError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

// WithField sets the field name and returns e.
func (e *Error) WithField(name string) *Error {
	e.Field = name
	return e
}

// WithNumber sets the field number or index and returns e.
func (e *Error) WithNumber(n int64) *Error {
	e.Number = n
	return e
}

// WithKinds records what was expected and what was found and returns e.
func (e *Error) WithKinds(expected, observed string) *Error {
	e.Expected = expected
	e.Observed = observed
	return e
}

// WithCause attaches the underlying error and returns e.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("twister: ")
	sb.WriteString(e.Kind.String())
	if e.Field != "" {
		fmt.Fprintf(&sb, " (field %q)", e.Field)
	}
	if e.Number != 0 {
		fmt.Fprintf(&sb, " (number %d)", e.Number)
	}
	if e.Expected != "" || e.Observed != "" {
		fmt.Fprintf(&sb, ": expected %s, got %s", e.Expected, e.Observed)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
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

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	for err != nil {
		if te, ok := err.(*Error); ok {
			return te.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return KindUnknown
		}
		err = u.Unwrap()
	}
	return KindUnknown
}
