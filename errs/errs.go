// Package errs defines the failure taxonomy of a spender run.
//
// Every stage reports failures as *Error values carrying a Kind, so callers
// can tell an unreadable input apart from a malformed table or a column that
// cannot be imputed, and map each to its own exit code.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is never produced by this module; it marks foreign errors.
	KindUnknown Kind = iota
	// KindIO covers a missing or unreadable input and an unwritable output.
	KindIO
	// KindFormat covers input that is not a well-formed delimited table.
	KindFormat
	// KindSchema covers a required column that is absent or holds values of
	// the wrong type.
	KindSchema
	// KindDataQuality covers data from which an imputation value cannot be
	// derived, e.g. a mode over a column with no values.
	KindDataQuality
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IOError"
	case KindFormat:
		return "FormatError"
	case KindSchema:
		return "SchemaError"
	case KindDataQuality:
		return "DataQualityError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Sentinels for errors.Is matching.
var (
	ErrIO          = &Error{Kind: KindIO}
	ErrFormat      = &Error{Kind: KindFormat}
	ErrSchema      = &Error{Kind: KindSchema}
	ErrDataQuality = &Error{Kind: KindDataQuality}
)

// Error is a classified failure.
type Error struct {
	Kind   Kind
	Op     string // stage or operation, e.g. "load", "clean"
	Column string // offending column, if any
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Column == "" && t.Err == nil && t.Kind == e.Kind
}

// IO returns a KindIO error for op.
func IO(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// Format returns a KindFormat error for op.
func Format(op string, err error) error {
	return &Error{Kind: KindFormat, Op: op, Err: err}
}

// Schema returns a KindSchema error for op and column.
func Schema(op, column string, err error) error {
	return &Error{Kind: KindSchema, Op: op, Column: column, Err: err}
}

// DataQuality returns a KindDataQuality error for op and column.
func DataQuality(op, column string, err error) error {
	return &Error{Kind: KindDataQuality, Op: op, Column: column, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindIO:
		return 2
	case KindFormat:
		return 3
	case KindSchema:
		return 4
	case KindDataQuality:
		return 5
	default:
		return 1
	}
}
