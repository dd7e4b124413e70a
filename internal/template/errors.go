// SPDX-License-Identifier: MPL-2.0

package template

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField indicates a path segment that does not resolve to a
	// context value, including field access on a scalar.
	ErrUnknownField = errors.New("unknown field")

	// ErrIndexOutOfRange indicates a numeric path segment outside the
	// bounds of the list it indexes.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrMalformedExpression indicates template text that cannot be parsed
	// as a placeholder expression or conditional block.
	ErrMalformedExpression = errors.New("malformed expression")
)

// Error describes a failed template rendering. Kind is one of the
// package sentinels; Path points at the context node the failure refers
// to (for example "corretto.versions.2") and is empty when no path was
// resolved.
type Error struct {
	Kind   error
	Expr   string
	Path   string
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("template: %s at %q in {{%s}}", e.Kind, e.Path, e.Expr)
	case e.Expr != "":
		return fmt.Sprintf("template: %s in {{%s}}: %s", e.Kind, e.Expr, e.Detail)
	default:
		return fmt.Sprintf("template: %s: %s", e.Kind, e.Detail)
	}
}

// Unwrap returns the sentinel classifying this error so callers can use
// errors.Is against ErrUnknownField, ErrIndexOutOfRange, or
// ErrMalformedExpression.
func (e *Error) Unwrap() error {
	return e.Kind
}
