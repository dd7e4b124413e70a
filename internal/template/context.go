// SPDX-License-Identifier: MPL-2.0

package template

// Value is a single node in a template context tree. The tree is built
// from three node kinds: String (scalar), List (indexed), and Object
// (named fields). Lookups never coerce between kinds.
type Value interface {
	// truthy reports whether a {{#if}} condition treats the value as set.
	truthy() bool
}

// String is a scalar context value.
type String string

// List is an indexed context value; elements are addressed with
// zero-based numeric path segments ("versions.0").
type List []Value

// Object is a context value with named fields.
type Object map[string]Value

// Context is the root of a context tree, keyed by top-level names.
type Context = Object

func (s String) truthy() bool { return s != "" }
func (l List) truthy() bool   { return len(l) > 0 }
func (o Object) truthy() bool { return len(o) > 0 }

// Strings builds a List of scalar values. It is a convenience for the
// common "versions" field holding decomposed version parts.
func Strings(ss []string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return l
}
