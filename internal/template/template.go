// SPDX-License-Identifier: MPL-2.0

// Package template renders placeholder expressions against a tree of
// named values. The expression language is deliberately small: {{name}}
// substitutes a scalar, {{name.field}} and {{name.0}} descend into
// objects and lists (zero-based, case-sensitive, no type coercion), and
// {{#if name}}…{{else}}…{{/if}} selects a branch on whether the named
// value is present and non-empty. Expansion is single-pass: substituted
// text is never re-scanned for further placeholders.
package template

import (
	"strconv"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Render substitutes every placeholder in tmpl using ctx and returns the
// resulting string. Rendering is a pure function of its inputs; a failed
// lookup or unparsable expression returns a *Error and an empty result.
func Render(tmpl string, ctx Context) (string, error) {
	var b strings.Builder
	for len(tmpl) > 0 {
		open := strings.Index(tmpl, openDelim)
		if open < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:open])
		tmpl = tmpl[open:]

		expr, rest, err := readTag(tmpl)
		if err != nil {
			return "", err
		}

		switch {
		case expr == "else" || expr == "/if":
			return "", &Error{Kind: ErrMalformedExpression, Expr: expr, Detail: "no open {{#if}} block"}

		case strings.HasPrefix(expr, "#if"):
			cond := strings.TrimSpace(strings.TrimPrefix(expr, "#if"))
			if cond == "" {
				return "", &Error{Kind: ErrMalformedExpression, Expr: expr, Detail: "missing condition"}
			}
			thenPart, elsePart, after, err := splitIf(rest)
			if err != nil {
				return "", err
			}
			branch := elsePart
			if condTruthy(ctx, cond) {
				branch = thenPart
			} else if err := condWellFormed(cond); err != nil {
				return "", err
			}
			out, err := Render(branch, ctx)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
			tmpl = after

		case strings.HasPrefix(expr, "#"):
			return "", &Error{Kind: ErrMalformedExpression, Expr: expr, Detail: "unsupported block"}

		default:
			val, path, err := resolve(ctx, expr)
			if err != nil {
				return "", err
			}
			s, ok := val.(String)
			if !ok {
				return "", &Error{Kind: ErrUnknownField, Expr: expr, Path: path}
			}
			b.WriteString(string(s))
			tmpl = rest
		}
	}
	return b.String(), nil
}

// readTag consumes one {{…}} tag from the head of s and returns the
// trimmed expression plus the remainder after the closing delimiter.
func readTag(s string) (expr, rest string, err error) {
	end := strings.Index(s, closeDelim)
	if end < 0 {
		return "", "", &Error{Kind: ErrMalformedExpression, Detail: "unterminated {{ expression"}
	}
	expr = strings.TrimSpace(s[len(openDelim):end])
	if expr == "" {
		return "", "", &Error{Kind: ErrMalformedExpression, Detail: "empty expression"}
	}
	if strings.ContainsAny(expr, "{}") {
		return "", "", &Error{Kind: ErrMalformedExpression, Expr: expr, Detail: "nested delimiter"}
	}
	return expr, s[end+len(closeDelim):], nil
}

// splitIf scans s for the {{else}} and {{/if}} tags closing an already
// opened conditional, honoring nested {{#if}} blocks, and returns the
// then-branch, the else-branch (empty when absent), and the remainder
// after {{/if}}.
func splitIf(s string) (thenPart, elsePart, rest string, err error) {
	depth := 1
	elseStart, elseEnd := -1, -1
	i := 0
	for {
		open := strings.Index(s[i:], openDelim)
		if open < 0 {
			return "", "", "", &Error{Kind: ErrMalformedExpression, Detail: "missing {{/if}}"}
		}
		tagStart := i + open
		expr, after, err := readTag(s[tagStart:])
		if err != nil {
			return "", "", "", err
		}
		tagEnd := len(s) - len(after)

		switch {
		case strings.HasPrefix(expr, "#if"):
			depth++
		case expr == "/if":
			depth--
			if depth == 0 {
				if elseStart >= 0 {
					return s[:elseStart], s[elseEnd:tagStart], after, nil
				}
				return s[:tagStart], "", after, nil
			}
		case expr == "else":
			if depth == 1 {
				if elseStart >= 0 {
					return "", "", "", &Error{Kind: ErrMalformedExpression, Expr: expr, Detail: "duplicate {{else}}"}
				}
				elseStart, elseEnd = tagStart, tagEnd
			}
		}
		i = tagEnd
	}
}

// parsePath splits a dotted expression into segments, rejecting
// syntactically invalid paths independently of what the context holds.
func parsePath(expr string) ([]string, error) {
	segs := strings.Split(expr, ".")
	for _, seg := range segs {
		if seg == "" || strings.ContainsAny(seg, " \t") {
			return nil, &Error{Kind: ErrMalformedExpression, Expr: expr, Detail: "bad path segment"}
		}
	}
	return segs, nil
}

// resolve walks a dotted expression through the context tree and returns
// the value it names together with the path actually traversed.
func resolve(ctx Context, expr string) (Value, string, error) {
	segs, err := parsePath(expr)
	if err != nil {
		return nil, "", err
	}
	var cur Value = ctx
	path := ""
	for _, seg := range segs {
		if path == "" {
			path = seg
		} else {
			path += "." + seg
		}

		switch v := cur.(type) {
		case Object:
			next, ok := v[seg]
			if !ok {
				return nil, "", &Error{Kind: ErrUnknownField, Expr: expr, Path: path}
			}
			cur = next
		case List:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 {
				return nil, "", &Error{Kind: ErrUnknownField, Expr: expr, Path: path}
			}
			if idx >= len(v) {
				return nil, "", &Error{Kind: ErrIndexOutOfRange, Expr: expr, Path: path}
			}
			cur = v[idx]
		default:
			// Scalars have no fields to descend into.
			return nil, "", &Error{Kind: ErrUnknownField, Expr: expr, Path: path}
		}
	}
	return cur, path, nil
}

// condTruthy reports whether an {{#if}} condition holds: the named value
// must resolve and be non-empty. Absent values are simply false.
func condTruthy(ctx Context, cond string) bool {
	v, _, err := resolve(ctx, cond)
	if err != nil {
		return false
	}
	return v.truthy()
}

// condWellFormed surfaces parse errors hidden by condTruthy's lenient
// resolution, so that {{#if a..b}} still fails loudly.
func condWellFormed(cond string) error {
	_, err := parsePath(cond)
	return err
}
