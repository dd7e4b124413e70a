// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound means no candidate version satisfied the placeholder.
	ErrNotFound = errors.New("no matching version")
	// ErrAmbiguousOutput means an exec fetch produced no usable version line.
	ErrAmbiguousOutput = errors.New("ambiguous version output")
	// ErrNetworkFailure means the fetch transport failed; worth retrying.
	ErrNetworkFailure = errors.New("version fetch failed")
	// ErrRateLimited means the source host throttled us; worth retrying
	// after the reported reset.
	ErrRateLimited = errors.New("rate limited by source host")
)

// Error attributes a version-fetch failure to the base or feature that
// requested it, so a failure deep in a large matrix stays traceable.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Name is the base or feature whose placeholder was being resolved.
	Name string
	// Placeholder is the version expression that failed.
	Placeholder string
	// Detail optionally narrows the failure.
	Detail string
	// ResetAt is the rate-limit reset time, when the host reported one.
	ResetAt time.Time
	// Err is the underlying cause, carried for the message only.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolving version %q for %q: %v", e.Placeholder, e.Name, e.Kind)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the Err* sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// Retryable reports whether err is a transient fetch failure: a network
// failure or a rate limit. NotFound and AmbiguousOutput are final.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetworkFailure) || errors.Is(err, ErrRateLimited)
}
