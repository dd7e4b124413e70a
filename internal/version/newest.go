// SPDX-License-Identifier: MPL-2.0

package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Newest returns the candidate matching placeholder that orders highest
// under Compare, and whether any candidate matched at all.
func Newest(placeholder string, candidates []string) (string, bool) {
	best, found := "", false
	for _, c := range candidates {
		if !Match(placeholder, c) {
			continue
		}
		if !found || Compare(c, best) > 0 {
			best, found = c, true
		}
	}
	return best, found
}

// Compare orders two version names. When both parse as semantic versions
// (after an optional leading "v") semver ordering decides, with lexical
// order breaking ties; a semver-valid name outranks an invalid one; two
// invalid names order lexically.
func Compare(a, b string) int {
	ca, aok := canonical(a)
	cb, bok := canonical(b)
	switch {
	case aok && bok:
		if c := semver.Compare(ca, cb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aok:
		return 1
	case bok:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func canonical(name string) (string, bool) {
	v := name
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}
