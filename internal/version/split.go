// SPDX-License-Identifier: MPL-2.0

package version

import "strings"

const (
	// Wildcard matches any single version field.
	Wildcard = "*"
	// Latest matches every candidate, resolving to the newest one.
	Latest = "latest"
)

// Split decomposes a version string into its fields: maximal runs of
// letters, digits, underscores and wildcards. Everything else (dots,
// spaces, dashes, parentheses) delimits.
//
//	Split("1.2.3")                     == ["1", "2", "3"]
//	Split("openjdk 17.0.2 2022-01-18") == ["openjdk", "17", "0", "2", "2022", "01", "18"]
//	Split("17.*")                      == ["17", "*"]
func Split(version string) []string {
	return strings.FieldsFunc(version, func(r rune) bool {
		switch {
		case r >= '0' && r <= '9':
			return false
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			return false
		case r == '_' || r == '*':
			return false
		}
		return true
	})
}

// Match reports whether candidate satisfies placeholder. The placeholder's
// fields pair positionally with the candidate's: a literal field must be
// equal, a Wildcard field matches anything, and candidate fields beyond
// the placeholder's are free. Latest matches every candidate.
func Match(placeholder, candidate string) bool {
	if placeholder == Latest {
		return true
	}
	want := Split(placeholder)
	have := Split(candidate)
	if len(have) < len(want) {
		return false
	}
	for i, w := range want {
		if w != Wildcard && have[i] != w {
			return false
		}
	}
	return true
}

// IsLiteral reports whether placeholder pins an exact version: it names
// nothing to search for (no wildcard field, not Latest), so resolving it
// never needs a fetch.
func IsLiteral(placeholder string) bool {
	return placeholder != Latest && !strings.Contains(placeholder, Wildcard)
}
