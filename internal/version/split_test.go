// SPDX-License-Identifier: MPL-2.0

package version

import (
	"slices"
	"testing"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		want    []string
	}{
		{"dotted", "1.2.3", []string{"1", "2", "3"}},
		{"single", "41", []string{"41"}},
		{"wildcard_survives", "17.*", []string{"17", "*"}},
		{"bare_wildcard", "*", []string{"*"}},
		{"spaces_and_dashes", "openjdk 17.0.2 2022-01-18", []string{"openjdk", "17", "0", "2", "2022", "01", "18"}},
		{"parens", "javac 21.0.1 (build 21)", []string{"javac", "21", "0", "1", "build", "21"}},
		{"underscore_kept", "8u392_b08", []string{"8u392_b08"}},
		{"suffix_words", "9.0.71.Final", []string{"9", "0", "71", "Final"}},
		{"trailing_delimiter", "1.2.", []string{"1", "2"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Split(tt.version)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		placeholder string
		candidate   string
		want        bool
	}{
		{"exact", "1.2.3", "1.2.3", true},
		{"prefix_free_tail", "17", "17.0.2", true},
		{"wildcard_field", "17.*", "17.0.2", true},
		{"wildcard_needs_field", "17.*", "17", false},
		{"mismatch", "17.*", "21.0.1", false},
		{"latest_matches_all", "latest", "anything-9.4", true},
		{"bare_wildcard", "*", "9.0.71.Final", true},
		{"candidate_too_short", "1.2.3", "1.2", false},
		{"delimiters_ignored", "1-2", "1.2.3", true},
		{"v_prefix_is_literal", "1.*", "v1.10.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Match(tt.placeholder, tt.candidate); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.placeholder, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestIsLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		placeholder string
		want        bool
	}{
		{"pinned", "9.0.71", true},
		{"wildcard", "9.*", false},
		{"bare_wildcard", "*", false},
		{"latest", "latest", false},
		{"word", "bookworm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsLiteral(tt.placeholder); got != tt.want {
				t.Errorf("IsLiteral(%q) = %v, want %v", tt.placeholder, got, tt.want)
			}
		})
	}
}
