// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"testing"
	"time"

	"github.com/imagewright/imagewright/internal/template"
	"github.com/imagewright/imagewright/internal/version"
)

func TestNameContext(t *testing.T) {
	t.Parallel()

	base := selection{
		name: "fedora",
		res:  version.Result{Version: "41", Fields: []string{"41"}},
	}
	corretto := selection{
		name: "corretto",
		res:  version.Result{Version: "17.0.9", Fields: []string{"17", "0", "9"}},
	}
	now := time.Date(2025, 8, 1, 23, 59, 0, 0, time.UTC)

	ctx := nameContext(base, []selection{corretto}, now)

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "feature under its name", tmpl: "{{corretto.version}}", want: "17.0.9"},
		{name: "feature fields", tmpl: "jdk{{corretto.versions.0}}", want: "jdk17"},
		{name: "base under its name", tmpl: "{{fedora.version}}", want: "41"},
		{name: "base object", tmpl: "{{base.name}}:{{base.v.version}}", want: "fedora:41"},
		{name: "base fields", tmpl: "{{base.v.versions.0}}", want: "41"},
		{name: "date", tmpl: "{{date}}", want: "25-08-01"},
		{name: "selected feature is truthy", tmpl: "{{#if corretto}}c{{else}}t{{/if}}", want: "c"},
		{name: "unselected feature is falsy", tmpl: "{{#if temurin}}t{{else}}c{{/if}}", want: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := template.Render(tt.tmpl, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
