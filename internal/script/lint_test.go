// SPDX-License-Identifier: MPL-2.0

package script

import "testing"

func TestLintRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "single command",
			body: "dnf install -y java-17-amazon-corretto-devel",
		},
		{
			name: "continuation stanza",
			body: "dnf install -y wget && \\\ndnf clean all",
		},
		{
			name: "pipeline with subshell",
			body: "curl -fsSL https://example.com/install.sh | (cd /opt && sh)",
		},
		{
			name:    "unterminated quote",
			body:    `echo "unterminated`,
			wantErr: true,
		},
		{
			name:    "dangling operator",
			body:    "dnf install -y wget &&",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := lintRun(tt.body)
			if (err != nil) != tt.wantErr {
				t.Errorf("lintRun(%q) error = %v, wantErr %v", tt.body, err, tt.wantErr)
			}
		})
	}
}
