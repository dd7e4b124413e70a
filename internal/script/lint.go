// SPDX-License-Identifier: MPL-2.0

package script

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// lintRun checks that a RUN stanza body parses as shell. The result is
// advisory only: authors may lean on engine-specific shell the parser
// does not know, so a failure never blocks generation.
func lintRun(body string) error {
	_, err := syntax.NewParser().Parse(strings.NewReader(body), "RUN")
	return err
}
