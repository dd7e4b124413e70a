// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"path/filepath"
	"strings"
)

// TargetsPath derives the target-list path from a lock path: the
// extension is replaced by ".txt" (imagewright.lock → imagewright.txt).
func TargetsPath(lockPath string) string {
	return strings.TrimSuffix(lockPath, filepath.Ext(lockPath)) + ".txt"
}

// Targets returns every build target in lock order.
func (l *Lock) Targets() []string {
	targets := make([]string, len(l.Builds))
	for i, b := range l.Builds {
		targets[i] = b.Target
	}
	return targets
}

// TargetList renders the targets one per line for CI consumption.
func (l *Lock) TargetList() string {
	targets := l.Targets()
	if len(targets) == 0 {
		return ""
	}
	return strings.Join(targets, "\n") + "\n"
}
