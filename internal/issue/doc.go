// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines a catalog of known failure classes with Markdown-formatted
// remediation guidance, plus an error type that carries operation context and
// suggestions for display by the CLI.
package issue
