// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/imagewright/imagewright/internal/config"
	"github.com/imagewright/imagewright/internal/issue"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback for source builds", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "dev"
		Commit = "unknown"
		BuildDate = "unknown"

		got := getVersionString()
		want := "dev (built from source)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

// TestLogLevel mutates the package-level verbose flag and tool config,
// so it cannot run in parallel.
func TestLogLevel(t *testing.T) {
	origVerbose, origCfg := verbose, toolCfg
	t.Cleanup(func() {
		verbose, toolCfg = origVerbose, origCfg
	})

	tests := []struct {
		name    string
		verbose bool
		level   config.LogLevel
		want    log.Level
	}{
		{name: "default info", level: config.LogLevelInfo, want: log.InfoLevel},
		{name: "configured debug", level: config.LogLevelDebug, want: log.DebugLevel},
		{name: "configured warn", level: config.LogLevelWarn, want: log.WarnLevel},
		{name: "configured error", level: config.LogLevelError, want: log.ErrorLevel},
		{name: "verbose flag wins", verbose: true, level: config.LogLevelError, want: log.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbose = tt.verbose
			toolCfg = config.DefaultConfig()
			toolCfg.Log.Level = tt.level

			if got := logLevel(); got != tt.want {
				t.Errorf("logLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()

		got := formatErrorForDisplay(errors.New("boom"), false)
		if got != "boom" {
			t.Errorf("formatErrorForDisplay() = %q, want %q", got, "boom")
		}
	})

	t.Run("actionable error includes suggestions", func(t *testing.T) {
		t.Parallel()

		ae := &issue.ActionableError{
			Operation:   "load tool config",
			Cause:       errors.New("permission denied"),
			Suggestions: []string{"Check file permissions"},
		}

		got := formatErrorForDisplay(fmt.Errorf("startup: %w", ae), false)
		for _, token := range []string{"failed to load tool config", "Check file permissions"} {
			if !strings.Contains(got, token) {
				t.Errorf("formatted error missing %q:\n%s", token, got)
			}
		}
	})

	t.Run("verbose mode includes the chain", func(t *testing.T) {
		t.Parallel()

		ae := &issue.ActionableError{
			Operation: "load tool config",
			Cause:     fmt.Errorf("reading config: %w", errors.New("permission denied")),
		}

		got := formatErrorForDisplay(ae, true)
		if !strings.Contains(got, "Error chain:") {
			t.Errorf("verbose format missing chain:\n%s", got)
		}
	})
}

func TestExitError(t *testing.T) {
	t.Parallel()

	t.Run("message from wrapped error", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("resolution failed")
		err := &ExitError{Code: 1, Err: cause}
		if err.Error() != "resolution failed" {
			t.Errorf("Error() = %q", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is should reach the wrapped error")
		}
	})

	t.Run("message without wrapped error", func(t *testing.T) {
		t.Parallel()

		err := &ExitError{Code: 2}
		if err.Error() != "exit status 2" {
			t.Errorf("Error() = %q", err.Error())
		}
		if err.Unwrap() != nil {
			t.Errorf("Unwrap() = %v, want nil", err.Unwrap())
		}
	})
}
