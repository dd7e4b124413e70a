// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/imagewright/imagewright/internal/container"
	"github.com/imagewright/imagewright/internal/expand"
	"github.com/imagewright/imagewright/internal/issue"
	"github.com/imagewright/imagewright/internal/script"
	"github.com/imagewright/imagewright/internal/template"
	"github.com/imagewright/imagewright/internal/version"
	"github.com/imagewright/imagewright/pkg/lockfile"
	"github.com/imagewright/imagewright/pkg/wrightfile"
)

// issueFor maps a pipeline failure onto the catalog card that explains it.
// Failures with no card return zero. Plain file-not-found errors also
// return zero: only the command handler knows whether the missing file was
// the config or the lock, so each layers its own mapping on top.
func issueFor(err error) issue.Id {
	var unavailable *container.UnavailableError
	switch {
	case errors.Is(err, wrightfile.ErrInvalidConfig):
		return issue.ConfigInvalidId
	case errors.Is(err, lockfile.ErrInvalidLock):
		return issue.LockInvalidId
	case errors.Is(err, template.ErrUnknownField),
		errors.Is(err, template.ErrIndexOutOfRange),
		errors.Is(err, template.ErrMalformedExpression):
		return issue.TemplateErrorId
	case errors.Is(err, version.ErrNotFound):
		return issue.VersionNotFoundId
	case errors.Is(err, version.ErrAmbiguousOutput):
		return issue.AmbiguousVersionId
	case errors.Is(err, version.ErrRateLimited):
		return issue.RateLimitedId
	case errors.Is(err, version.ErrNetworkFailure):
		return issue.NetworkFailureId
	case errors.As(err, &unavailable):
		return issue.EngineUnavailableId
	case errors.Is(err, expand.ErrDuplicateTarget):
		return issue.DuplicateTargetId
	case errors.Is(err, expand.ErrUnresolvedPin):
		return issue.UnresolvedPinId
	case errors.Is(err, script.ErrNoScript):
		return issue.NoScriptId
	case errors.Is(err, script.ErrMissingDependency):
		return issue.MissingDependencyId
	default:
		return 0
	}
}

// renderIssueCard prints the catalog card for id, if any. The id zero
// means "no card" and prints nothing.
func renderIssueCard(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}

	catalogEntry := issue.Get(id)
	if catalogEntry == nil {
		return
	}

	rendered, renderErr := catalogEntry.Render("dark")
	if renderErr != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		return
	}
	fmt.Fprint(w, rendered)
}

// classifyLockExitCode maps a failure of a lock-consuming command (write,
// images) to the process exit code. A missing or invalid lock is a usage
// error, fixed by running 'imagewright update'; everything downstream is a
// generation failure.
func classifyLockExitCode(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, lockfile.ErrInvalidLock):
		return 2
	default:
		return 1
	}
}
