// SPDX-License-Identifier: MPL-2.0

package script

import (
	"errors"
	"fmt"
)

var (
	// ErrNoScript means a package-manager step carries no script for the
	// package manager of the base it is being installed on.
	ErrNoScript = errors.New("no installation script for package manager")

	// ErrMissingDependency means a step names a build-context path that
	// does not exist.
	ErrMissingDependency = errors.New("missing build context dependency")
)

// NoScriptError reports a package-manager step that cannot serve the base
// it is being installed on.
type NoScriptError struct {
	// Feature and Version identify the locked feature.
	Feature string
	Version string
	// PackageManager is the base's package-manager identifier.
	PackageManager string
}

func (e *NoScriptError) Error() string {
	return fmt.Sprintf("feature %s-%s: no installation instructions for %q", e.Feature, e.Version, e.PackageManager)
}

// Unwrap returns ErrNoScript for errors.Is checks.
func (e *NoScriptError) Unwrap() error { return ErrNoScript }

// MissingDependencyError reports a dependency path the build context does
// not contain.
type MissingDependencyError struct {
	// Feature and Version identify the locked feature.
	Feature string
	Version string
	// Path is the dependency path relative to the build-context root.
	Path string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("feature %s-%s: dependency %q is missing from the build context", e.Feature, e.Version, e.Path)
}

// Unwrap returns ErrMissingDependency for errors.Is checks.
func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }
