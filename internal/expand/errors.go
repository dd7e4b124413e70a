// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTarget means two expanded builds rendered the same stage
	// identifier.
	ErrDuplicateTarget = errors.New("duplicate build target")

	// ErrUnresolvedPin means a build demanded a base or feature version
	// that no locked entry provides.
	ErrUnresolvedPin = errors.New("unresolved version pin")
)

// DuplicateTargetError reports a stage-identifier collision. Targets must
// be unique across every build in the config, since each one names a
// stage of the generated script.
type DuplicateTargetError struct {
	// Target is the colliding stage identifier.
	Target string
	// ImageName is the rendered image name of the build that collided.
	ImageName string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("duplicate target %q rendered for image %q", e.Target, e.ImageName)
}

// Unwrap returns ErrDuplicateTarget for errors.Is checks.
func (e *DuplicateTargetError) Unwrap() error { return ErrDuplicateTarget }

// UnresolvedPinError reports a build selection that no locked base or
// feature satisfies: the demanded version is not among the declared
// placeholders.
type UnresolvedPinError struct {
	// Kind is "base" or "feature".
	Kind string
	// Name is the selected base or feature.
	Name string
	// Version is the demanded version placeholder.
	Version string
}

func (e *UnresolvedPinError) Error() string {
	return fmt.Sprintf("unable to find %s %q with version %q", e.Kind, e.Name, e.Version)
}

// Unwrap returns ErrUnresolvedPin for errors.Is checks.
func (e *UnresolvedPinError) Unwrap() error { return ErrUnresolvedPin }
