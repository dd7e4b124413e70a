// SPDX-License-Identifier: MPL-2.0

// Package container runs short-lived containers to completion and reads
// their output. It is the exec collaborator behind version resolution and
// the digest source for lock pinning.
package container

import (
	"context"
	"fmt"
)

// Engine defines the container-runtime surface resolution needs.
type Engine interface {
	// Name returns the engine name.
	Name() string
	// Available reports whether the engine daemon is reachable.
	Available(ctx context.Context) error
	// RunOutput pulls image, runs argv in a fresh container to
	// completion, and returns the combined output. The container is
	// removed afterwards.
	RunOutput(ctx context.Context, image string, argv []string) (string, error)
	// ImageDigest returns the content-addressed digest the registry
	// reports for image.
	ImageDigest(ctx context.Context, image string) (string, error)
}

// UnavailableError is returned when a container engine cannot be reached.
type UnavailableError struct {
	Engine string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("container engine %q is not available: %v", e.Engine, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
