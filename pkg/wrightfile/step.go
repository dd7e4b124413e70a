// SPDX-License-Identifier: MPL-2.0

package wrightfile

import (
	"fmt"
)

// MethodDirect is the step method naming literal Dockerfile instructions.
// Every other method value names a package-manager step kind.
const MethodDirect = "docker"

// InstallStep is one templated installation layer of a feature
// ([[feature.step]]). Script lines, commands, and dependency paths are
// templates, rendered per resolved version by the lock builder; copy
// entries pass through verbatim.
type InstallStep interface {
	installStep()
}

// PackageManagerStep installs through the base's package manager. Scripts
// carries one script per package-manager identifier; the generator selects
// the entry matching the build's base.
type PackageManagerStep struct {
	// Method names the step kind ("rpm", ...).
	Method string

	// Scripts maps package-manager identifier to ordered script lines.
	Scripts map[string][]string

	// Copy maps build-context sources to image destinations, emitted as
	// COPY lines before the step body.
	Copy map[string]string
}

func (PackageManagerStep) installStep() {}

// DirectStep emits literal Dockerfile instructions verbatim
// (method = "docker").
type DirectStep struct {
	// Commands are Dockerfile instructions emitted as-is.
	Commands []string

	// Dependencies are build-context paths that must exist at
	// script-generation time.
	Dependencies []string

	// Copy maps build-context sources to image destinations, emitted as
	// COPY lines before the step body.
	Copy map[string]string
}

func (DirectStep) installStep() {}

func (r *rawStep) normalize(path, owner string) (InstallStep, error) {
	if r.Method == "" {
		return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: method is required", owner)}
	}

	if r.Method == MethodDirect {
		if len(r.Commands) == 0 {
			return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: direct steps require commands", owner)}
		}
		if len(r.Scripts) > 0 {
			return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: direct steps take commands, not scripts", owner)}
		}
		return DirectStep{
			Commands:     r.Commands,
			Dependencies: r.Dependencies,
			Copy:         r.Copy,
		}, nil
	}

	if len(r.Scripts) == 0 {
		return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: package-manager steps require scripts", owner)}
	}
	if len(r.Commands) > 0 || len(r.Dependencies) > 0 {
		return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: commands and dependencies are only valid for method %q", owner, MethodDirect)}
	}
	return PackageManagerStep{
		Method:  r.Method,
		Scripts: r.Scripts,
		Copy:    r.Copy,
	}, nil
}
