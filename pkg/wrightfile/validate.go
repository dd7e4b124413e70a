// SPDX-License-Identifier: MPL-2.0

package wrightfile

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel all config-shape violations wrap.
var ErrInvalidConfig = errors.New("invalid wrightfile")

// ValidateError reports a structural violation in a parsed config:
// duplicate base names, overlapping feature partitions, unknown build
// references, missing required fields.
type ValidateError struct {
	// File is the config path, when known.
	File string

	// Detail names the offending element and the violated rule.
	Detail string
}

// Error implements the error interface.
func (e *ValidateError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("invalid wrightfile: %s", e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Detail)
}

// Unwrap returns ErrInvalidConfig for errors.Is checks.
func (e *ValidateError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks the model invariants that the schema cannot express:
// base-name uniqueness, feature partition disjointness, and build
// references resolving to declared bases and features.
func (w *Wrightfile) Validate() error {
	baseNames := make(map[string]struct{}, len(w.Bases))
	for _, b := range w.Bases {
		if _, dup := baseNames[b.Name]; dup {
			return w.invalid(fmt.Sprintf("duplicate base name %q", b.Name))
		}
		baseNames[b.Name] = struct{}{}

		if b.VersionTag == "" {
			return w.invalid(fmt.Sprintf("base %q: version-tag is required", b.Name))
		}
		if len(b.Versions) == 0 {
			return w.invalid(fmt.Sprintf("base %q: versions must not be empty", b.Name))
		}
	}

	// Entries sharing a feature name must claim disjoint placeholders.
	claimed := make(map[string]map[string]struct{})
	for _, f := range w.Features {
		if len(f.Versions) == 0 {
			return w.invalid(fmt.Sprintf("feature %q: versions must not be empty", f.Name))
		}
		versions := claimed[f.Name]
		if versions == nil {
			versions = make(map[string]struct{}, len(f.Versions))
			claimed[f.Name] = versions
		}
		for _, v := range f.Versions {
			if _, dup := versions[v]; dup {
				return w.invalid(fmt.Sprintf("feature %q: version %q claimed by multiple entries", f.Name, v))
			}
			versions[v] = struct{}{}
		}
	}

	for i, b := range w.Builds {
		if err := w.validateBuild(i, b, baseNames, claimed); err != nil {
			return err
		}
	}

	return nil
}

func (w *Wrightfile) validateBuild(index int, spec BuildSpec, bases map[string]struct{}, features map[string]map[string]struct{}) error {
	switch b := spec.(type) {
	case CartesianBuild:
		for _, sel := range b.Bases {
			if _, ok := bases[sel.Name]; !ok {
				return w.invalid(fmt.Sprintf("build #%d (%s): unknown base %q", index+1, b.ImageName, sel.Name))
			}
		}
		for _, group := range b.Features {
			for _, sel := range group {
				if _, ok := features[sel.Name]; !ok {
					return w.invalid(fmt.Sprintf("build #%d (%s): unknown feature %q", index+1, b.ImageName, sel.Name))
				}
			}
		}
	case PinnedBuild:
		if _, ok := bases[b.Base.Name]; !ok {
			return w.invalid(fmt.Sprintf("build #%d (%s): unknown base %q", index+1, b.ImageName, b.Base.Name))
		}
		for _, pin := range b.Features {
			if _, ok := features[pin.Name]; !ok {
				return w.invalid(fmt.Sprintf("build #%d (%s): unknown feature %q", index+1, b.ImageName, pin.Name))
			}
		}
	default:
		return w.invalid(fmt.Sprintf("build #%d: unknown build form %T", index+1, spec))
	}
	return nil
}

func (w *Wrightfile) invalid(detail string) error {
	return &ValidateError{File: w.FilePath, Detail: detail}
}
