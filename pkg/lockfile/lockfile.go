// SPDX-License-Identifier: MPL-2.0

// Package lockfile defines the fully resolved lock model and its TOML
// codec. The lock mirrors the config shape with every template rendered
// and every version concrete; it is regenerated whole on each update pass
// and consumed read-only by the script generator.
package lockfile

import (
	"fmt"
)

// DefaultName is the lock filename written next to the config.
const DefaultName = "imagewright.lock"

// Lock is the resolved build plan.
type Lock struct {
	// Registry is carried verbatim from the config for release tooling.
	Registry string `toml:"registry"`

	// Bases are the locked base images, sorted by name-version.
	Bases []Base `toml:"base,omitempty"`

	// Features are the locked features, sorted by name-version.
	Features []Feature `toml:"feature,omitempty"`

	// Builds are the expanded builds in declaration × expansion order.
	Builds []Build `toml:"build,omitempty"`
}

// Base is one locked base image.
type Base struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`

	// Image is the repository part of the rendered image reference; the
	// identifier contributes the ":tag" or "@digest" suffix.
	Image string `toml:"image"`

	// Tag is the rendered version-tag naming the base's stage.
	Tag string `toml:"tag"`

	PackageManager string `toml:"package-manager"`

	Identifier Identifier `toml:"identifier"`
}

// Feature is one locked feature.
type Feature struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`

	// Tag is the rendered version-tag segment; empty contributes no
	// segment to target identifiers.
	Tag string `toml:"tag,omitempty"`

	Steps []Step `toml:"step"`
}

// Step is one resolved installation step. The method discriminates the
// shape: "docker" steps carry commands and dependencies, every other
// method carries per-package-manager scripts.
type Step struct {
	Method       string   `toml:"method"`
	Commands     []string `toml:"commands,omitempty"`
	Dependencies []string `toml:"dependencies,omitempty"`

	Copy    map[string]string   `toml:"copy,omitempty"`
	Scripts map[string][]string `toml:"scripts,omitempty"`
}

// Build is one expanded build.
type Build struct {
	// Target uniquely names the build's stage.
	Target string `toml:"target"`

	ImageName string `toml:"image_name"`
	ImageTag  string `toml:"image_tag"`

	// Base references the locked base by (name, resolved version).
	Base Ref `toml:"base"`

	// Features are the selected locked features in config declaration
	// order.
	Features []Ref `toml:"features,omitempty"`
}

// Ref points at a locked base or feature by name and resolved version.
type Ref struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// String renders the reference as "name-version".
func (r Ref) String() string {
	return r.Name + "-" + r.Version
}

// IdentifierType discriminates how a base image is pinned.
type IdentifierType string

const (
	// IdentifierTag pins by mutable tag (used when no digest is known).
	IdentifierTag IdentifierType = "Tag"
	// IdentifierDigest pins by content digest.
	IdentifierDigest IdentifierType = "Digest"
)

// Identifier pins a base image within its repository.
type Identifier struct {
	Type   IdentifierType `toml:"type"`
	Tag    string         `toml:"tag,omitempty"`
	Digest string         `toml:"digest,omitempty"`
}

// TagIdentifier pins by mutable tag.
func TagIdentifier(tag string) Identifier {
	return Identifier{Type: IdentifierTag, Tag: tag}
}

// DigestIdentifier pins by content digest.
func DigestIdentifier(digest string) Identifier {
	return Identifier{Type: IdentifierDigest, Digest: digest}
}

// Suffix renders the reference suffix appended to the image repository:
// ":tag" or "@digest".
func (i Identifier) Suffix() string {
	if i.Type == IdentifierDigest {
		return "@" + i.Digest
	}
	return ":" + i.Tag
}

func (i Identifier) validate() error {
	switch i.Type {
	case IdentifierTag:
		if i.Tag == "" {
			return fmt.Errorf("tag identifier carries no tag")
		}
	case IdentifierDigest:
		if i.Digest == "" {
			return fmt.Errorf("digest identifier carries no digest")
		}
	default:
		return fmt.Errorf("unknown identifier type %q", i.Type)
	}
	return nil
}

// Base finds a locked base by name and resolved version. Returns nil if
// the lock has no such base.
func (l *Lock) Base(ref Ref) *Base {
	for i := range l.Bases {
		if l.Bases[i].Name == ref.Name && l.Bases[i].Version == ref.Version {
			return &l.Bases[i]
		}
	}
	return nil
}

// Feature finds a locked feature by name and resolved version. Returns
// nil if the lock has no such feature.
func (l *Lock) Feature(ref Ref) *Feature {
	for i := range l.Features {
		if l.Features[i].Name == ref.Name && l.Features[i].Version == ref.Version {
			return &l.Features[i]
		}
	}
	return nil
}

// PackageManagerFor returns the package-manager identifier of the
// referenced base, or "" when the base is absent.
func (l *Lock) PackageManagerFor(ref Ref) string {
	if b := l.Base(ref); b != nil {
		return b.PackageManager
	}
	return ""
}
