// SPDX-License-Identifier: MPL-2.0

// Package wrightfile defines the schema and parsing for imagewright.toml
// config files.
package wrightfile

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/imagewright/imagewright/pkg/cueutil"
)

//go:embed wrightfile_schema.cue
var wrightfileSchema []byte

// DefaultName is the config filename looked for in the working directory.
const DefaultName = "imagewright.toml"

// Wrightfile is the parsed, validated configuration: the templated
// description of bases, features, and the builds combining them.
type Wrightfile struct {
	// Registry is the image registry that built images are pushed to.
	// It is carried verbatim into the lock for release tooling.
	Registry string

	// Bases are the foundational OS images builds start from.
	Bases []BaseSpec

	// Features are the installable units layered onto a base. A feature
	// name may appear in several entries partitioning disjoint version
	// placeholders; together they form one logical feature.
	Features []FeatureSpec

	// Builds are the abstract build definitions to expand.
	Builds []BuildSpec

	// FilePath is the path this config was loaded from.
	FilePath string
}

// BaseSpec describes one base image family ([[base]]).
type BaseSpec struct {
	// Name uniquely identifies the base across the config.
	Name string

	// Versions are the version placeholders to resolve ("41", "17.*").
	Versions []string

	// PackageManager identifies which script table package-manager steps
	// select ("rpm", "apt", ...).
	PackageManager string

	// VersionTag is the template for the base's stage tag (required —
	// base stages are named by it).
	VersionTag string

	// Image is the template for the base's image reference.
	Image string

	// Fetch is the optional version fetch strategy. When nil, version
	// placeholders are used verbatim as final versions.
	Fetch FetchVersion
}

// FeatureSpec describes one feature entry ([[feature]]).
type FeatureSpec struct {
	// Name identifies the logical feature this entry belongs to.
	Name string

	// Versions are the version placeholders this entry claims.
	Versions []string

	// VersionTag is the template for the feature's tag segment. An absent
	// or empty rendered tag contributes no segment to target identifiers.
	VersionTag string

	// Fetch is the optional version fetch strategy.
	Fetch FetchVersion

	// Steps are the ordered installation steps ([[feature.step]]).
	Steps []InstallStep
}

// BuildSpec is one [[build]] entry: either a CartesianBuild expanded over
// base/feature versions, or a PinnedBuild naming exact placeholders.
type BuildSpec interface {
	buildSpec()
}

// Selector picks a declared base or feature for a cartesian build,
// optionally restricted to a subset of its declared version placeholders.
type Selector struct {
	// Name of the base or feature.
	Name string

	// Versions restricts the selection to the listed placeholders.
	// Nil means every declared placeholder participates.
	Versions []string
}

// CartesianBuild is the matrix form: every base selector times one feature
// per group times every participating version.
type CartesianBuild struct {
	// Bases selects which bases this build covers.
	Bases []Selector

	// Features are the feature groups; exactly one member of each group is
	// selected per expanded build.
	Features [][]Selector

	// ImageName is the template for the built image's name.
	ImageName string

	// ImageTag is the template for the built image's tag.
	ImageTag string
}

func (CartesianBuild) buildSpec() {}

// Pin names one exact (name, version placeholder) pair.
type Pin struct {
	Name    string
	Version string
}

// PinnedBuild bypasses expansion: one base pin plus a flat feature pin
// list. Pinned versions name placeholders ("17.*"), not resolved versions.
type PinnedBuild struct {
	Base     Pin
	Features []Pin

	// ImageName is the template for the built image's name.
	ImageName string

	// ImageTag is the template for the built image's tag.
	ImageTag string
}

func (PinnedBuild) buildSpec() {}

// Base finds a base spec by name. Returns nil if no base has that name.
func (w *Wrightfile) Base(name string) *BaseSpec {
	for i := range w.Bases {
		if w.Bases[i].Name == name {
			return &w.Bases[i]
		}
	}
	return nil
}

// FeatureEntries returns every feature entry sharing the given name, in
// declaration order. The entries partition the feature's placeholders.
func (w *Wrightfile) FeatureEntries(name string) []FeatureSpec {
	var entries []FeatureSpec
	for _, f := range w.Features {
		if f.Name == name {
			entries = append(entries, f)
		}
	}
	return entries
}

// Parse reads and parses a wrightfile from the given path.
func Parse(path string) (*Wrightfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wrightfile at %s: %w", path, err)
	}

	return ParseBytes(data, path)
}

// ParseBytes parses wrightfile content from bytes. The decoded TOML tree
// is validated against the embedded CUE schema (structure, required
// fields, enum values) before the typed model is built, then the model's
// own invariants are checked. Every failure over the file's content wraps
// ErrInvalidConfig.
func ParseBytes(data []byte, path string) (*Wrightfile, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, &ValidateError{File: path, Detail: err.Error()}
	}
	if err := cueutil.Validate(wrightfileSchema, "#Wrightfile", tree, cueutil.WithFilename(path)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var raw rawWrightfile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse wrightfile at %s: %w", path, err)
	}

	wf, err := raw.normalize(path)
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	return wf, nil
}

type (
	rawWrightfile struct {
		Registry string       `toml:"registry"`
		Bases    []rawBase    `toml:"base"`
		Features []rawFeature `toml:"feature"`
		Builds   []rawBuild   `toml:"build"`
	}

	rawBase struct {
		Name           string    `toml:"name"`
		Versions       []string  `toml:"versions"`
		PackageManager string    `toml:"package-manager"`
		VersionTag     string    `toml:"version-tag"`
		Image          string    `toml:"image"`
		Fetch          *rawFetch `toml:"fetch-version"`
	}

	rawFeature struct {
		Name       string    `toml:"name"`
		Versions   []string  `toml:"versions"`
		VersionTag string    `toml:"version-tag"`
		Fetch      *rawFetch `toml:"fetch-version"`
		Steps      []rawStep `toml:"step"`
	}

	rawFetch struct {
		Type        string   `toml:"type"`
		Image       string   `toml:"image"`
		Command     []string `toml:"command"`
		Org         string   `toml:"org"`
		Project     string   `toml:"project"`
		VersionFrom string   `toml:"version-from"`
	}

	rawStep struct {
		Method       string              `toml:"method"`
		Copy         map[string]string   `toml:"copy"`
		Scripts      map[string][]string `toml:"scripts"`
		Commands     []string            `toml:"commands"`
		Dependencies []string            `toml:"dependencies"`
	}

	// rawBuild covers both build forms; the singular base table
	// discriminates the pinned form.
	rawBuild struct {
		Bases     []any   `toml:"bases"`
		Base      *rawPin `toml:"base"`
		Features  []any   `toml:"features"`
		ImageName string  `toml:"image-name"`
		ImageTag  string  `toml:"image-tag"`
	}

	rawPin struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	}
)

func (r *rawWrightfile) normalize(path string) (*Wrightfile, error) {
	wf := &Wrightfile{
		Registry: r.Registry,
		FilePath: path,
	}

	for _, b := range r.Bases {
		fetch, err := b.Fetch.normalize(path, fmt.Sprintf("base %q", b.Name))
		if err != nil {
			return nil, err
		}
		wf.Bases = append(wf.Bases, BaseSpec{
			Name:           b.Name,
			Versions:       b.Versions,
			PackageManager: b.PackageManager,
			VersionTag:     b.VersionTag,
			Image:          b.Image,
			Fetch:          fetch,
		})
	}

	for _, f := range r.Features {
		fetch, err := f.Fetch.normalize(path, fmt.Sprintf("feature %q", f.Name))
		if err != nil {
			return nil, err
		}
		var steps []InstallStep
		for i, s := range f.Steps {
			step, err := s.normalize(path, fmt.Sprintf("feature %q step #%d", f.Name, i+1))
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		wf.Features = append(wf.Features, FeatureSpec{
			Name:       f.Name,
			Versions:   f.Versions,
			VersionTag: f.VersionTag,
			Fetch:      fetch,
			Steps:      steps,
		})
	}

	for i, b := range r.Builds {
		build, err := b.normalize(path, i)
		if err != nil {
			return nil, err
		}
		wf.Builds = append(wf.Builds, build)
	}

	return wf, nil
}

func (r *rawBuild) normalize(path string, index int) (BuildSpec, error) {
	if r.Base != nil {
		pins := make([]Pin, 0, len(r.Features))
		for _, f := range r.Features {
			pin, err := normalizePin(f)
			if err != nil {
				return nil, &ValidateError{File: path, Detail: fmt.Sprintf("build #%d: %v", index+1, err)}
			}
			pins = append(pins, pin)
		}
		return PinnedBuild{
			Base:      Pin{Name: r.Base.Name, Version: r.Base.Version},
			Features:  pins,
			ImageName: r.ImageName,
			ImageTag:  r.ImageTag,
		}, nil
	}

	bases := make([]Selector, 0, len(r.Bases))
	for _, b := range r.Bases {
		sel, err := normalizeSelector(b)
		if err != nil {
			return nil, &ValidateError{File: path, Detail: fmt.Sprintf("build #%d: %v", index+1, err)}
		}
		bases = append(bases, sel)
	}

	groups := make([][]Selector, 0, len(r.Features))
	for _, g := range r.Features {
		members, ok := g.([]any)
		if !ok {
			return nil, &ValidateError{File: path, Detail: fmt.Sprintf("build #%d: feature group must be a list, got %T", index+1, g)}
		}
		group := make([]Selector, 0, len(members))
		for _, m := range members {
			sel, err := normalizeSelector(m)
			if err != nil {
				return nil, &ValidateError{File: path, Detail: fmt.Sprintf("build #%d: %v", index+1, err)}
			}
			group = append(group, sel)
		}
		groups = append(groups, group)
	}

	return CartesianBuild{
		Bases:     bases,
		Features:  groups,
		ImageName: r.ImageName,
		ImageTag:  r.ImageTag,
	}, nil
}

// normalizeSelector accepts the two selector spellings: a bare name string
// or a {name, versions} table.
func normalizeSelector(v any) (Selector, error) {
	switch s := v.(type) {
	case string:
		return Selector{Name: s}, nil
	case map[string]any:
		name, _ := s["name"].(string)
		if name == "" {
			return Selector{}, fmt.Errorf("selector table must carry a name")
		}
		rawVersions, _ := s["versions"].([]any)
		versions := make([]string, 0, len(rawVersions))
		for _, rv := range rawVersions {
			ver, ok := rv.(string)
			if !ok {
				return Selector{}, fmt.Errorf("selector %q: versions must be strings, got %T", name, rv)
			}
			versions = append(versions, ver)
		}
		if len(versions) == 0 {
			return Selector{}, fmt.Errorf("selector %q: versions must not be empty", name)
		}
		return Selector{Name: name, Versions: versions}, nil
	default:
		return Selector{}, fmt.Errorf("selector must be a name or {name, versions} table, got %T", v)
	}
}

func normalizePin(v any) (Pin, error) {
	table, ok := v.(map[string]any)
	if !ok {
		return Pin{}, fmt.Errorf("pinned feature must be a {name, version} table, got %T", v)
	}
	name, _ := table["name"].(string)
	version, _ := table["version"].(string)
	if name == "" || version == "" {
		return Pin{}, fmt.Errorf("pinned feature must carry name and version")
	}
	return Pin{Name: name, Version: version}, nil
}
