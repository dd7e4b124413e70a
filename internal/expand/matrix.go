// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/imagewright/imagewright/internal/template"
	"github.com/imagewright/imagewright/internal/version"
	"github.com/imagewright/imagewright/pkg/lockfile"
	"github.com/imagewright/imagewright/pkg/wrightfile"
)

// pin keys locked values by name and version placeholder.
type pin struct {
	name    string
	version string
}

// selection is one locked base or feature chosen for a build tuple.
type selection struct {
	name string
	res  version.Result
	tag  string
	ref  lockfile.Ref
}

// matrix expands build specs against the locked bases and features of one
// resolution pass. Expansion is pure and synchronous; all long-latency
// work happened before the matrix is built.
type matrix struct {
	cfg      *wrightfile.Wrightfile
	bases    map[pin]lockedBase
	features map[pin]lockedFeature

	// declOrder maps a feature name to its first declaration index,
	// fixing install order independently of group order.
	declOrder map[string]int

	now time.Time
}

func newMatrix(cfg *wrightfile.Wrightfile, bases map[pin]lockedBase, features map[pin]lockedFeature, now time.Time) *matrix {
	declOrder := make(map[string]int, len(cfg.Features))
	for i, f := range cfg.Features {
		if _, ok := declOrder[f.Name]; !ok {
			declOrder[f.Name] = i
		}
	}
	return &matrix{cfg: cfg, bases: bases, features: features, declOrder: declOrder, now: now}
}

// expand enumerates every concrete build of spec. index is the build's
// position in the config, carried into error messages.
func (m *matrix) expand(index int, spec wrightfile.BuildSpec) ([]lockfile.Build, error) {
	switch s := spec.(type) {
	case wrightfile.CartesianBuild:
		return m.expandCartesian(index, s)
	case wrightfile.PinnedBuild:
		return m.expandPinned(index, s)
	default:
		return nil, fmt.Errorf("build #%d: unknown build form %T", index+1, spec)
	}
}

// expandCartesian walks the full product: every selected base version
// times one member of each feature group times that member's versions.
func (m *matrix) expandCartesian(index int, spec wrightfile.CartesianBuild) ([]lockfile.Build, error) {
	baseOpts := m.baseOptions(spec.Bases)
	groups := make([][]pin, len(spec.Features))
	for i, group := range spec.Features {
		groups[i] = m.featureOptions(group)
	}
	combos := product(groups)

	builds := make([]lockfile.Build, 0, len(baseOpts)*len(combos))
	for _, basePin := range baseOpts {
		for _, combo := range combos {
			build, err := m.assemble(spec.ImageName, spec.ImageTag, basePin, combo)
			if err != nil {
				return nil, fmt.Errorf("build #%d (%s): %w", index+1, spec.ImageName, err)
			}
			builds = append(builds, build)
		}
	}
	return builds, nil
}

// expandPinned is the single-element matrix: one base pin, one fixed
// feature selection.
func (m *matrix) expandPinned(index int, spec wrightfile.PinnedBuild) ([]lockfile.Build, error) {
	basePin := pin{name: spec.Base.Name, version: spec.Base.Version}
	combo := make([]pin, len(spec.Features))
	for i, p := range spec.Features {
		combo[i] = pin{name: p.Name, version: p.Version}
	}

	build, err := m.assemble(spec.ImageName, spec.ImageTag, basePin, combo)
	if err != nil {
		return nil, fmt.Errorf("build #%d (%s): %w", index+1, spec.ImageName, err)
	}
	return []lockfile.Build{build}, nil
}

// baseOptions flattens base selectors into (name, placeholder) pairs. A
// selector without versions covers every placeholder its base declares.
func (m *matrix) baseOptions(selectors []wrightfile.Selector) []pin {
	var opts []pin
	for _, sel := range selectors {
		versions := sel.Versions
		if len(versions) == 0 {
			if base := m.cfg.Base(sel.Name); base != nil {
				versions = base.Versions
			}
		}
		for _, v := range versions {
			opts = append(opts, pin{name: sel.Name, version: v})
		}
	}
	return opts
}

// featureOptions flattens one feature group into (name, placeholder)
// pairs. A selector without versions covers every placeholder claimed by
// the entries sharing its name.
func (m *matrix) featureOptions(group []wrightfile.Selector) []pin {
	var opts []pin
	for _, sel := range group {
		versions := sel.Versions
		if len(versions) == 0 {
			for _, entry := range m.cfg.FeatureEntries(sel.Name) {
				versions = append(versions, entry.Versions...)
			}
		}
		for _, v := range versions {
			opts = append(opts, pin{name: sel.Name, version: v})
		}
	}
	return opts
}

// product computes the cartesian product across groups, one pick per
// group. No groups yields a single empty combination, so a build without
// features still expands once per base version.
func product(groups [][]pin) [][]pin {
	combos := [][]pin{nil}
	for _, group := range groups {
		next := make([][]pin, 0, len(combos)*len(group))
		for _, combo := range combos {
			for _, opt := range group {
				c := make([]pin, len(combo)+1)
				copy(c, combo)
				c[len(combo)] = opt
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

// assemble renders one concrete build from a base pin and one feature pin
// per group. Feature order in the result follows config declaration
// order, not group order, keeping install order stable across
// regenerations.
func (m *matrix) assemble(imageName, imageTag string, basePin pin, combo []pin) (lockfile.Build, error) {
	lb, ok := m.bases[basePin]
	if !ok {
		return lockfile.Build{}, &UnresolvedPinError{Kind: "base", Name: basePin.name, Version: basePin.version}
	}
	base := selection{
		name: lb.base.Name,
		res:  lb.res,
		tag:  lb.base.Tag,
		ref:  lockfile.Ref{Name: lb.base.Name, Version: lb.base.Version},
	}

	features := make([]selection, len(combo))
	for i, p := range combo {
		lf, ok := m.features[p]
		if !ok {
			return lockfile.Build{}, &UnresolvedPinError{Kind: "feature", Name: p.name, Version: p.version}
		}
		features[i] = selection{
			name: lf.feature.Name,
			res:  lf.res,
			tag:  lf.feature.Tag,
			ref:  lockfile.Ref{Name: lf.feature.Name, Version: lf.feature.Version},
		}
	}
	slices.SortStableFunc(features, func(a, b selection) int {
		return cmp.Compare(m.declOrder[a.name], m.declOrder[b.name])
	})

	ctx := nameContext(base, features, m.now)
	name, err := template.Render(imageName, ctx)
	if err != nil {
		return lockfile.Build{}, fmt.Errorf("rendering image-name: %w", err)
	}
	tag, err := template.Render(imageTag, ctx)
	if err != nil {
		return lockfile.Build{}, fmt.Errorf("rendering image-tag: %w", err)
	}

	refs := make([]lockfile.Ref, len(features))
	tags := make([]string, 0, len(features)+1)
	if base.tag != "" {
		tags = append(tags, base.tag)
	}
	for i, f := range features {
		refs[i] = f.ref
		if f.tag != "" {
			tags = append(tags, f.tag)
		}
	}

	return lockfile.Build{
		Target:    strings.Join(tags, "-"),
		ImageName: name,
		ImageTag:  tag,
		Base:      base.ref,
		Features:  refs,
	}, nil
}

// checkTargets enforces global target uniqueness over the whole expanded
// batch, across build specs, before any build is accepted.
func checkTargets(builds []lockfile.Build) error {
	seen := make(map[string]struct{}, len(builds))
	for _, b := range builds {
		if _, dup := seen[b.Target]; dup {
			return &DuplicateTargetError{Target: b.Target, ImageName: b.ImageName}
		}
		seen[b.Target] = struct{}{}
	}
	return nil
}
