// SPDX-License-Identifier: MPL-2.0

// Package expand turns a parsed config into the locked build plan. One
// pass resolves every version placeholder on a bounded worker pool,
// renders base and feature templates per resolved version, pins base
// images by content digest, and expands every build spec into concrete
// builds with globally unique targets. A pass is fail-fast and
// all-or-nothing: the first fatal error aborts it and no partial lock is
// produced.
package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imagewright/imagewright/internal/template"
	"github.com/imagewright/imagewright/internal/version"
	"github.com/imagewright/imagewright/pkg/lockfile"
	"github.com/imagewright/imagewright/pkg/wrightfile"
)

// DefaultWorkers bounds concurrent placeholder resolutions.
const DefaultWorkers = 8

// VersionResolver resolves one version placeholder to a concrete version.
// *version.Resolver satisfies this.
type VersionResolver interface {
	Resolve(ctx context.Context, name, placeholder string, strategy version.Strategy) (version.Result, error)
}

// DigestSource reports the content digest of an image reference. The
// container engine satisfies this.
type DigestSource interface {
	ImageDigest(ctx context.Context, image string) (string, error)
}

// Builder runs resolution passes over parsed configs.
type Builder struct {
	resolver VersionResolver
	digests  DigestSource
	workers  int
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers bounds the resolution worker pool. Values below one keep
// the default.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithNow overrides the clock stamping {{date}} renders.
func WithNow(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder resolving versions through resolver and
// pinning base images through digests. A nil digests source pins every
// base by its image tag instead.
func NewBuilder(resolver VersionResolver, digests DigestSource, opts ...Option) *Builder {
	b := &Builder{
		resolver: resolver,
		digests:  digests,
		workers:  DefaultWorkers,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// lockedBase pairs a locked base with its resolution result, kept for
// name-template contexts.
type lockedBase struct {
	base lockfile.Base
	res  version.Result
}

// lockedFeature pairs a locked feature with its resolution result.
type lockedFeature struct {
	feature lockfile.Feature
	res     version.Result
}

// resolvedVersions holds every placeholder resolution of one pass, bases
// and features keyed apart so a shared name cannot cross wires.
type resolvedVersions struct {
	bases    map[pin]version.Result
	features map[pin]version.Result
}

// Build resolves cfg into a complete lock: every base and feature
// placeholder resolved and rendered, every build spec expanded, bases and
// features sorted by name-version, builds in declaration times expansion
// order.
func (b *Builder) Build(ctx context.Context, cfg *wrightfile.Wrightfile) (*lockfile.Lock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now().UTC()
	resolved, err := b.resolveAll(ctx, cfg)
	if err != nil {
		return nil, err
	}
	bases, err := b.lockBases(ctx, cfg, resolved)
	if err != nil {
		return nil, err
	}
	features, err := lockFeatures(cfg, resolved)
	if err != nil {
		return nil, err
	}

	m := newMatrix(cfg, bases, features, now)
	var builds []lockfile.Build
	for i, spec := range cfg.Builds {
		expanded, err := m.expand(i, spec)
		if err != nil {
			return nil, err
		}
		builds = append(builds, expanded...)
	}
	if err := checkTargets(builds); err != nil {
		return nil, err
	}

	return assembleLock(cfg, bases, features, builds), nil
}

// resolveAll resolves every (name, placeholder) pair of every base and
// feature entry on a bounded worker pool. The first failure cancels the
// remaining fetches.
func (b *Builder) resolveAll(ctx context.Context, cfg *wrightfile.Wrightfile) (*resolvedVersions, error) {
	type task struct {
		pin      pin
		strategy version.Strategy
		isBase   bool
	}

	var tasks []task
	for _, base := range cfg.Bases {
		for _, placeholder := range base.Versions {
			tasks = append(tasks, task{
				pin:      pin{name: base.Name, version: placeholder},
				strategy: fetchStrategy(base.Fetch),
				isBase:   true,
			})
		}
	}
	for _, feature := range cfg.Features {
		for _, placeholder := range feature.Versions {
			tasks = append(tasks, task{
				pin:      pin{name: feature.Name, version: placeholder},
				strategy: fetchStrategy(feature.Fetch),
			})
		}
	}

	results := make([]version.Result, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, t := range tasks {
		g.Go(func() error {
			res, err := b.resolver.Resolve(ctx, t.pin.name, t.pin.version, t.strategy)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resolved := &resolvedVersions{
		bases:    make(map[pin]version.Result),
		features: make(map[pin]version.Result),
	}
	for i, t := range tasks {
		if t.isBase {
			resolved.bases[t.pin] = results[i]
		} else {
			resolved.features[t.pin] = results[i]
		}
	}
	return resolved, nil
}

// fetchStrategy maps a config fetch variant onto its resolver strategy.
func fetchStrategy(fetch wrightfile.FetchVersion) version.Strategy {
	switch f := fetch.(type) {
	case wrightfile.DockerFetch:
		return version.Exec{Image: f.Image, Command: f.Command}
	case wrightfile.GitHubFetch:
		return version.SourceTags{Org: f.Org, Project: f.Project, Mode: version.Mode(f.VersionFrom)}
	default:
		return nil
	}
}

// lockBases renders every base's stage tag and image per resolved version
// and pins each image. Digest lookups run sequentially in declaration
// order so degrade warnings stay deterministic.
func (b *Builder) lockBases(ctx context.Context, cfg *wrightfile.Wrightfile, resolved *resolvedVersions) (map[pin]lockedBase, error) {
	bases := make(map[pin]lockedBase)
	for _, spec := range cfg.Bases {
		for _, placeholder := range spec.Versions {
			p := pin{name: spec.Name, version: placeholder}
			res, ok := resolved.bases[p]
			if !ok {
				return nil, fmt.Errorf("base %q: no resolution for version %q", spec.Name, placeholder)
			}

			tctx := res.TemplateValue()
			tag, err := template.Render(spec.VersionTag, tctx)
			if err != nil {
				return nil, fmt.Errorf("base %q version %q: rendering version-tag: %w", spec.Name, placeholder, err)
			}
			image, err := template.Render(spec.Image, tctx)
			if err != nil {
				return nil, fmt.Errorf("base %q version %q: rendering image: %w", spec.Name, placeholder, err)
			}
			identifier, err := b.pinImage(ctx, image)
			if err != nil {
				return nil, fmt.Errorf("base %q version %q: %w", spec.Name, placeholder, err)
			}

			bases[p] = lockedBase{
				base: lockfile.Base{
					Name:           spec.Name,
					Version:        res.Version,
					Image:          imageRepository(image),
					Tag:            tag,
					PackageManager: spec.PackageManager,
					Identifier:     identifier,
				},
				res: res,
			}
		}
	}
	return bases, nil
}

// pinImage captures the digest identifier for a rendered image reference.
// A failed lookup degrades to the reference's own tag with a warning; a
// reference without a tag part has nothing to degrade to and fails.
func (b *Builder) pinImage(ctx context.Context, image string) (lockfile.Identifier, error) {
	var digest string
	err := errors.New("no digest source configured")
	if b.digests != nil {
		digest, err = b.digests.ImageDigest(ctx, image)
	}
	if err == nil {
		return lockfile.DigestIdentifier(digest), nil
	}

	tag := imageTag(image)
	if tag == "" {
		return lockfile.Identifier{}, fmt.Errorf("pinning %q: %w", image, err)
	}
	slog.Warn("no digest found for image, using tag instead", "image", image, "tag", tag)
	return lockfile.TagIdentifier(tag), nil
}

// imageRepository is the part of an image reference before the first ":".
func imageRepository(image string) string {
	repo, _, _ := strings.Cut(image, ":")
	return repo
}

// imageTag is the part of an image reference after the first ":", empty
// when the reference carries none.
func imageTag(image string) string {
	_, tag, _ := strings.Cut(image, ":")
	return tag
}

// lockFeatures renders every feature entry's tag and steps per resolved
// version. Each entry renders only the placeholders it claims; together
// the entries of a name cover its whole version set.
func lockFeatures(cfg *wrightfile.Wrightfile, resolved *resolvedVersions) (map[pin]lockedFeature, error) {
	features := make(map[pin]lockedFeature)
	for _, spec := range cfg.Features {
		for _, placeholder := range spec.Versions {
			p := pin{name: spec.Name, version: placeholder}
			res, ok := resolved.features[p]
			if !ok {
				return nil, fmt.Errorf("feature %q: no resolution for version %q", spec.Name, placeholder)
			}

			tctx := res.TemplateValue()
			var tag string
			if spec.VersionTag != "" {
				var err error
				if tag, err = template.Render(spec.VersionTag, tctx); err != nil {
					return nil, fmt.Errorf("feature %q version %q: rendering version-tag: %w", spec.Name, placeholder, err)
				}
			}

			steps := make([]lockfile.Step, len(spec.Steps))
			for i, step := range spec.Steps {
				rendered, err := renderStep(step, tctx)
				if err != nil {
					return nil, fmt.Errorf("feature %q version %q: step #%d: %w", spec.Name, placeholder, i+1, err)
				}
				steps[i] = rendered
			}

			features[p] = lockedFeature{
				feature: lockfile.Feature{
					Name:    spec.Name,
					Version: res.Version,
					Tag:     tag,
					Steps:   steps,
				},
				res: res,
			}
		}
	}
	return features, nil
}

// renderStep renders one install step's templates. Copy entries pass
// through verbatim.
func renderStep(step wrightfile.InstallStep, tctx template.Context) (lockfile.Step, error) {
	switch s := step.(type) {
	case wrightfile.PackageManagerStep:
		scripts := make(map[string][]string, len(s.Scripts))
		for pm, lines := range s.Scripts {
			rendered, err := renderAll(lines, tctx)
			if err != nil {
				return lockfile.Step{}, fmt.Errorf("script for %q: %w", pm, err)
			}
			scripts[pm] = rendered
		}
		return lockfile.Step{Method: s.Method, Scripts: scripts, Copy: cloneCopy(s.Copy)}, nil

	case wrightfile.DirectStep:
		commands, err := renderAll(s.Commands, tctx)
		if err != nil {
			return lockfile.Step{}, err
		}
		deps, err := renderAll(s.Dependencies, tctx)
		if err != nil {
			return lockfile.Step{}, err
		}
		return lockfile.Step{
			Method:       wrightfile.MethodDirect,
			Commands:     commands,
			Dependencies: deps,
			Copy:         cloneCopy(s.Copy),
		}, nil

	default:
		return lockfile.Step{}, fmt.Errorf("unknown step form %T", step)
	}
}

// renderAll renders a slice of templates against one context.
func renderAll(templates []string, tctx template.Context) ([]string, error) {
	if templates == nil {
		return nil, nil
	}
	out := make([]string, len(templates))
	for i, t := range templates {
		rendered, err := template.Render(t, tctx)
		if err != nil {
			return nil, err
		}
		out[i] = rendered
	}
	return out, nil
}

// cloneCopy detaches a copy table so locked steps never alias config
// state.
func cloneCopy(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// assembleLock orders the locked values deterministically: bases and
// features sorted by name-version, builds as expanded. Placeholders of
// one name that resolved to the same concrete version collapse into a
// single entry, the earliest-declared one.
func assembleLock(cfg *wrightfile.Wrightfile, bases map[pin]lockedBase, features map[pin]lockedFeature, builds []lockfile.Build) *lockfile.Lock {
	lock := &lockfile.Lock{Registry: cfg.Registry, Builds: builds}

	for _, spec := range cfg.Bases {
		for _, placeholder := range spec.Versions {
			lock.Bases = append(lock.Bases, bases[pin{name: spec.Name, version: placeholder}].base)
		}
	}
	for _, spec := range cfg.Features {
		for _, placeholder := range spec.Versions {
			lock.Features = append(lock.Features, features[pin{name: spec.Name, version: placeholder}].feature)
		}
	}

	slices.SortStableFunc(lock.Bases, func(a, b lockfile.Base) int {
		return compareNameVersion(a.Name, a.Version, b.Name, b.Version)
	})
	slices.SortStableFunc(lock.Features, func(a, b lockfile.Feature) int {
		return compareNameVersion(a.Name, a.Version, b.Name, b.Version)
	})
	lock.Bases = slices.CompactFunc(lock.Bases, func(a, b lockfile.Base) bool {
		return a.Name == b.Name && a.Version == b.Version
	})
	lock.Features = slices.CompactFunc(lock.Features, func(a, b lockfile.Feature) bool {
		return a.Name == b.Name && a.Version == b.Version
	})

	return lock
}

// compareNameVersion orders locked entries by their "name-version"
// composite.
func compareNameVersion(aName, aVersion, bName, bVersion string) int {
	return strings.Compare(aName+"-"+aVersion, bName+"-"+bVersion)
}
