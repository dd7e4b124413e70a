// SPDX-License-Identifier: MPL-2.0

// Package version resolves templated version placeholders into concrete
// version strings. A placeholder travels through a fetch strategy: Exec
// runs a command inside a container image and reads the version off its
// output, SourceTags lists tag or branch names from a source-control host
// and picks the newest one matching the placeholder. Specs without a
// strategy use their placeholders verbatim.
package version

import (
	"context"
	"fmt"

	"github.com/imagewright/imagewright/internal/template"
)

// Result is a concretely resolved version together with its decomposed
// fields.
type Result struct {
	Version string
	Fields  []string
}

// TemplateValue exposes the result to templates as {version, versions}.
func (r Result) TemplateValue() template.Object {
	return template.Object{
		"version":  template.String(r.Version),
		"versions": template.Strings(r.Fields),
	}
}

// TemplateContext is the context a fetch strategy's templates render
// against: the placeholder itself as {{version}} plus its split fields as
// {{versions.N}}.
func TemplateContext(placeholder string) template.Context {
	return Result{Version: placeholder, Fields: Split(placeholder)}.TemplateValue()
}

// Mode selects which ref namespace a SourceTags strategy consults.
type Mode string

const (
	ModeTag    Mode = "tag"
	ModeBranch Mode = "branch"
)

// Strategy is the closed set of version-fetch strategies. A new strategy
// is a new variant plus one dispatch branch in Resolve, never runtime
// registration.
type Strategy interface{ strategy() }

// Exec fetches a version by running Command inside a fresh container of
// Image and reading the last non-empty line of the combined output. Image
// and each Command element are templates.
type Exec struct {
	Image   string
	Command []string
}

// SourceTags fetches candidate names from a source-control host and
// resolves the placeholder to the newest match. Org and Project are
// templates.
type SourceTags struct {
	Org     string
	Project string
	Mode    Mode
}

func (Exec) strategy()       {}
func (SourceTags) strategy() {}

// Runner executes argv to completion inside a fresh container of image
// and returns the combined output. The container engine satisfies this.
type Runner interface {
	RunOutput(ctx context.Context, image string, argv []string) (string, error)
}

// TagLister lists tag or branch names for a repository. Ordering is not
// significant; the resolver compares every name. The resolution cache
// satisfies this.
type TagLister interface {
	ListNames(ctx context.Context, org, project string, mode Mode) ([]string, error)
}

// Resolver turns version placeholders into concrete versions using the
// collaborators and retry policy it was built with.
type Resolver struct {
	runner Runner
	tags   TagLister
	retry  RetryPolicy
}

// NewResolver builds a Resolver. Either collaborator may be nil when the
// config exercises only the other strategy.
func NewResolver(runner Runner, tags TagLister, retry RetryPolicy) *Resolver {
	return &Resolver{runner: runner, tags: tags, retry: retry}
}

// Resolve maps one placeholder of the named base or feature to a concrete
// version. A nil strategy uses the placeholder verbatim.
func (r *Resolver) Resolve(ctx context.Context, name, placeholder string, strategy Strategy) (Result, error) {
	switch s := strategy.(type) {
	case nil:
		return Result{Version: placeholder, Fields: Split(placeholder)}, nil
	case Exec:
		return r.resolveExec(ctx, name, placeholder, s)
	case SourceTags:
		return r.resolveSourceTags(ctx, name, placeholder, s)
	default:
		return Result{}, fmt.Errorf("unknown fetch strategy %T", strategy)
	}
}
