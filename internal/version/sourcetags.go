// SPDX-License-Identifier: MPL-2.0

package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/imagewright/imagewright/internal/github"
	"github.com/imagewright/imagewright/internal/template"
)

func (r *Resolver) resolveSourceTags(ctx context.Context, name, placeholder string, s SourceTags) (Result, error) {
	// A pinned placeholder needs no lookup; this keeps fully literal
	// configs resolvable offline.
	if IsLiteral(placeholder) {
		return Result{Version: placeholder, Fields: Split(placeholder)}, nil
	}

	tctx := TemplateContext(placeholder)
	org, err := template.Render(s.Org, tctx)
	if err != nil {
		return Result{}, fmt.Errorf("rendering org template for %q: %w", name, err)
	}
	project, err := template.Render(s.Project, tctx)
	if err != nil {
		return Result{}, fmt.Errorf("rendering project template for %q: %w", name, err)
	}
	if r.tags == nil {
		return Result{}, fmt.Errorf("no tag source configured for fetch of %q", name)
	}

	slog.Info("fetching versions from source host", "name", name, "org", org, "project", project, "mode", s.Mode)
	var names []string
	err = retryWithBackoff(ctx, r.retry, func() error {
		listed, listErr := r.tags.ListNames(ctx, org, project, s.Mode)
		if listErr != nil {
			return classifyListErr(listErr, name, placeholder)
		}
		names = listed
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	newest, ok := Newest(placeholder, names)
	if !ok {
		return Result{}, &Error{
			Kind:        ErrNotFound,
			Name:        name,
			Placeholder: placeholder,
			Detail:      fmt.Sprintf("no %s of %s/%s matches", s.Mode, org, project),
		}
	}
	return Result{Version: newest, Fields: Split(newest)}, nil
}

// classifyListErr maps a lister failure onto the error taxonomy: rate
// limits and transport failures stay retryable, a missing repository is
// final.
func classifyListErr(err error, name, placeholder string) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &Error{Kind: ErrRateLimited, Name: name, Placeholder: placeholder, ResetAt: rateErr.ResetAt, Err: err}
	}
	var statusErr *github.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return &Error{Kind: ErrNotFound, Name: name, Placeholder: placeholder, Detail: "repository not found", Err: err}
	}
	return &Error{Kind: ErrNetworkFailure, Name: name, Placeholder: placeholder, Err: err}
}
