// SPDX-License-Identifier: MPL-2.0

package version

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/imagewright/imagewright/internal/template"
)

func (r *Resolver) resolveExec(ctx context.Context, name, placeholder string, s Exec) (Result, error) {
	tctx := TemplateContext(placeholder)
	image, err := template.Render(s.Image, tctx)
	if err != nil {
		return Result{}, fmt.Errorf("rendering image template for %q: %w", name, err)
	}
	argv := make([]string, len(s.Command))
	for i, arg := range s.Command {
		if argv[i], err = template.Render(arg, tctx); err != nil {
			return Result{}, fmt.Errorf("rendering command template for %q: %w", name, err)
		}
	}
	if r.runner == nil {
		return Result{}, fmt.Errorf("no container engine configured for exec fetch of %q", name)
	}

	slog.Info("fetching version via command", "name", name, "image", image)
	var out string
	err = retryWithBackoff(ctx, r.retry, func() error {
		o, runErr := r.runner.RunOutput(ctx, image, argv)
		if runErr != nil {
			return &Error{Kind: ErrNetworkFailure, Name: name, Placeholder: placeholder, Err: runErr}
		}
		out = o
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	raw := lastNonEmptyLine(out)
	if raw == "" {
		return Result{}, &Error{
			Kind:        ErrAmbiguousOutput,
			Name:        name,
			Placeholder: placeholder,
			Detail:      fmt.Sprintf("command in %q produced no usable output", image),
		}
	}
	return Result{Version: raw, Fields: Split(raw)}, nil
}

// lastNonEmptyLine is the version-bearing line of command output: tools
// tend to print banners and warnings first and the answer last.
func lastNonEmptyLine(out string) string {
	last := ""
	for line := range strings.SplitSeq(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			last = trimmed
		}
	}
	return last
}
