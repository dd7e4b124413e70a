// SPDX-License-Identifier: MPL-2.0

// Package script renders a resolved lock into a multi-stage container
// build script. Base stages pin images by digest or tag, build stages
// layer feature install steps on top; the generator reads the lock and
// the build context, it resolves nothing itself.
package script

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/imagewright/imagewright/pkg/lockfile"
	"github.com/imagewright/imagewright/pkg/wrightfile"
)

// DefaultFileName is the script filename written into the output
// directory.
const DefaultFileName = "Dockerfile"

// Generate renders the lock into build-script text. Stages come out in
// lock order: one per locked base, then one per build, separated by
// blank lines and ending with a newline. Dependency paths named by
// direct steps must exist under root, the build-context directory the
// script is built from; root is normally the lock file's directory.
func Generate(lock *lockfile.Lock, root string) (string, error) {
	var stages []string

	for i := range lock.Bases {
		stages = append(stages, baseStage(&lock.Bases[i]))
	}
	for i := range lock.Builds {
		stage, err := buildStage(lock, &lock.Builds[i], root)
		if err != nil {
			return "", err
		}
		stages = append(stages, stage)
	}

	return strings.Join(stages, "\n\n") + "\n", nil
}

// baseStage pins a base image as a named stage. A digest identifier wins
// over the mutable tag.
func baseStage(base *lockfile.Base) string {
	return fmt.Sprintf("FROM %s%s AS %s", base.Image, base.Identifier.Suffix(), base.Tag)
}

// buildStage derives a build's stage from its base and appends the
// install steps of every selected feature, in the order the lock
// recorded them.
func buildStage(lock *lockfile.Lock, build *lockfile.Build, root string) (string, error) {
	base := lock.Base(build.Base)
	if base == nil {
		return "", fmt.Errorf("target %q: base %s is missing from the lock", build.Target, build.Base)
	}
	if base.PackageManager == "" {
		return "", fmt.Errorf("target %q: base %s is missing a package manager", build.Target, build.Base)
	}

	lines := []string{fmt.Sprintf("FROM %s AS %s", base.Tag, build.Target)}
	for _, ref := range build.Features {
		feature := lock.Feature(ref)
		if feature == nil {
			return "", fmt.Errorf("target %q: feature %s is missing from the lock", build.Target, ref)
		}
		for i := range feature.Steps {
			stepText, err := stepLines(build.Target, feature, &feature.Steps[i], base.PackageManager, root)
			if err != nil {
				return "", fmt.Errorf("target %q: %w", build.Target, err)
			}
			lines = append(lines, stepText...)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// stepLines emits one install step: the copy entries first, sorted by
// source path, then the step's instructions. Package-manager steps fold
// their script into a single RUN stanza; direct steps pass their command
// lines through verbatim after their dependencies are confirmed present.
func stepLines(target string, feature *lockfile.Feature, step *lockfile.Step, packageManager, root string) ([]string, error) {
	var lines []string
	for _, src := range slices.Sorted(maps.Keys(step.Copy)) {
		lines = append(lines, fmt.Sprintf("COPY %s %s", src, step.Copy[src]))
	}

	if step.Method == wrightfile.MethodDirect {
		for _, dep := range step.Dependencies {
			_, err := os.Stat(filepath.Join(root, dep))
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &MissingDependencyError{Feature: feature.Name, Version: feature.Version, Path: dep}
			}
			if err != nil {
				return nil, fmt.Errorf("checking dependency %q: %w", dep, err)
			}
		}
		for _, cmd := range step.Commands {
			if body, ok := strings.CutPrefix(cmd, "RUN "); ok {
				warnUnlessShell(target, feature, body)
			}
		}
		return append(lines, step.Commands...), nil
	}

	script, ok := step.Scripts[packageManager]
	if !ok {
		return nil, &NoScriptError{Feature: feature.Name, Version: feature.Version, PackageManager: packageManager}
	}
	if run := runLine(script); run != "" {
		warnUnlessShell(target, feature, strings.TrimPrefix(run, "RUN "))
		lines = append(lines, run)
	}
	return lines, nil
}

// runLine folds script lines into one RUN stanza. An empty script
// contributes no instruction.
func runLine(script []string) string {
	if len(script) == 0 {
		return ""
	}
	return "RUN " + strings.Join(script, " && \\\n")
}

func warnUnlessShell(target string, feature *lockfile.Feature, body string) {
	if err := lintRun(body); err != nil {
		slog.Warn("generated RUN stanza does not parse as shell",
			"target", target, "feature", feature.Name+"-"+feature.Version, "err", err)
	}
}
