// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imagewright/imagewright/internal/config"
	"github.com/imagewright/imagewright/internal/container"
	"github.com/imagewright/imagewright/internal/expand"
	"github.com/imagewright/imagewright/internal/github"
	"github.com/imagewright/imagewright/internal/issue"
	"github.com/imagewright/imagewright/internal/vercache"
	"github.com/imagewright/imagewright/internal/version"
	"github.com/imagewright/imagewright/pkg/lockfile"
	"github.com/imagewright/imagewright/pkg/wrightfile"
)

// updateParams bundles the dependencies and flags for the update command,
// enabling the core logic in runUpdate to be tested without a Cobra
// command, a container engine, or live GitHub API calls.
type updateParams struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	lockPath   string // empty = next to the config
	resolver   expand.VersionResolver
	digests    expand.DigestSource
	workers    int
}

// newUpdateCommand creates the `imagewright update` command, which resolves
// every version placeholder and regenerates the lock file and target list.
func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Resolve versions and regenerate the lock file",
		Long: `Resolve versions and regenerate the lock file.

The update command resolves every version placeholder in the config
against its source (command output from a container, or GitHub tag and
branch listings), renders all templates, pins base images by content
digest, expands the build matrix, and writes the lock file plus a
plain-text target list next to it. The pass is all-or-nothing: on any
failure nothing is written and the previous lock stays in place.`,
		Example: `  # Resolve ./imagewright.toml into ./imagewright.lock
  imagewright update

  # Config and lock at a different location
  imagewright update -f images/imagewright.toml

  # More parallel fetches, no retries
  imagewright update --workers 16 --retries 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			configPath, _ := cmd.Flags().GetString("file")
			lockPath, _ := cmd.Flags().GetString("lock")
			workers, _ := cmd.Flags().GetInt("workers")
			retries, _ := cmd.Flags().GetInt("retries")
			backoff, _ := cmd.Flags().GetDuration("retry-backoff")
			token, _ := cmd.Flags().GetString("token")

			// Flags win over the tool config; unset flags fall back to the
			// config so IMAGEWRIGHT_RESOLVE_* env overrides apply too.
			if !cmd.Flags().Changed("workers") {
				workers = int(toolCfg.Resolve.Workers)
			}
			if !cmd.Flags().Changed("retries") {
				retries = int(toolCfg.Resolve.Retries)
			}
			if !cmd.Flags().Changed("retry-backoff") {
				backoff = toolCfg.Resolve.RetryBackoff
			}

			runner, digests := connectEngine(cmd.Context())
			cache := vercache.NewCache(vercache.NewMemoryStore(), githubFetch(newGitHubClient(token)))
			resolver := version.NewResolver(runner, &cacheLister{cache: cache}, version.RetryPolicy{
				// Attempts counts the first try as well.
				Attempts: retries + 1,
				Backoff:  backoff,
			})

			p := updateParams{
				stdout:     cmd.OutOrStdout(),
				stderr:     cmd.ErrOrStderr(),
				configPath: configPath,
				lockPath:   lockPath,
				resolver:   resolver,
				digests:    digests,
				workers:    workers,
			}

			if err := runUpdate(cmd.Context(), p); err != nil {
				id := issueFor(err)
				if id == 0 && errors.Is(err, fs.ErrNotExist) {
					id = issue.ConfigNotFoundId
				}
				renderIssueCard(p.stderr, id)
				fmt.Fprintln(p.stderr, ErrorStyle.Render("Update failed: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: classifyUpdateExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().StringP("file", "f", wrightfile.DefaultName, "path of the config to resolve")
	cmd.Flags().String("lock", "", "path of the lock file to write (default: next to the config)")
	cmd.Flags().Int("workers", int(config.DefaultWorkers), "concurrent version resolutions")
	cmd.Flags().Int("retries", int(config.DefaultRetries), "retries per failed version fetch")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff, "base delay between retries")
	cmd.Flags().String("token", "", "GitHub token for tag listing (overrides config and env)")

	return cmd
}

// runUpdate is the core resolution pass, separated from Cobra for
// testability. All user-facing output goes through p.stdout and p.stderr.
//
// Flow:
//  1. Parse and validate the config.
//  2. Resolve every placeholder and expand the build matrix.
//  3. Write the lock and target list, only on full success.
func runUpdate(ctx context.Context, p updateParams) error {
	cfg, err := wrightfile.Parse(p.configPath)
	if err != nil {
		return err
	}

	builder := expand.NewBuilder(p.resolver, p.digests, expand.WithWorkers(p.workers))
	lock, err := builder.Build(ctx, cfg)
	if err != nil {
		return err
	}

	lockPath := p.lockPath
	if lockPath == "" {
		lockPath = filepath.Join(filepath.Dir(p.configPath), lockfile.DefaultName)
	}
	if err := lock.Write(lockPath); err != nil {
		return err
	}

	fmt.Fprintf(p.stdout, "Resolved %d bases, %d features, %d builds\n",
		len(lock.Bases), len(lock.Features), len(lock.Builds))
	fmt.Fprintln(p.stdout, SuccessStyle.Render(
		fmt.Sprintf("Wrote %s and %s", lockPath, lockfile.TargetsPath(lockPath))))
	return nil
}

// connectEngine connects to the container engine. An unreachable engine is
// not fatal here: tag listings and literal versions still resolve, exec
// fetches fail with a clear error, and base images pin by tag instead of
// digest.
func connectEngine(ctx context.Context) (version.Runner, expand.DigestSource) {
	engine, err := container.NewDockerEngine()
	if err == nil {
		err = engine.Available(ctx)
	}
	if err != nil {
		slog.Warn("container engine unavailable, continuing without it", "error", err)
		return nil, nil
	}
	return engine, engine
}

// resolveToken applies the token precedence: the --token flag, then the
// tool config, then the GH_TOKEN and GITHUB_TOKEN environment variables.
func resolveToken(flagToken string) string {
	if flagToken != "" {
		return flagToken
	}
	if toolCfg.GitHub.Token.IsSet() {
		return toolCfg.GitHub.Token.Reveal()
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("GITHUB_TOKEN")
}

// newGitHubClient builds the tag-listing client, attaching a token when
// one is available for higher rate limits (5000/hour vs 60/hour).
func newGitHubClient(flagToken string) *github.Client {
	opts := []github.ClientOption{github.WithUserAgent("imagewright/" + Version)}
	if base := string(toolCfg.GitHub.APIURL); base != "" {
		opts = append(opts, github.WithBaseURL(base))
	}
	if token := resolveToken(flagToken); token != "" {
		opts = append(opts, github.WithToken(token))
	}
	return github.NewClient(opts...)
}

// githubFetch adapts the GitHub client to the cache's fetch function,
// dispatching on the key's ref namespace.
func githubFetch(client *github.Client) vercache.FetchFunc {
	return func(ctx context.Context, key vercache.Key) ([]string, error) {
		if key.Mode == version.ModeBranch {
			return client.ListBranches(ctx, key.Org, key.Project)
		}
		return client.ListTags(ctx, key.Org, key.Project)
	}
}

// cacheLister adapts the coalescing listing cache to the resolver's
// TagLister, so one pass never asks GitHub for the same listing twice.
type cacheLister struct {
	cache *vercache.Cache
}

// ListNames implements version.TagLister.
func (l *cacheLister) ListNames(ctx context.Context, org, project string, mode version.Mode) ([]string, error) {
	return l.cache.GetOrFetch(ctx, vercache.Key{Org: org, Project: project, Mode: mode})
}

// classifyUpdateExitCode maps an update failure to the process exit code.
// A missing or invalid config uses exit code 2 (usage error); resolution
// and lock-writing failures use exit code 1.
func classifyUpdateExitCode(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, wrightfile.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}
