// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imagewright/imagewright/internal/issue"
	"github.com/imagewright/imagewright/internal/script"
	"github.com/imagewright/imagewright/pkg/lockfile"
)

// writeParams bundles the flags for the write command so runWrite can be
// tested without a Cobra command.
type writeParams struct {
	stdout   io.Writer
	lockPath string
	outDir   string
}

// newWriteCommand creates the `imagewright write` command, which renders
// the lock file into a multi-stage Dockerfile.
func newWriteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Render the lock file into a Dockerfile",
		Long: `Render the lock file into a Dockerfile.

The write command reads the lock produced by 'imagewright update' and
renders it into a multi-stage Dockerfile: one stage per locked base
pinned by digest, then one stage per build layering the selected
features on top. It resolves nothing itself, so the output is fully
determined by the lock.`,
		Example: `  # Render ./imagewright.lock into build/Dockerfile
  imagewright write

  # Lock and output at different locations
  imagewright write --lock images/imagewright.lock --out out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			lockPath, _ := cmd.Flags().GetString("lock")
			outDir, _ := cmd.Flags().GetString("out")

			p := writeParams{
				stdout:   cmd.OutOrStdout(),
				lockPath: lockPath,
				outDir:   outDir,
			}

			if err := runWrite(p); err != nil {
				id := issueFor(err)
				if id == 0 && errors.Is(err, fs.ErrNotExist) {
					id = issue.LockNotFoundId
				}
				renderIssueCard(cmd.ErrOrStderr(), id)
				return &ExitError{Code: classifyLockExitCode(err), Err: err}
			}

			return nil
		},
	}

	cmd.Flags().String("lock", lockfile.DefaultName, "path of the lock file to render")
	cmd.Flags().String("out", "build", "directory to write the Dockerfile into")

	return cmd
}

// runWrite is the core generation logic, separated from Cobra for
// testability. Dependency paths named by the lock are checked against the
// lock file's directory, which is the build context the Dockerfile is
// built from.
func runWrite(p writeParams) error {
	lock, err := lockfile.Parse(p.lockPath)
	if err != nil {
		return err
	}

	text, err := script.Generate(lock, filepath.Dir(p.lockPath))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	outPath := filepath.Join(p.outDir, script.DefaultFileName)
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render("Wrote "+outPath))
	return nil
}
