// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/imagewright/imagewright/internal/issue"
	"github.com/imagewright/imagewright/pkg/lockfile"
)

// imageRow is one build in the images listing. The JSON field names are
// part of the CI contract.
type imageRow struct {
	Target string `json:"target"`
	Image  string `json:"image"`
	Tag    string `json:"tag"`
}

// imagesParams bundles the flags for the images command so runImages can
// be tested without a Cobra command.
type imagesParams struct {
	stdout   io.Writer
	lockPath string
	asJSON   bool
}

// newImagesCommand creates the `imagewright images` command, which lists
// the images the lock file describes.
func newImagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "List the images the lock file describes",
		Long: `List the images the lock file describes.

For every build in the lock the listing shows the build target, the
registry-qualified image name, and the image tag. Use --json for a
machine-readable array, e.g. to drive CI build fan-out.`,
		Example: `  # Styled columns
  imagewright images

  # Machine-readable, for CI
  imagewright images --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			lockPath, _ := cmd.Flags().GetString("lock")
			asJSON, _ := cmd.Flags().GetBool("json")

			p := imagesParams{
				stdout:   cmd.OutOrStdout(),
				lockPath: lockPath,
				asJSON:   asJSON,
			}

			if err := runImages(p); err != nil {
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

	cmd.Flags().String("lock", lockfile.DefaultName, "path of the lock file to list")
	cmd.Flags().Bool("json", false, "print a machine-readable JSON array")

	return cmd
}

// runImages is the core listing logic, separated from Cobra for
// testability.
func runImages(p imagesParams) error {
	lock, err := lockfile.Parse(p.lockPath)
	if err != nil {
		return err
	}

	rows := make([]imageRow, 0, len(lock.Builds))
	for _, b := range lock.Builds {
		rows = append(rows, imageRow{
			Target: b.Target,
			Image:  qualifiedImage(lock.Registry, b.ImageName),
			Tag:    b.ImageTag,
		})
	}

	if p.asJSON {
		enc := json.NewEncoder(p.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	printImageTable(p.stdout, rows)
	return nil
}

// qualifiedImage prefixes name with the registry, when one is configured.
func qualifiedImage(registry, name string) string {
	if registry == "" {
		return name
	}
	return registry + "/" + name
}

// printImageTable renders the rows as aligned styled columns.
func printImageTable(w io.Writer, rows []imageRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("The lock describes no builds."))
		return
	}

	targetWidth, imageWidth := len("TARGET"), len("IMAGE")
	for _, r := range rows {
		targetWidth = max(targetWidth, len(r.Target))
		imageWidth = max(imageWidth, len(r.Image))
	}

	fmt.Fprintf(w, "%s  %s  %s\n",
		SubtitleStyle.Render(pad("TARGET", targetWidth)),
		SubtitleStyle.Render(pad("IMAGE", imageWidth)),
		SubtitleStyle.Render("TAG"))
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  %s\n",
			CmdStyle.Render(pad(r.Target, targetWidth)),
			pad(r.Image, imageWidth),
			VerboseStyle.Render(r.Tag))
	}
}

// pad left-aligns s in a field of the given width.
func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}
