// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for imagewright.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/imagewright/imagewright/internal/config"
	"github.com/imagewright/imagewright/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom tool config file
	cfgFile string

	// toolCfg is the loaded tool configuration. Commands read their flag
	// defaults from it; a failed load leaves the built-in defaults in place.
	toolCfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "imagewright",
		Short: "A container image matrix resolver and Dockerfile generator",
		Long: TitleStyle.Render("imagewright") + SubtitleStyle.Render(" - A container image matrix resolver and Dockerfile generator") + `

imagewright turns a templated description of container images (bases,
features, and the builds combining them) into a fully pinned lock file
and a multi-stage Dockerfile. Version placeholders like "17.*" resolve
against real sources: command output from a container, or tag and
branch listings on GitHub. Base images are pinned by content digest so
the same lock always builds the same images.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Describe bases, features, and builds in imagewright.toml
  2. Run 'imagewright update' to resolve versions into imagewright.lock
  3. Run 'imagewright write' to render the lock into a Dockerfile

` + SubtitleStyle.Render("Examples:") + `
  imagewright update          Resolve versions and regenerate the lock
  imagewright write           Render the lock into build/Dockerfile
  imagewright images          List the images the lock describes
  imagewright images --json   Machine-readable build list for CI`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "tool config file (default is $XDG_CONFIG_HOME/imagewright/config.toml)")

	// Add subcommands
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newWriteCommand())
	rootCmd.AddCommand(newImagesCommand())
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig loads the tool configuration and wires up logging.
func initRootConfig() {
	opts := config.LoadOptions{ConfigFilePath: cfgFile}

	cfg, err := config.NewProvider().Load(context.Background(), opts)
	if err != nil {
		// Surface config problems without aborting; defaults still work.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if cfg != nil {
		toolCfg = cfg
	}

	initLogging()
}

// initLogging installs the styled terminal logger as the slog default, so
// package logging across the module flows through a single handler.
func initLogging() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
	})
	logger.SetLevel(logLevel())
	slog.SetDefault(slog.New(logger))
}

// logLevel maps the verbose flag and the configured log level onto the
// handler level. The flag wins.
func logLevel() log.Level {
	if verbose {
		return log.DebugLevel
	}
	switch toolCfg.Log.Level {
	case config.LogLevelDebug:
		return log.DebugLevel
	case config.LogLevelWarn:
		return log.WarnLevel
	case config.LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
