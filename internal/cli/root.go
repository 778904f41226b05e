// SPDX-License-Identifier: MPL-2.0

// Package cli contains all commands of the qinstalltest binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"qinstalltest/internal/config"
	"qinstalltest/internal/issue"
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
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the loaded configuration, populated before any RunE fires.
	cfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "qinstalltest",
		Short: "Installer integration tests for the Amazon Q Developer CLI",
		Long: TitleStyle.Render("qinstalltest") + SubtitleStyle.Render(" - installer integration tests") + `

qinstalltest verifies that the Amazon Q Developer CLI installer ZIP
packages install correctly across a matrix of Linux distributions,
architectures, and libc variants. Each scenario provisions an ephemeral
container (docker, finch, or podman), runs the vendor install script as
an unprivileged user, and asserts the installed binary works.

` + SubtitleStyle.Render("Examples:") + `
  qinstalltest fetch https://example.com/latest/   Download installer bundles
  qinstalltest run                                 Run the full test matrix
  qinstalltest run --distributions ubuntu:24.04    Run one distribution
  qinstalltest table --output results.md           Render the results table`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/qinstalltest/config.toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(fetchCmd)
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. Called by main.main().
func Execute() {
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

// initRootConfig loads the configuration before command execution.
func initRootConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
}

// formatErrorForDisplay renders ActionableErrors with their suggestions;
// verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
