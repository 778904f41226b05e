// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"qinstalltest/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <base-url|s3-uri>",
	Short: "Download installer artifacts into the bundle directory",
	Long: `Fetch downloads the release artifacts (zip bundles for every
architecture/libc combination, plus the deb and AppImage installers) from
an HTTP base URL or an s3:// prefix into the bundle/ layout the scenarios
mount into containers.

Examples:
  qinstalltest fetch https://desktop-release.example.com/latest/
  qinstalltest fetch s3://my-bucket/amazon-q/latest/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := fetch.New(filepath.Join(cfg.WorkspaceDir, "bundle"))
		if err := f.Fetch(cmd.Context(), args[0]); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		return nil
	},
}
