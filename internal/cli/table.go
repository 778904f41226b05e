// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"qinstalltest/internal/results"
)

var (
	tableInputFlag  string
	tableOutputFlag string
	tableRenderFlag bool

	tableCmd = &cobra.Command{
		Use:   "table",
		Short: "Render the run summary as a markdown results table",
		Long: `Table reads the aggregated summary JSON written by a previous run and
renders it as a markdown document: summary statistics, failed and skipped
scenarios, per-test details, and a distribution-by-cell glyph table.`,
		RunE: renderTable,
	}
)

func init() {
	tableCmd.Flags().StringVar(&tableInputFlag, "input", "results/"+results.SummaryFileName, "path to the summary JSON file")
	tableCmd.Flags().StringVar(&tableOutputFlag, "output", "", "path to the output markdown file (default stdout)")
	tableCmd.Flags().BoolVar(&tableRenderFlag, "render", false, "render the markdown for the terminal instead of printing it raw")
}

func renderTable(_ *cobra.Command, _ []string) error {
	data, err := os.ReadFile(tableInputFlag)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("could not read summary: %w", err)}
	}

	var summary results.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("summary %s is not valid JSON: %w", tableInputFlag, err)}
	}

	md := results.Markdown(&summary)

	if tableOutputFlag != "" {
		if err := os.WriteFile(tableOutputFlag, []byte(md), 0o644); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		fmt.Fprintln(os.Stderr, "Table written to "+tableOutputFlag)
		return nil
	}

	if tableRenderFlag {
		rendered, err := glamour.Render(md, "auto")
		if err != nil {
			return err
		}
		fmt.Print(rendered)
		return nil
	}

	fmt.Print(md)
	return nil
}
