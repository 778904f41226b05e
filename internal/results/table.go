// SPDX-License-Identifier: MPL-2.0

package results

import (
	"fmt"
	"sort"
	"strings"
)

const (
	glyphPass    = "✅"
	glyphFail    = "❌"
	glyphMissing = "⚪"

	// logExcerptLimit bounds the install log embedded per test in the
	// markdown report; longer logs keep the head and tail around a marker.
	logExcerptLimit = 2000
	logExcerptKeep  = 1000
)

// Markdown renders the summary as a markdown document: title, summary
// statistics, failed/skipped lists, per-test detail sections, and a
// distribution-by-cell results table with one glyph per matrix cell.
func Markdown(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# ZIP Installation Test Results\n\n")
	fmt.Fprintf(&b, "Generated from results at: %s\n\n", s.Timestamp)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total tests: %d\n", s.TotalTests)
	fmt.Fprintf(&b, "- Passed: %d\n", s.Passed)
	fmt.Fprintf(&b, "- Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "- Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "- Success rate: %.1f%% (excluding skipped tests)\n\n", s.SuccessRate)

	if len(s.FailedTests) > 0 {
		b.WriteString("### Failed Tests\n\n")
		for _, r := range s.FailedTests {
			fmt.Fprintf(&b, "- %s (%s)\n", r.DistVersion(), r.Cell())
		}
		b.WriteString("\n")
	}

	if len(s.SkippedTests) > 0 {
		b.WriteString("### Skipped Tests\n\n")
		for _, r := range s.SkippedTests {
			fmt.Fprintf(&b, "- %s (%s)\n", r.DistVersion(), r.Cell())
		}
		b.WriteString("\n")
	}

	b.WriteString("## Detailed Test Results\n\n")
	for _, r := range s.DetailedResults {
		status := glyphFail + " Failed"
		if r.Status == StatusPass {
			status = glyphPass + " Passed"
		}
		fmt.Fprintf(&b, "### %s (%s): %s\n\n", r.DistVersion(), r.Cell(), status)
		fmt.Fprintf(&b, "- Test: %s\n", r.Test)
		fmt.Fprintf(&b, "- Execution time: %.2f seconds\n", r.ExecutionTime)

		if r.Status == StatusFail {
			errMsg := r.Error
			if errMsg == "" {
				errMsg = "Unknown error"
			}
			fmt.Fprintf(&b, "- Error: %s\n", errMsg)
		}
		if r.InstallLogContent != "" {
			fmt.Fprintf(&b, "- Install Log: ```\n%s\n```\n", truncateLog(r.InstallLogContent))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Results Table\n\n")
	b.WriteString(resultsTable(s))

	return b.String()
}

// resultsTable builds the markdown grid: one row per "distribution
// version", one column per architecture/libc combination present in the
// results, a glyph per cell and an empty-circle for cells never run.
func resultsTable(s *Summary) string {
	archSet := map[string]struct{}{}
	libcSet := map[string]struct{}{}
	cells := map[string]map[string]Status{}

	for _, r := range s.DetailedResults {
		archSet[r.Architecture] = struct{}{}
		libcSet[r.LibcVariant] = struct{}{}

		row, ok := cells[r.DistVersion()]
		if !ok {
			row = map[string]Status{}
			cells[r.DistVersion()] = row
		}
		row[r.Cell()] = r.Status
	}

	arches := setToSorted(archSet)
	libcs := setToSorted(libcSet)

	headers := []string{"Distribution/Version"}
	for _, arch := range arches {
		for _, libc := range libcs {
			headers = append(headers, arch+"/"+libc)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "| %s |\n", strings.Join(headers, " | "))

	separators := make([]string, len(headers))
	for i := range separators {
		separators[i] = "---"
	}
	fmt.Fprintf(&b, "| %s |\n", strings.Join(separators, " | "))

	dists := make([]string, 0, len(cells))
	for dist := range cells {
		dists = append(dists, dist)
	}
	sort.Strings(dists)

	for _, dist := range dists {
		row := []string{dist}
		for _, arch := range arches {
			for _, libc := range libcs {
				status, ok := cells[dist][arch+"/"+libc]
				switch {
				case ok && status == StatusPass:
					row = append(row, glyphPass)
				case ok && status == StatusFail:
					row = append(row, glyphFail)
				default:
					row = append(row, glyphMissing)
				}
			}
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(row, " | "))
	}

	return b.String()
}

func truncateLog(content string) string {
	if len(content) <= logExcerptLimit {
		return content
	}
	return content[:logExcerptKeep] +
		"\n...\n[log truncated]\n...\n" +
		content[len(content)-logExcerptKeep:]
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
