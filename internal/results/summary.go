// SPDX-License-Identifier: MPL-2.0

package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// SummaryFileName is the aggregate file written next to the individual
// records; the aggregator skips it when re-reading the directory.
const SummaryFileName = "zip_test_summary.json"

// ErrNoResults is returned by Aggregate when the results directory holds
// no parsable records.
var ErrNoResults = errors.New("no test results found")

type (
	// Tally counts outcomes within one breakdown bucket.
	Tally struct {
		Total   int `json:"total"`
		Passed  int `json:"passed"`
		Failed  int `json:"failed"`
		Skipped int `json:"skipped"`
	}

	// Summary is the aggregate of all scenario records from one run.
	Summary struct {
		Timestamp            string            `json:"timestamp"`
		TotalTests           int               `json:"total_tests"`
		Passed               int               `json:"passed"`
		Failed               int               `json:"failed"`
		Skipped              int               `json:"skipped"`
		SuccessRate          float64           `json:"success_rate"`
		ResultsByDistro      map[string]*Tally `json:"results_by_distribution"`
		ResultsByArch        map[string]*Tally `json:"results_by_architecture"`
		ResultsByLibcVariant map[string]*Tally `json:"results_by_libc_variant"`
		FailedTests          []ScenarioRecord  `json:"failed_tests"`
		SkippedTests         []ScenarioRecord  `json:"skipped_tests"`
		DetailedResults      []ScenarioRecord  `json:"detailed_results"`
	}
)

func (t *Tally) add(s Status) {
	t.Total++
	switch s {
	case StatusPass:
		t.Passed++
	case StatusFail:
		t.Failed++
	default:
		t.Skipped++
	}
}

// Build computes a Summary from records. The success rate excludes skipped
// scenarios; when every record is a skip it is reported as zero rather
// than dividing by zero.
func Build(records []ScenarioRecord, now time.Time) *Summary {
	sorted := make([]ScenarioRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DistVersion() != sorted[j].DistVersion() {
			return sorted[i].DistVersion() < sorted[j].DistVersion()
		}
		return sorted[i].Cell() < sorted[j].Cell()
	})

	s := &Summary{
		Timestamp:            now.Format(time.RFC3339),
		TotalTests:           len(sorted),
		ResultsByDistro:      make(map[string]*Tally),
		ResultsByArch:        make(map[string]*Tally),
		ResultsByLibcVariant: make(map[string]*Tally),
		FailedTests:          []ScenarioRecord{},
		SkippedTests:         []ScenarioRecord{},
		DetailedResults:      sorted,
	}

	bucket := func(m map[string]*Tally, key string) *Tally {
		t, ok := m[key]
		if !ok {
			t = &Tally{}
			m[key] = t
		}
		return t
	}

	for _, r := range sorted {
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
			s.FailedTests = append(s.FailedTests, r)
		default:
			s.Skipped++
			s.SkippedTests = append(s.SkippedTests, r)
		}

		bucket(s.ResultsByDistro, r.DistVersion()).add(r.Status)
		bucket(s.ResultsByArch, r.Architecture).add(r.Status)
		bucket(s.ResultsByLibcVariant, r.LibcVariant).add(r.Status)
	}

	if executed := s.TotalTests - s.Skipped; executed > 0 {
		s.SuccessRate = float64(s.Passed) / float64(executed) * 100
	}

	return s
}

// Aggregate reads every record in dir (skipping SummaryFileName), builds a
// Summary, and writes it back to dir as SummaryFileName. Unparsable files
// are logged and skipped so one corrupt record cannot sink the whole run's
// reporting.
func Aggregate(dir string, logger *log.Logger) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var records []ScenarioRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == SummaryFileName || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("could not read result file", "file", path, "error", err)
			continue
		}

		var rec ScenarioRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			logger.Warn("could not parse result file", "file", path, "error", err)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoResults
	}

	s := Build(records, time.Now())
	if err := s.Write(dir); err != nil {
		return nil, err
	}
	return s, nil
}

// Write persists the summary as indented JSON into dir.
func (s *Summary) Write(dir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// Report writes the human-readable run summary to w, mirroring the JSON
// summary in console form.
func (s *Summary) Report(w io.Writer) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nZIP INSTALLATION TEST SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total tests: %d\n", s.TotalTests)
	fmt.Fprintf(w, "Passed: %d\n", s.Passed)
	fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	fmt.Fprintf(w, "Skipped: %d\n", s.Skipped)
	fmt.Fprintf(w, "Success rate: %.1f%% (excluding skipped tests)\n", s.SuccessRate)

	fmt.Fprintln(w, "\nResults by distribution:")
	for _, dist := range sortedKeys(s.ResultsByDistro) {
		t := s.ResultsByDistro[dist]
		executed := t.Total - t.Skipped
		rate := 0.0
		if executed > 0 {
			rate = float64(t.Passed) / float64(executed) * 100
		}
		fmt.Fprintf(w, "  %s: %d/%d passed (%.1f%%), %d skipped\n",
			dist, t.Passed, executed, rate, t.Skipped)
	}

	if len(s.FailedTests) > 0 {
		fmt.Fprintln(w, "\nFailed tests:")
		for _, r := range s.FailedTests {
			fmt.Fprintf(w, "  %s %s on %s with %s\n",
				r.Distribution, r.Version, r.Architecture, r.LibcVariant)
		}
	}

	if len(s.SkippedTests) > 0 {
		fmt.Fprintln(w, "\nSkipped tests:")
		for _, r := range s.SkippedTests {
			fmt.Fprintf(w, "  %s %s on %s with %s\n",
				r.Distribution, r.Version, r.Architecture, r.LibcVariant)
		}
	}
}

func sortedKeys(m map[string]*Tally) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
