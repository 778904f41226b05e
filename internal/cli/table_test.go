// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qinstalltest/internal/results"
)

func writeSummaryFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	s := results.Build([]results.ScenarioRecord{{
		Distribution:       "ubuntu",
		Version:            "24.04",
		Architecture:       "x86_64",
		LibcVariant:        "glibc",
		Test:               results.TestName + "[ubuntu-24.04-x86_64-glibc]",
		Timestamp:          time.Now().Format(time.RFC3339),
		Status:             results.StatusPass,
		ExecutionTime:      10,
		InstallationMethod: "zip",
	}}, time.Now())
	if err := s.Write(dir); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, results.SummaryFileName)
}

func resetTableFlags() {
	tableInputFlag = "results/" + results.SummaryFileName
	tableOutputFlag = ""
	tableRenderFlag = false
}

func TestRenderTableToFile(t *testing.T) {
	resetTableFlags()
	tableInputFlag = writeSummaryFixture(t)
	tableOutputFlag = filepath.Join(t.TempDir(), "results.md")

	if err := renderTable(nil, nil); err != nil {
		t.Fatalf("renderTable() error = %v", err)
	}

	data, err := os.ReadFile(tableOutputFlag)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	if !strings.Contains(string(data), "# ZIP Installation Test Results") {
		t.Errorf("output missing title:\n%s", data)
	}
	if !strings.Contains(string(data), "| ubuntu 24.04 | ✅ |") {
		t.Errorf("output missing results row:\n%s", data)
	}
}

func TestRenderTableMissingInput(t *testing.T) {
	resetTableFlags()
	tableInputFlag = filepath.Join(t.TempDir(), "nope.json")

	err := renderTable(nil, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("renderTable() error = %v, want ExitError{Code: 1}", err)
	}
}

func TestRenderTableInvalidInput(t *testing.T) {
	resetTableFlags()
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	tableInputFlag = path

	err := renderTable(nil, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("renderTable() error = %v, want ExitError{Code: 1}", err)
	}
}
