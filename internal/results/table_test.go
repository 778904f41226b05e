// SPDX-License-Identifier: MPL-2.0

package results

import (
	"strings"
	"testing"
	"time"
)

func TestMarkdownTableGlyphs(t *testing.T) {
	s := Build([]ScenarioRecord{
		record("ubuntu", "24.04", "x86_64", "glibc", StatusPass),
		record("ubuntu", "24.04", "x86_64", "musl", StatusFail),
		record("ubuntu", "24.04", "arm64", "glibc", StatusSkip),
		// arm64/musl cell intentionally absent.
	}, time.Now())

	out := Markdown(s)

	header := "| Distribution/Version | arm64/glibc | arm64/musl | x86_64/glibc | x86_64/musl |"
	if !strings.Contains(out, header) {
		t.Errorf("missing header row %q\n%s", header, out)
	}

	// skip, absent, pass, fail in sorted column order.
	row := "| ubuntu 24.04 | ⚪ | ⚪ | ✅ | ❌ |"
	if !strings.Contains(out, row) {
		t.Errorf("missing results row %q\n%s", row, out)
	}
}

func TestMarkdownRowsSortedByDistribution(t *testing.T) {
	s := Build([]ScenarioRecord{
		record("ubuntu", "24.04", "x86_64", "glibc", StatusPass),
		record("alpine", "3.19", "x86_64", "glibc", StatusPass),
	}, time.Now())

	out := Markdown(s)
	alpineIdx := strings.Index(out, "| alpine 3.19 |")
	ubuntuIdx := strings.Index(out, "| ubuntu 24.04 |")
	if alpineIdx < 0 || ubuntuIdx < 0 || alpineIdx > ubuntuIdx {
		t.Errorf("rows not sorted by distribution:\n%s", out)
	}
}

func TestMarkdownSections(t *testing.T) {
	failed := record("debian", "12", "x86_64", "glibc", StatusFail)
	failed.Error = "unzip exploded"
	s := Build([]ScenarioRecord{
		record("ubuntu", "24.04", "x86_64", "glibc", StatusPass),
		failed,
		record("alpine", "3.19", "arm64", "glibc", StatusSkip),
	}, time.Now())

	out := Markdown(s)
	for _, want := range []string{
		"# ZIP Installation Test Results",
		"## Summary",
		"- Total tests: 3",
		"### Failed Tests",
		"- debian 12 (x86_64/glibc)",
		"### Skipped Tests",
		"- alpine 3.19 (arm64/glibc)",
		"## Detailed Test Results",
		"- Error: unzip exploded",
		"## Results Table",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownIncludesInstallLog(t *testing.T) {
	rec := record("ubuntu", "24.04", "x86_64", "glibc", StatusPass)
	rec.InstallLogContent = "install completed cleanly"
	s := Build([]ScenarioRecord{rec}, time.Now())

	if !strings.Contains(Markdown(s), "install completed cleanly") {
		t.Error("install log content not embedded")
	}
}

func TestTruncateLog(t *testing.T) {
	short := strings.Repeat("a", logExcerptLimit)
	if got := truncateLog(short); got != short {
		t.Error("log at the limit should not be truncated")
	}

	long := strings.Repeat("a", 1500) + strings.Repeat("b", 1500)
	got := truncateLog(long)
	if !strings.Contains(got, "[log truncated]") {
		t.Error("long log should contain the truncation marker")
	}
	if !strings.HasPrefix(got, strings.Repeat("a", logExcerptKeep)) {
		t.Error("truncated log should keep the head")
	}
	if !strings.HasSuffix(got, strings.Repeat("b", logExcerptKeep)) {
		t.Error("truncated log should keep the tail")
	}
}
