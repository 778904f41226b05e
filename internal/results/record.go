// SPDX-License-Identifier: MPL-2.0

package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// TestName is the test identifier component of record file names and the
// base of each record's Test field.
const TestName = "test_zip_installation"

// ErrInvalidStatus is the sentinel error wrapped by InvalidStatusError.
var ErrInvalidStatus = errors.New("invalid status")

type (
	// Status is the outcome of one scenario.
	Status string

	// InvalidStatusError is returned when a Status is not recognized.
	InvalidStatusError struct {
		Value Status
	}

	// ScenarioRecord is the persisted outcome of one scenario. Optional
	// fields are populated depending on the status: BinaryPath and ZipFile
	// on pass, Error on fail and skip.
	ScenarioRecord struct {
		Distribution       string  `json:"distribution"`
		Version            string  `json:"version"`
		Architecture       string  `json:"architecture"`
		LibcVariant        string  `json:"libc_variant"`
		Test               string  `json:"test"`
		Timestamp          string  `json:"timestamp"`
		Status             Status  `json:"status"`
		ExecutionTime      float64 `json:"execution_time"`
		InstallationMethod string  `json:"installation_method"`
		ZipFile            string  `json:"zip_file,omitempty"`
		BinaryPath         string  `json:"binary_path,omitempty"`
		User               string  `json:"user,omitempty"`
		Error              string  `json:"error,omitempty"`
		InstallLogContent  string  `json:"install_log_content,omitempty"`
	}

	// Recorder writes scenario records into a results directory.
	Recorder struct {
		dir string
	}
)

// Validate returns an error if the Status is not a recognized outcome.
func (s Status) Validate() error {
	switch s {
	case StatusPass, StatusFail, StatusSkip:
		return nil
	default:
		return &InvalidStatusError{Value: s}
	}
}

// Error implements the error interface.
func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q (valid: pass, fail, skip)", e.Value)
}

// Unwrap returns ErrInvalidStatus so callers can use errors.Is.
func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }

// DistVersion returns the "distribution version" grouping key used by the
// summary breakdowns and the results table rows.
func (r ScenarioRecord) DistVersion() string {
	return r.Distribution + " " + r.Version
}

// Cell returns the "architecture/libc" column key.
func (r ScenarioRecord) Cell() string {
	return r.Architecture + "/" + r.LibcVariant
}

// FileName returns the record's file name within the results directory:
// "<distro>-<version>-<arch>-<variant>-<test_name>.json". It is derived
// purely from the matrix cell, so rerunning a scenario overwrites its
// previous record.
func (r ScenarioRecord) FileName() string {
	return fmt.Sprintf("%s-%s-%s-%s-%s.json",
		r.Distribution, r.Version, r.Architecture, r.LibcVariant, TestName)
}

// NewRecorder returns a Recorder rooted at dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Dir returns the results directory.
func (rc *Recorder) Dir() string { return rc.dir }

// Write persists rec as indented JSON, creating the results directory if
// needed, and returns the path written.
func (rc *Recorder) Write(rec ScenarioRecord) (string, error) {
	if err := rec.Status.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(rc.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result record: %w", err)
	}

	path := filepath.Join(rc.dir, rec.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result record: %w", err)
	}
	return path, nil
}
