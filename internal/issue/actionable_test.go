// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "detect container runtime"},
			expected: "failed to detect container runtime",
		},
		{
			name: "operation and resource",
			err: &ActionableError{
				Operation: "pull image",
				Resource:  "ubuntu:22.04",
			},
			expected: "failed to pull image: ubuntu:22.04",
		},
		{
			name: "operation, resource, and cause",
			err: &ActionableError{
				Operation: "pull image",
				Resource:  "ubuntu:22.04",
				Cause:     errors.New("network unreachable"),
			},
			expected: "failed to pull image: ubuntu:22.04: network unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	cause := errors.New("exit status 125")

	err := NewErrorContext().
		WithOperation("create container").
		WithResource("fedora:39").
		WithSuggestion("Check that the container runtime daemon is running").
		Wrap(cause).
		Build()

	if err == nil {
		t.Fatal("Build() returned nil for a context with an operation")
	}
	if !errors.Is(err, cause) {
		t.Error("built error does not unwrap to its cause")
	}
	if !err.HasSuggestions() {
		t.Error("HasSuggestions() = false, want true")
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
}

func TestActionableError_FormatVerbose(t *testing.T) {
	inner := errors.New("connection refused")
	wrapped := WrapWithOperation(inner, "probe engine")

	out := (&ActionableError{
		Operation:   "run scenario",
		Suggestions: []string{"Re-run with --verbose"},
		Cause:       wrapped,
	}).Format(true)

	if !strings.Contains(out, "Error chain:") {
		t.Errorf("verbose format missing error chain:\n%s", out)
	}
	if !strings.Contains(out, "• Re-run with --verbose") {
		t.Errorf("format missing suggestion bullet:\n%s", out)
	}
}
