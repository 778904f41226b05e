// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"qinstalltest/internal/issue"
)

const (
	EngineTypeDocker EngineType = "docker"
	EngineTypeFinch  EngineType = "finch"
	EngineTypePodman EngineType = "podman"
)

// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
var ErrInvalidEngineType = errors.New("invalid engine type")

// DefaultPriority is the detection order used when no override is
// configured. Both Finch-first and Docker-first orders have been used by
// this harness historically; the order is configuration, not contract.
var DefaultPriority = []EngineType{EngineTypeFinch, EngineTypePodman, EngineTypeDocker}

type (
	// EngineType identifies a supported container runtime.
	EngineType string

	// InvalidEngineTypeError is returned when an EngineType is not recognized.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// Engine defines the container operations the harness needs. All
	// implementations shell out to the runtime's CLI binary.
	Engine interface {
		// Name returns the engine name (docker, finch, or podman).
		Name() string
		// Available checks if the engine is installed and responding.
		Available() bool
		// Pull pulls an image, optionally constrained to a platform
		// (e.g., "linux/amd64").
		Pull(ctx context.Context, image, platform string) error
		// RunDetached starts a detached container and returns its ID.
		RunDetached(ctx context.Context, opts RunOptions) (string, error)
		// ExecShell runs a command inside a running container via `sh -c`,
		// synchronously, returning the exit code and combined output.
		ExecShell(ctx context.Context, containerID, command string) (CommandResult, error)
		// Stop stops a running container.
		Stop(ctx context.Context, containerID string) error
		// Remove removes a container.
		Remove(ctx context.Context, containerID string, force bool) error
	}

	// RunOptions contains options for starting a detached container.
	RunOptions struct {
		// Image is the image to run.
		Image string
		// Platform constrains the image platform (empty for the host default).
		Platform string
		// Volumes are bind mounts applied to the container.
		Volumes []VolumeMount
		// Command is the container entry command (e.g., "sleep", "3600").
		Command []string
	}

	// CommandResult is the outcome of one command executed inside a
	// container: the exit code and the combined stdout/stderr bytes. It is
	// never persisted directly, only summarized into logs and records.
	CommandResult struct {
		ExitCode int
		Output   []byte
	}
)

// Validate returns an error if the EngineType is not a supported runtime.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypeDocker, EngineTypeFinch, EngineTypePodman:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid engine type %q (valid: docker, finch, podman)", e.Value)
}

// Unwrap returns ErrInvalidEngineType so callers can use errors.Is.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// OutputString returns the combined output decoded as a string.
func (r CommandResult) OutputString() string {
	return string(r.Output)
}

// New constructs the engine for a specific runtime without probing others.
func New(t EngineType) (Engine, error) {
	switch t {
	case EngineTypeDocker:
		return NewDockerEngine(), nil
	case EngineTypeFinch:
		return NewFinchEngine(), nil
	case EngineTypePodman:
		return NewPodmanEngine(), nil
	default:
		return nil, &InvalidEngineTypeError{Value: t}
	}
}

// Detect probes the priority list in order and returns the first available
// engine. An empty list falls back to DefaultPriority.
func Detect(priority []EngineType) (Engine, error) {
	if len(priority) == 0 {
		priority = DefaultPriority
	}

	probed := make([]string, 0, len(priority))
	for _, t := range priority {
		e, err := New(t)
		if err != nil {
			return nil, err
		}
		if e.Available() {
			return e, nil
		}
		probed = append(probed, string(t))
	}

	return nil, issue.NewErrorContext().
		WithOperation("detect container runtime").
		WithResource(strings.Join(probed, ", ")).
		WithSuggestion("Install Docker, Finch, or Podman and make sure it is on PATH").
		WithSuggestion("Start the runtime daemon/VM if it is installed but not running").
		WithSuggestion("Pass --runtime to select a specific runtime explicitly").
		BuildError()
}

// ParsePriority parses a comma-separated priority list such as
// "docker,finch,podman".
func ParsePriority(s string) ([]EngineType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []EngineType
	for _, part := range strings.Split(s, ",") {
		t := EngineType(strings.TrimSpace(part))
		if err := t.Validate(); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
