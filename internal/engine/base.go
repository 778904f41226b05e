// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the shared implementation for CLI-based
	// container engines. Docker, Finch, and Podman engines embed this
	// struct; everything they do reduces to argument construction plus
	// synchronous execution of the runtime binary.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}

	// VolumeMount is a bind mount applied to a container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
	}
)

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// NewBaseCLIEngine creates a new base engine for the given binary.
func NewBaseCLIEngine(name, binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        name,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container runtime binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// String returns the mount in "host:container[:ro]" format.
func (v VolumeMount) String() string {
	s := v.HostPath + ":" + v.ContainerPath
	if v.ReadOnly {
		s += ":ro"
	}
	return s
}

// PullArgs constructs arguments for an image pull.
//
// Generated command: <binary> pull [--platform <p>] <image>
func (e *BaseCLIEngine) PullArgs(image, platform string) []string {
	args := []string{"pull"}
	if platform != "" {
		args = append(args, "--platform", platform)
	}
	return append(args, image)
}

// RunDetachedArgs constructs arguments for starting a detached container.
//
// Generated command: <binary> run -d [--platform <p>] [-v ...] <image> [command...]
func (e *BaseCLIEngine) RunDetachedArgs(opts RunOptions) []string {
	args := []string{"run", "-d"}
	if opts.Platform != "" {
		args = append(args, "--platform", opts.Platform)
	}
	for _, v := range opts.Volumes {
		args = append(args, "-v", v.String())
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)
	return args
}

// ExecShellArgs constructs arguments for executing a shell command inside a
// running container.
//
// Generated command: <binary> exec <container> sh -c <command>
func (e *BaseCLIEngine) ExecShellArgs(containerID, command string) []string {
	return []string{"exec", containerID, "sh", "-c", command}
}

// StopArgs constructs arguments for stopping a container.
func (e *BaseCLIEngine) StopArgs(containerID string) []string {
	return []string{"stop", containerID}
}

// RemoveArgs constructs arguments for removing a container.
func (e *BaseCLIEngine) RemoveArgs(containerID string, force bool) []string {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	return append(args, containerID)
}

// CreateCommand creates an exec.Cmd for the given arguments.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command and returns trimmed stdout.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RunCommandCombined executes a command capturing combined stdout/stderr and
// the exit code. A non-zero exit is captured in the result, not returned as
// an error; only infrastructure failures (binary missing, context canceled)
// produce a non-nil error.
func (e *BaseCLIEngine) RunCommandCombined(ctx context.Context, args ...string) (CommandResult, error) {
	cmd := e.CreateCommand(ctx, args...)
	out, err := cmd.CombinedOutput()

	result := CommandResult{Output: out}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
		}
	}
	return result, nil
}

// Pull pulls an image, optionally constrained to a platform.
func (e *BaseCLIEngine) Pull(ctx context.Context, image, platform string) error {
	return e.RunCommandStatus(ctx, e.PullArgs(image, platform)...)
}

// RunDetached starts a detached container and returns its ID.
func (e *BaseCLIEngine) RunDetached(ctx context.Context, opts RunOptions) (string, error) {
	return e.RunCommandWithOutput(ctx, e.RunDetachedArgs(opts)...)
}

// ExecShell runs a command inside a running container via `sh -c` and
// returns the exit code and combined output. No timeout is enforced here;
// callers needing bounded execution own their own watchdog.
func (e *BaseCLIEngine) ExecShell(ctx context.Context, containerID, command string) (CommandResult, error) {
	return e.RunCommandCombined(ctx, e.ExecShellArgs(containerID, command)...)
}

// Stop stops a running container.
func (e *BaseCLIEngine) Stop(ctx context.Context, containerID string) error {
	return e.RunCommandStatus(ctx, e.StopArgs(containerID)...)
}

// Remove removes a container.
func (e *BaseCLIEngine) Remove(ctx context.Context, containerID string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveArgs(containerID, force)...)
}
