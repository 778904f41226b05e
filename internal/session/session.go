// SPDX-License-Identifier: MPL-2.0

package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"qinstalltest/internal/engine"
	"qinstalltest/internal/matrix"
)

const (
	// MountPath is where the workspace is bind-mounted inside the container.
	MountPath = "/amazon-q-developer-cli"

	// BundleZipDir is the in-container directory holding installer zips.
	BundleZipDir = MountPath + "/bundle/zip"

	// containerLifetime keeps the container's entry process alive long
	// enough for any scenario; the container is removed well before this.
	containerLifetime = "3600"

	pullBackoff = 2 * time.Second
)

type (
	// ProvisioningError is returned when the container for a scenario could
	// not be brought up (image pull or run failure).
	ProvisioningError struct {
		Image string
		Cause error
	}

	// Options configures session creation.
	Options struct {
		// WorkspaceDir is the host directory mounted read-only at MountPath.
		WorkspaceDir string
		// PullRetries bounds pull attempts on transient failures (min 1).
		PullRetries int
		// KeepContainer skips teardown in Destroy, leaving the container
		// running for inspection.
		KeepContainer bool
	}

	// Session is a running container scoped to one scenario. The creating
	// scenario owns it exclusively and must call Destroy on every exit path.
	Session struct {
		eng    engine.Engine
		id     string
		image  string
		keep   bool
		logger *log.Logger
	}
)

// Error implements the error interface.
func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision container from %s: %v", e.Image, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ProvisioningError) Unwrap() error { return e.Cause }

// Create pulls the distribution image for the cell's platform and starts a
// detached container with the workspace bind-mounted read-only. Transient
// pull failures are retried with backoff.
func Create(ctx context.Context, eng engine.Engine, key matrix.ScenarioKey, opts Options) (*Session, error) {
	image, err := ImageFor(key)
	if err != nil {
		return nil, err
	}
	platform := key.Architecture.Platform()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "session"})
	logger.Info("pulling image", "image", image, "platform", platform, "runtime", eng.Name())

	retries := max(opts.PullRetries, 1)
	err = engine.RetryWithBackoff(ctx, retries, pullBackoff, func(attempt int) (bool, error) {
		pullErr := eng.Pull(ctx, image, platform)
		if pullErr != nil && engine.IsTransientError(pullErr) {
			logger.Warn("transient pull failure, retrying", "image", image, "attempt", attempt+1, "error", pullErr)
			return true, pullErr
		}
		return false, pullErr
	})
	if err != nil {
		return nil, &ProvisioningError{Image: image, Cause: err}
	}

	workspace, err := filepath.Abs(opts.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace dir: %w", err)
	}

	id, err := eng.RunDetached(ctx, engine.RunOptions{
		Image:    image,
		Platform: platform,
		Volumes: []engine.VolumeMount{
			{HostPath: workspace, ContainerPath: MountPath, ReadOnly: true},
		},
		Command: []string{"sleep", containerLifetime},
	})
	if err != nil {
		return nil, &ProvisioningError{Image: image, Cause: err}
	}

	logger.Info("created container", "id", id, "image", image)

	return &Session{
		eng:    eng,
		id:     id,
		image:  image,
		keep:   opts.KeepContainer,
		logger: logger,
	}, nil
}

// ID returns the container ID.
func (s *Session) ID() string { return s.id }

// Runtime returns the name of the engine backing this session.
func (s *Session) Runtime() string { return s.eng.Name() }

// ExecShell runs command inside the container via `sh -c`, blocking until
// it terminates, and returns the exit code with combined output. The full
// transcript is logged as execution proceeds. No timeout is enforced;
// callers needing bounded execution time own their own watchdog.
func (s *Session) ExecShell(ctx context.Context, command string) (engine.CommandResult, error) {
	s.logger.Info("executing in container", "id", shortID(s.id), "command", command)

	res, err := s.eng.ExecShell(ctx, s.id, command)
	if err != nil {
		return res, err
	}

	s.logger.Info("command finished", "exit_code", res.ExitCode)
	if out := res.OutputString(); out != "" {
		fmt.Fprintln(os.Stderr, out)
	}
	return res, nil
}

// Destroy stops and removes the container. Each sub-step is best-effort:
// failures are logged, never escalated, so teardown can run on every
// scenario exit path without masking the scenario's own error.
func (s *Session) Destroy(ctx context.Context) {
	if s.keep {
		s.logger.Info("keeping container for inspection", "id", s.id, "image", s.image)
		return
	}

	s.logger.Info("stopping container", "id", shortID(s.id))
	if err := s.eng.Stop(ctx, s.id); err != nil {
		s.logger.Warn("container stop failed", "id", shortID(s.id), "error", err)
	}

	s.logger.Info("removing container", "id", shortID(s.id))
	if err := s.eng.Remove(ctx, s.id, true); err != nil {
		s.logger.Warn("container remove failed", "id", shortID(s.id), "error", err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
