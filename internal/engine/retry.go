// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RetryWithBackoff retries op up to maxAttempts times with exponential
// backoff. It checks ctx.Err() between retries to respect cancellation
// immediately.
//
// op returns (shouldRetry bool, err error). If shouldRetry is false, err is
// returned immediately (nil on success, non-nil on permanent failure).
// On retry exhaustion, the last error is returned.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
			time.Sleep(baseBackoff * time.Duration(1<<(attempt-1)))
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

type (
	// Strategy is one rung of an ordered fallback ladder: a shell command
	// to attempt and a label for diagnostics.
	Strategy struct {
		Name    string
		Command string
	}

	// StrategyError aggregates the failures of an exhausted ladder.
	StrategyError struct {
		Attempts []StrategyAttempt
	}

	// StrategyAttempt records one failed rung.
	StrategyAttempt struct {
		Name     string
		ExitCode int
		Output   string
	}

	// ShellExecutor runs one shell command and reports its result. The
	// session layer satisfies this with its container exec primitive.
	ShellExecutor interface {
		ExecShell(ctx context.Context, command string) (CommandResult, error)
	}
)

// Error implements the error interface.
func (e *StrategyError) Error() string {
	var b strings.Builder
	b.WriteString("all strategies failed:")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, " [%s: exit %d]", a.Name, a.ExitCode)
	}
	return b.String()
}

// RunStrategies tries each strategy in order against exec, returning the
// first successful result. Each failure is captured and the next rung is
// tried; only when every rung has failed is a StrategyError returned. This
// replaces per-call-site chains of nested fallback handling with one
// attempt-capture-continue loop.
func RunStrategies(ctx context.Context, exec ShellExecutor, strategies []Strategy) (CommandResult, error) {
	if len(strategies) == 0 {
		return CommandResult{}, errors.New("no strategies to run")
	}

	serr := &StrategyError{}
	for _, s := range strategies {
		res, err := exec.ExecShell(ctx, s.Command)
		if err != nil {
			return res, fmt.Errorf("strategy %s: %w", s.Name, err)
		}
		if res.ExitCode == 0 {
			return res, nil
		}
		serr.Attempts = append(serr.Attempts, StrategyAttempt{
			Name:     s.Name,
			ExitCode: res.ExitCode,
			Output:   res.OutputString(),
		})
	}
	return CommandResult{}, serr
}
