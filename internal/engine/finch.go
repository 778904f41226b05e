// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"os/exec"
)

// FinchEngine implements the Engine interface using the Finch CLI. Finch
// accepts the same pull/run/exec/stop/rm argument shapes as Docker, so the
// base engine covers everything beyond availability probing.
type FinchEngine struct {
	*BaseCLIEngine
}

// NewFinchEngine creates a new Finch engine.
func NewFinchEngine(opts ...BaseCLIEngineOption) *FinchEngine {
	path, _ := exec.LookPath("finch")
	return &FinchEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypeFinch), path, opts...),
	}
}

// Available checks if Finch is installed and its VM responds.
func (e *FinchEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version")
	return cmd.Run() == nil
}
