// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"qinstalltest/internal/config"
	"qinstalltest/internal/engine"
	"qinstalltest/internal/matrix"
	"qinstalltest/internal/results"
	"qinstalltest/internal/scenario"
	"qinstalltest/internal/session"
)

func resetRunFlags() {
	runtimeFlag = ""
	distributionsFlag = nil
	architecturesFlag = nil
	libcVariantsFlag = nil
	noSummaryFlag = false
	keepContainersFlag = false
	parallelFlag = 1
	cfg = config.DefaultConfig()
}

func TestSelectScenariosDefaultMatrix(t *testing.T) {
	resetRunFlags()

	keys, err := selectScenarios()
	if err != nil {
		t.Fatalf("selectScenarios() error = %v", err)
	}

	// Every distro row yields musl; glibc only where the release ships 2.34+.
	var muslCount, glibcCount int
	for _, k := range keys {
		switch k.Libc {
		case matrix.LibcMusl:
			muslCount++
		case matrix.LibcGlibc:
			glibcCount++
		}
	}
	if muslCount != len(matrix.Distros) {
		t.Errorf("musl scenarios = %d, want one per distro row (%d)", muslCount, len(matrix.Distros))
	}
	if glibcCount == 0 || glibcCount >= muslCount {
		t.Errorf("glibc scenarios = %d, want gated subset of %d", glibcCount, muslCount)
	}

	for _, k := range keys {
		if k.Distribution == "ubuntu" && k.Version == "20.04" && k.Libc == matrix.LibcGlibc {
			t.Error("ubuntu 20.04 (glibc 2.31) must not produce a glibc scenario")
		}
	}
}

func TestSelectScenariosDistributionFilter(t *testing.T) {
	resetRunFlags()
	distributionsFlag = []string{"ubuntu:24.04"}

	keys, err := selectScenarios()
	if err != nil {
		t.Fatalf("selectScenarios() error = %v", err)
	}
	if len(keys) == 0 {
		t.Fatal("no scenarios for ubuntu:24.04")
	}
	for _, k := range keys {
		if k.Distribution != "ubuntu" || k.Version != "24.04" {
			t.Errorf("unexpected scenario %s", k.String())
		}
	}
}

func TestSelectScenariosUnknownDistribution(t *testing.T) {
	resetRunFlags()
	distributionsFlag = []string{"slackware"}

	if _, err := selectScenarios(); err == nil {
		t.Error("unknown distribution should be rejected")
	}
}

func TestSelectScenariosArchAndLibcFilters(t *testing.T) {
	resetRunFlags()
	architecturesFlag = []string{"aarch64"} // alias for arm64
	libcVariantsFlag = []string{"musl"}

	keys, err := selectScenarios()
	if err != nil {
		t.Fatalf("selectScenarios() error = %v", err)
	}
	for _, k := range keys {
		if k.Architecture != matrix.ArchARM64 {
			t.Errorf("architecture = %s, want arm64", k.Architecture)
		}
		if k.Libc != matrix.LibcMusl {
			t.Errorf("libc = %s, want musl", k.Libc)
		}
	}
}

func TestSelectScenariosInvalidArchitecture(t *testing.T) {
	resetRunFlags()
	architecturesFlag = []string{"riscv64"}

	if _, err := selectScenarios(); err == nil {
		t.Error("invalid architecture should be rejected")
	}
}

func TestSelectScenariosSingleCellShortCircuit(t *testing.T) {
	resetRunFlags()
	// ubuntu 20.04 ships glibc 2.31, so the expanded matrix never emits its
	// glibc cell; a fully-pinned selection bypasses the gate.
	distributionsFlag = []string{"ubuntu:20.04"}
	architecturesFlag = []string{"x86_64"}
	libcVariantsFlag = []string{"glibc"}

	keys, err := selectScenarios()
	if err != nil {
		t.Fatalf("selectScenarios() error = %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d scenarios, want exactly 1", len(keys))
	}
	want := matrix.ScenarioKey{
		Distribution: "ubuntu",
		Version:      "20.04",
		Architecture: matrix.ArchX8664,
		Libc:         matrix.LibcGlibc,
	}
	if keys[0] != want {
		t.Errorf("key = %+v, want %+v", keys[0], want)
	}
}

func TestSelectScenariosDistributionWithoutVersionIsNotSingleCell(t *testing.T) {
	resetRunFlags()
	distributionsFlag = []string{"ubuntu"}
	architecturesFlag = []string{"x86_64"}
	libcVariantsFlag = []string{"musl"}

	keys, err := selectScenarios()
	if err != nil {
		t.Fatalf("selectScenarios() error = %v", err)
	}
	// All ubuntu versions on x86_64, musl only.
	if len(keys) != 3 {
		t.Errorf("got %d scenarios, want 3 (20.04, 22.04, 24.04)", len(keys))
	}
}

// teardownEngine fails every exec (panicking when asked to) and records
// whether the container was stopped and removed.
type teardownEngine struct {
	panicOnExec bool
	stopped     int
	removed     int
}

func (e *teardownEngine) Name() string    { return "fake" }
func (e *teardownEngine) Available() bool { return true }

func (e *teardownEngine) Pull(context.Context, string, string) error { return nil }

func (e *teardownEngine) RunDetached(context.Context, engine.RunOptions) (string, error) {
	return "deadbeef", nil
}

func (e *teardownEngine) ExecShell(context.Context, string, string) (engine.CommandResult, error) {
	if e.panicOnExec {
		panic("exec blew up")
	}
	return engine.CommandResult{ExitCode: 1, Output: []byte("nope")}, nil
}

func (e *teardownEngine) Stop(context.Context, string) error { e.stopped++; return nil }

func (e *teardownEngine) Remove(context.Context, string, bool) error { e.removed++; return nil }

func newTeardownScenario(t *testing.T, eng *teardownEngine) (*scenario.Runner, *session.Session) {
	t.Helper()
	key := matrix.ScenarioKey{
		Distribution: "ubuntu",
		Version:      "24.04",
		Architecture: matrix.ArchX8664,
		Libc:         matrix.LibcGlibc,
	}
	sess, err := session.Create(context.Background(), eng, key, session.Options{WorkspaceDir: t.TempDir()})
	if err != nil {
		t.Fatalf("session.Create() error = %v", err)
	}
	runner := scenario.NewRunner(config.DefaultConfig(), results.NewRecorder(t.TempDir()))
	runner.Logger = log.New(io.Discard)
	return runner, sess
}

func TestRunScenarioDestroysSessionOnFailure(t *testing.T) {
	eng := &teardownEngine{}
	runner, sess := newTeardownScenario(t, eng)

	key := matrix.ScenarioKey{
		Distribution: "ubuntu", Version: "24.04",
		Architecture: matrix.ArchX8664, Libc: matrix.LibcGlibc,
	}
	if err := runScenario(context.Background(), runner, sess, key); err == nil {
		t.Fatal("runScenario() should surface the scenario failure")
	}

	if eng.stopped != 1 || eng.removed != 1 {
		t.Errorf("container not torn down on failure: %d stops, %d removes", eng.stopped, eng.removed)
	}
}

func TestRunScenarioDestroysSessionOnPanic(t *testing.T) {
	eng := &teardownEngine{panicOnExec: true}
	runner, sess := newTeardownScenario(t, eng)

	key := matrix.ScenarioKey{
		Distribution: "ubuntu", Version: "24.04",
		Architecture: matrix.ArchX8664, Libc: matrix.LibcGlibc,
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the scripted panic to propagate")
			}
		}()
		runScenario(context.Background(), runner, sess, key)
	}()

	if eng.stopped != 1 || eng.removed != 1 {
		t.Errorf("container not torn down on panic: %d stops, %d removes", eng.stopped, eng.removed)
	}
}

func TestConfiguredPriority(t *testing.T) {
	resetRunFlags()
	cfg.RuntimePriority = []string{"docker", "podman"}

	priority, err := configuredPriority()
	if err != nil {
		t.Fatalf("configuredPriority() error = %v", err)
	}
	if len(priority) != 2 || priority[0] != "docker" || priority[1] != "podman" {
		t.Errorf("priority = %v", priority)
	}

	cfg.RuntimePriority = []string{"containerd"}
	if _, err := configuredPriority(); err == nil {
		t.Error("invalid runtime in config should be rejected")
	}
}
