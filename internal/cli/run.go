// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"qinstalltest/internal/engine"
	"qinstalltest/internal/issue"
	"qinstalltest/internal/matrix"
	"qinstalltest/internal/results"
	"qinstalltest/internal/scenario"
	"qinstalltest/internal/session"
)

var (
	runtimeFlag        string
	distributionsFlag  []string
	architecturesFlag  []string
	libcVariantsFlag   []string
	noSummaryFlag      bool
	keepContainersFlag bool
	parallelFlag       int

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run ZIP installation scenarios across the distribution matrix",
		Long: `Run executes one installation scenario per matrix cell: it provisions a
container for the distribution, stages the installer zip from the mounted
bundle directory, runs install.sh as an unprivileged user, and verifies the
installed binary. Every scenario leaves a JSON record under the results
directory; a summary is generated at the end unless --no-summary is given.

Exits non-zero when any scenario fails. Skipped scenarios (known-unsupported
combinations) do not affect the exit code.`,
		RunE: runMatrix,
	}
)

func init() {
	runCmd.Flags().StringVar(&runtimeFlag, "runtime", "", "container runtime to use (docker, finch, podman); default auto-detect")
	runCmd.Flags().StringSliceVar(&distributionsFlag, "distributions", nil, "distributions to test, as name or name:version (default all)")
	runCmd.Flags().StringSliceVar(&architecturesFlag, "architectures", nil, "architectures to test: x86_64, arm64/aarch64 (default all)")
	runCmd.Flags().StringSliceVar(&libcVariantsFlag, "libc-variants", nil, "libc variants to test: glibc, musl (default all)")
	runCmd.Flags().BoolVar(&noSummaryFlag, "no-summary", false, "skip summary generation after the run")
	runCmd.Flags().BoolVar(&keepContainersFlag, "keep-containers", false, "keep containers running after each scenario for inspection")
	runCmd.Flags().IntVar(&parallelFlag, "parallel", 1, "number of scenarios to run concurrently")
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	if parallelFlag > 1 {
		return errors.New("--parallel is not implemented; scenarios run sequentially")
	}

	keys, err := selectScenarios()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.New("selection matches no matrix cells")
	}

	eng, err := resolveEngine()
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "run"})
	logger.Info("starting test matrix", "scenarios", len(keys), "runtime", eng.Name())

	recorder := results.NewRecorder(cfg.ResultsDir)
	runner := scenario.NewRunner(cfg, recorder)

	ctx := cmd.Context()
	failed := 0
	for i, key := range keys {
		logger.Info("scenario", "n", fmt.Sprintf("%d/%d", i+1, len(keys)), "key", key.String())

		if reason, known := matrix.KnownFailureReason(key); known {
			if err := runner.Skip(key, reason); err != nil {
				return err
			}
			continue
		}

		sess, err := session.Create(ctx, eng, key, session.Options{
			WorkspaceDir:  cfg.WorkspaceDir,
			PullRetries:   cfg.PullRetries,
			KeepContainer: keepContainersFlag || cfg.KeepContainers,
		})
		if err != nil {
			logger.Error("could not provision container", "key", key.String(), "error", err)
			if rerr := runner.Fail(key, err); rerr != nil {
				return rerr
			}
			failed++
			continue
		}

		if err := runScenario(ctx, runner, sess, key); err != nil {
			fmt.Fprintln(os.Stderr, ErrorStyle.Render("FAIL ")+key.String()+": "+formatErrorForDisplay(err, verbose))
			failed++
		} else {
			fmt.Fprintln(os.Stderr, SuccessStyle.Render("PASS ")+key.String())
		}
	}

	if !noSummaryFlag {
		summary, err := results.Aggregate(cfg.ResultsDir, logger)
		if err != nil {
			return err
		}
		summary.Report(os.Stdout)
	}

	if failed > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d scenario(s) failed", failed)}
	}
	return nil
}

// runScenario owns the session for the duration of one scenario; teardown
// is deferred so the container is released on every exit path, including
// a panicking step.
func runScenario(ctx context.Context, runner *scenario.Runner, sess *session.Session, key matrix.ScenarioKey) error {
	defer sess.Destroy(ctx)
	return runner.Run(ctx, sess, key)
}

// selectScenarios turns the selection flags into the list of matrix cells
// to run. A fully-pinned selection (one distribution:version, one
// architecture, one variant) collapses to exactly that cell, bypassing the
// glibc gating; anything broader expands the matrix and filters it.
func selectScenarios() ([]matrix.ScenarioKey, error) {
	specs, err := selectSpecs()
	if err != nil {
		return nil, err
	}

	libcs, err := parseLibcVariants(libcVariantsFlag)
	if err != nil {
		return nil, err
	}

	if filter, ok := singleCellFilter(libcs); ok {
		return matrix.Scenarios(specs, filter)
	}

	keys, err := matrix.Expand(specs)
	if err != nil {
		return nil, err
	}
	if len(libcs) == 0 {
		return keys, nil
	}

	var out []matrix.ScenarioKey
	for _, key := range keys {
		for _, v := range libcs {
			if key.Libc == v {
				out = append(out, key)
				break
			}
		}
	}
	return out, nil
}

// selectSpecs filters the default distro table by the --distributions and
// --architectures flags.
func selectSpecs() ([]matrix.DistroSpec, error) {
	archs, err := parseArchitectures(architecturesFlag)
	if err != nil {
		return nil, err
	}

	specs := matrix.Distros
	if len(distributionsFlag) > 0 {
		specs = nil
		for _, entry := range distributionsFlag {
			name, version, _ := strings.Cut(entry, ":")
			matched := false
			for _, spec := range matrix.Distros {
				if spec.Name != name || (version != "" && spec.Version != version) {
					continue
				}
				specs = append(specs, spec)
				matched = true
			}
			if !matched {
				return nil, fmt.Errorf("unknown distribution %q (see --help for the supported matrix)", entry)
			}
		}
	}

	if len(archs) == 0 {
		return specs, nil
	}
	var out []matrix.DistroSpec
	for _, spec := range specs {
		for _, a := range archs {
			if spec.Arch == a {
				out = append(out, spec)
				break
			}
		}
	}
	return out, nil
}

// singleCellFilter reports whether the flags pin exactly one matrix cell.
func singleCellFilter(libcs []matrix.LibcVariant) (matrix.Filter, bool) {
	if len(distributionsFlag) != 1 || len(architecturesFlag) != 1 || len(libcs) != 1 {
		return matrix.Filter{}, false
	}
	name, version, ok := strings.Cut(distributionsFlag[0], ":")
	if !ok {
		return matrix.Filter{}, false
	}
	return matrix.Filter{
		Distribution: name,
		Version:      version,
		Architecture: matrix.NormalizeArchitecture(architecturesFlag[0]),
		Libc:         libcs[0],
	}, true
}

func parseArchitectures(values []string) ([]matrix.Architecture, error) {
	var out []matrix.Architecture
	for _, v := range values {
		a := matrix.NormalizeArchitecture(v)
		if err := a.Validate(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func parseLibcVariants(values []string) ([]matrix.LibcVariant, error) {
	var out []matrix.LibcVariant
	for _, v := range values {
		variant := matrix.LibcVariant(v)
		if err := variant.Validate(); err != nil {
			return nil, err
		}
		out = append(out, variant)
	}
	return out, nil
}

// resolveEngine picks the container runtime: --runtime selects one
// explicitly, otherwise the configured priority list is probed.
func resolveEngine() (engine.Engine, error) {
	if runtimeFlag != "" {
		t := engine.EngineType(runtimeFlag)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		e, err := engine.New(t)
		if err != nil {
			return nil, err
		}
		if !e.Available() {
			return nil, issue.NewErrorContext().
				WithOperation("use container runtime").
				WithResource(runtimeFlag).
				WithSuggestion("Start the runtime daemon/VM and retry").
				WithSuggestion("Omit --runtime to auto-detect an available runtime").
				BuildError()
		}
		return e, nil
	}

	priority, err := configuredPriority()
	if err != nil {
		return nil, err
	}
	return engine.Detect(priority)
}

func configuredPriority() ([]engine.EngineType, error) {
	return engine.ParsePriority(strings.Join(cfg.RuntimePriority, ","))
}
