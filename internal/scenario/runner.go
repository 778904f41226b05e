// SPDX-License-Identifier: MPL-2.0

package scenario

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"

	"qinstalltest/internal/config"
	"qinstalltest/internal/engine"
	"qinstalltest/internal/issue"
	"qinstalltest/internal/matrix"
	"qinstalltest/internal/results"
)

const (
	extractDir     = "/tmp/amazon-q-extract"
	installLogPath = "/tmp/amazon-q-install.log"
	bundleZipDir   = "/amazon-q-developer-cli/bundle/zip"

	installMethod = "zip"
)

type (
	// StepError identifies which scenario step failed.
	StepError struct {
		Step  string
		Cause error
	}

	// Runner executes installation scenarios and records their outcomes.
	Runner struct {
		Recorder   *results.Recorder
		Invocation config.InvocationMode
		User       string
		Logger     *log.Logger
	}

	// run carries the mutable state of one scenario through its steps.
	run struct {
		sh     engine.ShellExecutor
		key    matrix.ScenarioKey
		user   string
		home   string
		asRoot bool
		logger *log.Logger

		family     Family
		zipPath    string
		stageDir   string
		binaryPath string
		installLog string
	}
)

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Cause }

// NewRunner builds a Runner from the loaded configuration.
func NewRunner(cfg *config.Config, rec *results.Recorder) *Runner {
	return &Runner{
		Recorder:   rec,
		Invocation: cfg.InstallerInvocation,
		User:       cfg.InstallUser,
		Logger:     log.NewWithOptions(os.Stderr, log.Options{Prefix: "scenario"}),
	}
}

// Skip records key as skipped with the given reason. Skipped scenarios
// never reach a container, so this is the only artifact they leave.
func (rn *Runner) Skip(key matrix.ScenarioKey, reason string) error {
	rec := rn.newRecord(key)
	rec.Status = results.StatusSkip
	rec.Error = reason

	rn.Logger.Info("skipping scenario", "key", key.String(), "reason", reason)
	if _, err := rn.Recorder.Write(rec); err != nil {
		return fmt.Errorf("failed to record skip: %w", err)
	}
	return nil
}

// Fail records key as failed before any step ran, used when the container
// itself could not be provisioned.
func (rn *Runner) Fail(key matrix.ScenarioKey, cause error) error {
	rec := rn.newRecord(key)
	rec.Status = results.StatusFail
	rec.Error = cause.Error()

	if _, err := rn.Recorder.Write(rec); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

// Run executes the installation scenario for key against sh, which is
// expected to be a live container session. The outcome is recorded before
// any error is returned, so callers get both the persisted record and the
// error value.
func (rn *Runner) Run(ctx context.Context, sh engine.ShellExecutor, key matrix.ScenarioKey) error {
	start := time.Now()
	rec := rn.newRecord(key)

	r := &run{
		sh:     sh,
		key:    key,
		user:   rn.User,
		home:   "/home/" + rn.User,
		asRoot: rn.Invocation == config.InvocationRoot,
		logger: rn.Logger.With("key", key.String()),
	}

	err := r.execute(ctx)

	rec.ExecutionTime = time.Since(start).Seconds()
	rec.ZipFile = r.zipPath
	rec.BinaryPath = r.binaryPath
	rec.InstallLogContent = r.installLog
	rec.User = rn.User
	if err != nil {
		rec.Status = results.StatusFail
		rec.Error = err.Error()
	} else {
		rec.Status = results.StatusPass
	}

	// Recording failures must not mask the scenario outcome.
	if _, werr := rn.Recorder.Write(rec); werr != nil {
		rn.Logger.Error("failed to write result record", "key", key.String(), "error", werr)
	}
	return err
}

func (rn *Runner) newRecord(key matrix.ScenarioKey) results.ScenarioRecord {
	return results.ScenarioRecord{
		Distribution:       key.Distribution,
		Version:            key.Version,
		Architecture:       key.Architecture.String(),
		LibcVariant:        key.Libc.String(),
		Test:               fmt.Sprintf("%s[%s]", results.TestName, key.Slug()),
		Timestamp:          time.Now().Format(time.RFC3339),
		InstallationMethod: installMethod,
	}
}

func (r *run) execute(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"verify installer artifact", r.verifyArtifact},
		{"provision packages", r.provisionPackages},
		{"set up install user", r.setupUser},
		{"stage installer", r.stageInstaller},
		{"run install script", r.runInstaller},
		{"verify installed binary", r.verifyBinary},
	}

	for _, step := range steps {
		r.logger.Info("step", "name", step.name)
		if err := step.fn(ctx); err != nil {
			return &StepError{Step: step.name, Cause: err}
		}
	}
	return nil
}

// verifyArtifact checks the installer zip is present in the mounted bundle.
func (r *run) verifyArtifact(ctx context.Context) error {
	r.zipPath = bundleZipDir + "/" + r.key.ArtifactFilename()

	res, err := r.sh.ExecShell(ctx, "ls -la "+quote(r.zipPath))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return issue.NewErrorContext().
			WithOperation("locate installer zip").
			WithResource(r.zipPath).
			WithSuggestion("Download installer bundles first with `qinstalltest fetch <base-url>`").
			WithSuggestion("Make sure the workspace directory contains bundle/zip/").
			BuildError()
	}
	return nil
}

// provisionPackages installs the tools the scenario needs. The batch
// install is attempted first; on failure each package is retried
// one-by-one so a single broken package cannot block the rest, then the
// two commands the scenario cannot do without are verified directly.
func (r *run) provisionPackages(ctx context.Context) error {
	family, err := FamilyFor(r.key.Distribution)
	if err != nil {
		return err
	}
	r.family = family
	pkgs := family.Packages()

	res, err := r.sh.ExecShell(ctx, family.InstallCommand(pkgs))
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		r.logger.Warn("batch package install failed, retrying one-by-one", "exit_code", res.ExitCode)
		for _, pkg := range pkgs {
			one, err := r.sh.ExecShell(ctx, family.InstallOneCommand(pkg))
			if err != nil {
				return err
			}
			if one.ExitCode != 0 {
				r.logger.Warn("package install failed", "package", pkg, "exit_code", one.ExitCode)
			}
		}
	}

	if post := family.PostSetupCommand(); post != "" {
		if _, err := r.sh.ExecShell(ctx, post); err != nil {
			return err
		}
	}

	check, err := r.sh.ExecShell(ctx, "command -v unzip && command -v sudo")
	if err != nil {
		return err
	}
	if check.ExitCode != 0 {
		return fmt.Errorf("required packages unavailable after provisioning: %s", check.OutputString())
	}
	return nil
}

// setupUser creates the unprivileged install user with passwordless sudo.
func (r *run) setupUser(ctx context.Context) error {
	group := r.family.SudoGroup()
	cmds := []string{
		// useradd on glibc distros, adduser on busybox/alpine.
		fmt.Sprintf("useradd -m -s /bin/bash %[1]s || adduser -D -s /bin/bash %[1]s", r.user),
		fmt.Sprintf("usermod -aG %[2]s %[1]s || addgroup %[1]s %[2]s || adduser %[1]s %[2]s || true", r.user, group),
		fmt.Sprintf("echo '%%%s ALL=(ALL) NOPASSWD:ALL' > /etc/sudoers.d/nopasswd && chmod 440 /etc/sudoers.d/nopasswd", group),
	}

	for _, cmd := range cmds {
		res, err := r.sh.ExecShell(ctx, cmd)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("user setup command failed (exit %d): %s", res.ExitCode, cmd)
		}
	}
	return nil
}

// stageInstaller extracts the zip and copies the install directory into
// the user's home, owned by the user.
func (r *run) stageInstaller(ctx context.Context) error {
	// The extract dir is owned by the user so the least-privileged rung of
	// the ladder below can write into it.
	mkdirCmd := fmt.Sprintf("mkdir -p %[1]s && chown %[2]s:%[2]s %[1]s", extractDir, r.user)
	res, err := r.sh.ExecShell(ctx, mkdirCmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to create extraction directory (exit %d)", res.ExitCode)
	}

	// Least privilege first: as the user, with sudo, then as root with a
	// chown to hand ownership back.
	unzipCmd := fmt.Sprintf("unzip -o %s -d %s", quote(r.zipPath), extractDir)
	if _, err := engine.RunStrategies(ctx, r.sh, []engine.Strategy{
		{Name: "unzip-as-user", Command: fmt.Sprintf("su - %s -c %s", r.user, quote(unzipCmd))},
		{Name: "unzip-with-sudo", Command: "sudo -n " + unzipCmd},
		{Name: "unzip-as-root", Command: fmt.Sprintf("%s && chown -R %[2]s:%[2]s %[3]s", unzipCmd, r.user, extractDir)},
	}); err != nil {
		return fmt.Errorf("failed to extract installer zip: %w", err)
	}

	find, err := r.sh.ExecShell(ctx, "find "+extractDir+" -name install.sh")
	if err != nil {
		return err
	}
	script := firstLine(find.OutputString())
	if script == "" {
		return fmt.Errorf("install.sh not found in extracted files")
	}

	if res, err = r.sh.ExecShell(ctx, "chmod +x "+quote(script)); err != nil {
		return err
	} else if res.ExitCode != 0 {
		return fmt.Errorf("failed to make install script executable (exit %d)", res.ExitCode)
	}

	// Transcript only; the script content is useful when triaging later.
	if _, err := r.sh.ExecShell(ctx, "head -10 "+quote(script)); err != nil {
		return err
	}

	installDir := dirOf(script)
	r.stageDir = r.home + "/" + baseOf(installDir)

	copyCmd := fmt.Sprintf("cp -r %s %s/ && chown -R %s:%s %s",
		quote(installDir), r.home, r.user, r.user, quote(r.stageDir))
	res, err = r.sh.ExecShell(ctx, copyCmd)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to stage installer into %s (exit %d)", r.stageDir, res.ExitCode)
	}
	return nil
}

// runInstaller executes install.sh, capturing its traced output to a log
// file inside the container. Fedora gets one bounded retry after
// installing libxcrypt-compat, which its minimal images are missing.
func (r *run) runInstaller(ctx context.Context) error {
	res, err := r.sh.ExecShell(ctx, r.installCommand())
	if err != nil {
		return err
	}

	if res.ExitCode != 0 && r.key.Distribution == "fedora" {
		r.logger.Warn("install failed on fedora, retrying with libxcrypt-compat", "exit_code", res.ExitCode)
		if _, err := r.sh.ExecShell(ctx, r.family.InstallOneCommand("libxcrypt-compat")); err != nil {
			return err
		}
		if res, err = r.sh.ExecShell(ctx, r.installCommand()); err != nil {
			return err
		}
	}

	r.captureInstallLog(ctx)

	if res.ExitCode != 0 {
		r.collectDiagnostics(ctx)
		return fmt.Errorf("install script failed with exit code %d", res.ExitCode)
	}
	return nil
}

func (r *run) installCommand() string {
	script := fmt.Sprintf("cd %s && bash -x ./install.sh --no-confirm > %s 2>&1",
		quote(r.stageDir), installLogPath)
	if r.asRoot {
		return script + fmt.Sprintf(" && chown -R %[1]s:%[1]s %[2]s", r.user, quote(r.home))
	}
	return fmt.Sprintf("su - %s -c %s", r.user, quote(script))
}

func (r *run) captureInstallLog(ctx context.Context) {
	res, err := r.sh.ExecShell(ctx, "cat "+installLogPath)
	if err != nil || res.ExitCode != 0 {
		return
	}
	r.installLog = res.OutputString()
}

// collectDiagnostics gathers triage context after a failed install. Every
// command is best-effort; the transcript is the product.
func (r *run) collectDiagnostics(ctx context.Context) {
	r.logger.Error("install script failed, collecting diagnostics")
	for _, cmd := range []string{
		"ls -la " + quote(r.stageDir),
		"file " + quote(r.stageDir+"/install.sh"),
		"head -20 " + quote(r.stageDir+"/install.sh"),
		fmt.Sprintf("su - %s -c 'env | sort'", r.user),
		fmt.Sprintf("grep -i 'error\\|fail' %s | head -20", installLogPath),
		"ldd --version",
	} {
		if _, err := r.sh.ExecShell(ctx, cmd); err != nil {
			return
		}
	}
}

// verifyBinary locates the installed q binary, makes a copy the user can
// reach on PATH, and invokes it as the user.
func (r *run) verifyBinary(ctx context.Context) error {
	searches := []string{
		fmt.Sprintf("find %s -name q -type f 2>/dev/null || true", quote(r.home)),
		"find /usr/local/bin /usr/bin /opt -name q -type f 2>/dev/null || true",
		"find / -name q -type f 2>/dev/null | head -5 || true",
	}

	var found string
	for _, cmd := range searches {
		res, err := r.sh.ExecShell(ctx, cmd)
		if err != nil {
			return err
		}
		if found = firstLine(res.OutputString()); found != "" {
			break
		}
	}
	if found == "" {
		return fmt.Errorf("q binary not found anywhere after installation")
	}
	r.logger.Info("found installed binary", "path", found)

	localBin := r.home + "/.local/bin"
	stage := fmt.Sprintf("mkdir -p %[1]s && cp %[2]s %[1]s/ && chmod +rx %[1]s/q && chown -R %[3]s:%[3]s %[1]s",
		localBin, quote(found), r.user)
	res, err := r.sh.ExecShell(ctx, stage)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to stage binary into %s (exit %d)", localBin, res.ExitCode)
	}

	pathLine := `echo 'export PATH="$HOME/.local/bin:$PATH"' >> ` + r.home + "/.bashrc"
	if _, err := r.sh.ExecShell(ctx, pathLine); err != nil {
		return err
	}

	r.binaryPath = localBin + "/q"
	version, err := r.sh.ExecShell(ctx, fmt.Sprintf("su - %s -c %s", r.user, quote(r.binaryPath+" --version")))
	if err != nil {
		return err
	}
	if version.ExitCode != 0 {
		return fmt.Errorf("installed binary failed to run (exit %d): %s",
			version.ExitCode, strings.TrimSpace(version.OutputString()))
	}
	r.logger.Info("binary verified", "version", strings.TrimSpace(version.OutputString()))
	return nil
}

// quote shell-quotes s for interpolation into `sh -c` scripts.
func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		// Only possible for strings with control bytes; none of our
		// inputs carry them, but fail closed with single quotes.
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return q
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func dirOf(path string) string {
	if i := strings.LastIndex(path, "/"); i > 0 {
		return path[:i]
	}
	return "/"
}

func baseOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
