// Package toolchain drives the vcpkg executables inside an installation root:
// the bootstrap script that builds the vcpkg tool and vcpkg install itself.
package toolchain

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/logfields"
)

// CommandRunner executes an external command in dir.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner is a CommandRunner using os/exec. Output goes to the configured writers.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Toolchain runs vcpkg commands for one installation root.
type Toolchain struct {
	root    string
	triplet string
	goos    string
	runner  CommandRunner
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithTriplet passes --triplet to every install.
func WithTriplet(triplet string) Option { return func(t *Toolchain) { t.triplet = triplet } }

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option { return func(t *Toolchain) { t.runner = r } }

// WithOS overrides the target operating system used to pick script and executable names.
func WithOS(goos string) Option { return func(t *Toolchain) { t.goos = goos } }

// New returns a Toolchain rooted at root. Subprocess output is forwarded to stdout/stderr.
func New(root string, opts ...Option) *Toolchain {
	t := &Toolchain{
		root:   root,
		goos:   runtime.GOOS,
		runner: ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Root returns the installation root.
func (t *Toolchain) Root() string { return t.root }

// ExecutablePath is the location of the vcpkg tool produced by bootstrapping.
func (t *Toolchain) ExecutablePath() string {
	if t.goos == "windows" {
		return filepath.Join(t.root, "vcpkg.exe")
	}
	return filepath.Join(t.root, "vcpkg")
}

// ScriptPath is the bootstrap script for the target OS.
func (t *Toolchain) ScriptPath() string {
	if t.goos == "windows" {
		return filepath.Join(t.root, "bootstrap-vcpkg.bat")
	}
	return filepath.Join(t.root, "bootstrap-vcpkg.sh")
}

// HasExecutable reports whether the vcpkg tool exists.
func (t *Toolchain) HasExecutable() bool {
	info, err := os.Stat(t.ExecutablePath())
	return err == nil && !info.IsDir()
}

// Bootstrap builds the vcpkg tool with telemetry disabled.
func (t *Toolchain) Bootstrap(ctx context.Context) error {
	script := t.ScriptPath()
	if _, err := os.Stat(script); err != nil {
		return errors.BootstrapError("bootstrap script missing").
			WithCause(err).
			WithContext("script", script).
			Build()
	}

	name, args := script, []string{"-disableMetrics"}
	if t.goos == "windows" {
		name, args = "cmd.exe", []string{"/c", script, "-disableMetrics"}
	}
	slog.Info("Bootstrapping vcpkg", logfields.Root(t.root))
	if err := t.runner.Run(ctx, t.root, name, args...); err != nil {
		return errors.BootstrapError("bootstrap script failed").
			WithCause(err).
			WithContext("script", script).
			WithContext("exit_code", exitCode(err)).
			Build()
	}
	if !t.HasExecutable() {
		return errors.BootstrapError("bootstrap did not produce the vcpkg executable").
			WithContext("path", t.ExecutablePath()).
			Build()
	}
	return nil
}

// Install runs vcpkg install for one package. vcpkg treats already installed packages as a no-op.
func (t *Toolchain) Install(ctx context.Context, pkg string) error {
	args := []string{"install", pkg}
	if t.triplet != "" {
		args = append(args, "--triplet", t.triplet)
	}
	slog.Info("Installing package", logfields.Package(pkg), slog.String("triplet", t.triplet))
	if err := t.runner.Run(ctx, t.root, t.ExecutablePath(), args...); err != nil {
		return errors.PackageError(fmt.Sprintf("vcpkg install %s failed", pkg)).
			WithCause(err).
			WithContext("package", pkg).
			WithContext("exit_code", exitCode(err)).
			Build()
	}
	return nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
