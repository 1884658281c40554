package vcpkg

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/logfields"
	"git.home.luguber.info/inful/ezvcpkg/internal/metrics"
	"git.home.luguber.info/inful/ezvcpkg/internal/observability"
)

// Step names as used in logs and metrics labels.
const (
	StepCheck             = "is_up_to_date"
	StepBootstrap         = "bootstrap"
	StepWriteTag          = "write_tag"
	StepSetupDependencies = "setup_dependencies"
	StepCleanBuilds       = "clean_builds"
	StepWriteConfig       = "write_config"
)

// stepTitles are printed in the "<title> took N.NNN secs" progress lines. Build
// log parsers match on these strings.
var stepTitles = map[string]string{
	StepCheck:             "Checking installation",
	StepBootstrap:         "Bootstrapping",
	StepWriteTag:          "Writing tag",
	StepSetupDependencies: "Setting up dependencies",
	StepCleanBuilds:       "Cleaning out of date builds",
	StepWriteConfig:       "Writing CMake configuration",
}

// errStepSkipped marks a step that had nothing to do.
var errStepSkipped = stderrors.New("step skipped")

type stepFunc func(ctx context.Context) error

// Result summarizes a Run.
type Result struct {
	Root             string
	Commit           string
	UpToDate         bool // tag matched before the run
	Bootstrapped     bool // bootstrap script ran
	RemovedBuildDirs []string
	ConfigPath       string
	ConfigChanged    bool
	LockWait         time.Duration
	Duration         time.Duration
}

// Run acquires the installation lock and executes all steps in order.
func (m *Manager) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	m.reset()
	ctx = observability.WithLockPath(ctx, m.opts.LockPath)

	res := &Result{Root: m.root, Commit: m.opts.Commit}
	err := m.withLock(ctx, func(ctx context.Context, waited time.Duration) error {
		res.LockWait = waited
		return m.runSteps(ctx)
	})

	res.UpToDate = m.upToDate
	res.Bootstrapped = m.bootstrap
	res.RemovedBuildDirs = m.removed
	res.ConfigPath, res.ConfigChanged = m.config, m.changed
	res.Duration = time.Since(start)

	m.recorder.ObserveRunDuration(res.Duration)
	m.recorder.IncRunOutcome(outcomeFor(err, res))
	if err != nil {
		return res, err
	}
	observability.InfoContext(ctx, "vcpkg ready",
		logfields.Root(m.root),
		logfields.Commit(m.opts.Commit),
		logfields.Packages(m.opts.Packages),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

// withLock creates the lock directory and runs fn under the lock, passing how
// long acquisition took.
func (m *Manager) withLock(ctx context.Context, fn func(ctx context.Context, waited time.Duration) error) error {
	if err := os.MkdirAll(filepath.Dir(m.opts.LockPath), 0o755); err != nil {
		return errors.LockError("failed to create lock directory").
			WithCause(err).
			WithContext("path", m.opts.LockPath).
			Build()
	}
	lockStart := time.Now()
	return m.locker.With(ctx, m.opts.LockPath, func(ctx context.Context) error {
		waited := time.Since(lockStart)
		m.recorder.ObserveLockWait(waited)
		observability.DebugContext(ctx, "Holding installation lock", logfields.Waited(waited))
		return fn(ctx, waited)
	})
}

func (m *Manager) runSteps(ctx context.Context) error {
	steps := []struct {
		name string
		fn   stepFunc
	}{
		{StepCheck, func(context.Context) error {
			m.upToDate = m.IsUpToDate()
			return nil
		}},
		{StepBootstrap, func(ctx context.Context) error {
			if !m.needsBootstrap(m.upToDate) {
				return errStepSkipped
			}
			return m.Bootstrap(ctx)
		}},
		{StepWriteTag, func(context.Context) error { return m.WriteTag() }},
		{StepSetupDependencies, m.SetupDependencies},
		{StepCleanBuilds, func(context.Context) error { return m.CleanBuilds() }},
		{StepWriteConfig, func(context.Context) error { return m.WriteConfig() }},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		if err := m.timed(ctx, s.name, s.fn); err != nil {
			if ctx.Err() != nil {
				return canceled(err)
			}
			return err
		}
	}
	return nil
}

// timed runs one step, printing its duration and recording metrics.
func (m *Manager) timed(ctx context.Context, step string, fn stepFunc) error {
	ctx = observability.WithStep(ctx, step)
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	_, _ = fmt.Fprintf(m.out, "%s took %.3f secs\n", stepTitles[step], d.Seconds())
	m.recorder.ObserveStepDuration(step, d)

	switch {
	case stderrors.Is(err, errStepSkipped):
		m.recorder.IncStepResult(step, metrics.ResultSkipped)
		observability.DebugContext(ctx, "Step skipped")
		return nil
	case err != nil && ctx.Err() != nil:
		m.recorder.IncStepResult(step, metrics.ResultCanceled)
	case err != nil:
		m.recorder.IncStepResult(step, metrics.ResultFailed)
		observability.ErrorContext(ctx, "Step failed", logfields.Error(err),
			logfields.DurationMS(float64(d.Milliseconds())))
	default:
		m.recorder.IncStepResult(step, metrics.ResultSuccess)
		observability.DebugContext(ctx, "Step finished", logfields.DurationMS(float64(d.Milliseconds())))
	}
	return err
}

func (m *Manager) reset() {
	m.tag = nil
	m.upToDate, m.bootstrap, m.changed = false, false, false
	m.removed = nil
	m.config = ""
}

func canceled(err error) error {
	if errors.HasCategory(err, errors.CategoryRuntime) {
		return err
	}
	return errors.NewError(errors.CategoryRuntime, "run canceled").WithCause(err).Build()
}

func outcomeFor(err error, res *Result) metrics.RunOutcomeLabel {
	switch {
	case err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		return metrics.RunOutcomeCanceled
	case err != nil:
		return metrics.RunOutcomeFailed
	case res.UpToDate && !res.Bootstrapped:
		return metrics.RunOutcomeUpToDate
	default:
		return metrics.RunOutcomeUpdated
	}
}
