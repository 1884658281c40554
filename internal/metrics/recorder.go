package metrics

import "time"

// ResultLabel enumerates step result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// RunOutcomeLabel is the final status of a whole run.
type RunOutcomeLabel string

const (
	RunOutcomeUpToDate RunOutcomeLabel = "up_to_date"
	RunOutcomeUpdated  RunOutcomeLabel = "updated"
	RunOutcomeFailed   RunOutcomeLabel = "failed"
	RunOutcomeCanceled RunOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for run and step metrics.
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	IncStepResult(step string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcomeLabel)
	ObserveLockWait(d time.Duration)
	IncPackageInstall(pkg string, success bool)
	IncBuildDirsRemoved(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)             {}
func (NoopRecorder) ObserveLockWait(time.Duration)             {}
func (NoopRecorder) IncPackageInstall(string, bool)            {}
func (NoopRecorder) IncBuildDirsRemoved(int)                   {}
