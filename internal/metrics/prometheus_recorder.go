package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	stepDuration    *prom.HistogramVec
	stepResults     *prom.CounterVec
	runDuration     prom.Histogram
	runOutcome      *prom.CounterVec
	lockWait        prom.Histogram
	packageInstalls *prom.CounterVec
	buildDirRemoved prom.Counter
	lastRun         prom.Gauge
}

// stepBuckets cover sub-second config writes up to hour long package builds.
var stepBuckets = []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800, 3600}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.stepDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "ezvcpkg",
		Name:      "step_duration_seconds",
		Help:      "Duration of individual preparation steps",
		Buckets:   stepBuckets,
	}, []string{"step"})
	pr.stepResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "ezvcpkg",
		Name:      "step_results_total",
		Help:      "Step result counts by outcome",
	}, []string{"step", "result"})
	pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "ezvcpkg",
		Name:      "run_duration_seconds",
		Help:      "Total run duration including lock wait",
		Buckets:   stepBuckets,
	})
	pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "ezvcpkg",
		Name:      "run_outcomes_total",
		Help:      "Run outcomes by final status",
	}, []string{"outcome"})
	pr.lockWait = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "ezvcpkg",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for the installation lock",
		Buckets:   stepBuckets,
	})
	pr.packageInstalls = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "ezvcpkg",
		Name:      "package_installs_total",
		Help:      "vcpkg install invocations by package and result",
	}, []string{"package", "result"})
	pr.buildDirRemoved = prom.NewCounter(prom.CounterOpts{
		Namespace: "ezvcpkg",
		Name:      "build_dirs_removed_total",
		Help:      "Out of date build directories removed",
	})
	pr.lastRun = prom.NewGauge(prom.GaugeOpts{
		Namespace: "ezvcpkg",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})
	reg.MustRegister(pr.stepDuration, pr.stepResults, pr.runDuration, pr.runOutcome,
		pr.lockWait, pr.packageInstalls, pr.buildDirRemoved, pr.lastRun)
	return pr
}

// Registry returns the registry the metrics were registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration) {
	if p == nil {
		return
	}
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(step string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) ObserveLockWait(d time.Duration) {
	if p == nil {
		return
	}
	p.lockWait.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPackageInstall(pkg string, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.packageInstalls.WithLabelValues(pkg, res).Inc()
}

func (p *PrometheusRecorder) IncBuildDirsRemoved(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.buildDirRemoved.Add(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path for the
// node-exporter textfile collector. The parent directory is created if needed.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
