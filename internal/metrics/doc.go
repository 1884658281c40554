// Package metrics records step timings and outcomes of ezvcpkg runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs a nil check:
//
//	m := vcpkg.NewManager(cfg, deps).WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// ezvcpkg is a short-lived process, so there is no scrape endpoint. Instead the
// registry can be written to a node-exporter textfile collector directory with
// WriteTextfile after the run.
package metrics
