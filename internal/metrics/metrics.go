// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the pipeline.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It mirrors the storage abstraction pattern used elsewhere in the project
//     (e.g. storage.Warehouse), allowing the rest of the codebase to depend
//     only on this interface while keeping concrete metric systems isolated in
//     subpackages.
//
// The primary use case is instrumentation of the pipeline stages (ingest,
// transform, quality, load) without coupling the core logic to a specific
// metrics system such as Prometheus.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveDuration records a value in a latency/duration style metric.
	ObserveDuration(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)      {}
func (nopBackend) ObserveDuration(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                              { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures latency plus success/failure for one pipeline stage
// (ingest_crime, ingest_regions, ingest_geo, transform, quality, load).
func RecordStage(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("pipeline_stage_total", 1, lbls)
	backend.ObserveDuration("pipeline_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given job and kind.
//
// Typical kinds mirror the pipeline summary fields, e.g.:
//   - "ingested"
//   - "non_municipal_dropped"
//   - "facts_dropped"
//   - "facts_loaded"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordChecks increments the count of quality checks evaluated for the job.
func RecordChecks(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_quality_checks_total", float64(delta), Labels{
		"job": job,
	})
}
