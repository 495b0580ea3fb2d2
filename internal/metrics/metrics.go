// Package metrics records operational metrics for pipeline runs.
//
// The orchestrator reports two things: how each phase went (RecordPhase) and
// how many rows moved per table (RecordRows). Both funnel through a single
// pluggable Backend, so call sites never know whether the numbers reach a
// real metrics system or get dropped. The default backend discards
// everything, which keeps instrumentation safe on code paths that run with
// no metrics configuration at all.
package metrics

import "time"

// Labels carry the metric dimensions (run, phase, table, ...).
type Labels map[string]string

// Backend is the sink for metric emissions. Concrete implementations live in
// the subpackages and stay behind this interface so the rest of the project
// compiles without any particular metrics system linked in.
type Backend interface {
	// IncCounter adds delta to the named counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of the named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush delivers anything buffered to the remote system.
	Flush() error
}

// discard is the default backend. It drops everything.
type discard struct{}

func (discard) IncCounter(string, float64, Labels)       {}
func (discard) ObserveHistogram(string, float64, Labels) {}
func (discard) Flush() error                             { return nil }

var backend Backend = discard{}

// SetBackend swaps in a concrete backend. Nil is ignored.
func SetBackend(b Backend) {
	if b != nil {
		backend = b
	}
}

// Flush tells the current backend to deliver what it has buffered.
func Flush() error {
	return backend.Flush()
}

// RecordPhase emits the per-phase counter and latency observation. A nil err
// counts as success, anything else as failure.
func RecordPhase(run, phase string, err error, d time.Duration) {
	lbls := Labels{"run": run, "phase": phase, "status": "success"}
	if err != nil {
		lbls["status"] = "failure"
	}
	backend.IncCounter("etl_phase_total", 1, lbls)
	backend.ObserveHistogram("etl_phase_duration_seconds", d.Seconds(), lbls)
}

// RecordRows counts rows moved for a table. The kind mirrors the run summary
// fields ("extracted", "transformed", "loaded", "skipped"). Non-positive
// deltas are dropped.
func RecordRows(run, table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_rows_total", float64(delta), Labels{"run": run, "table": table, "kind": kind})
}
