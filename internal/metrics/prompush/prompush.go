// Package prompush pushes pipeline metrics to a Prometheus Pushgateway.
//
// A batch pipeline exits long before a scraper would come around, so instead
// of serving /metrics the backend collects everything in a private registry
// and pushes that registry once per run. Emissions from the generic metrics
// API are routed by metric name onto fixed collectors created at
// construction time. The run id stays out of the Prometheus label set to
// keep cardinality bounded; the Pushgateway job group identifies the
// pipeline instead.
package prompush

import (
	"fmt"

	"logiflow/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend accumulates metrics in a registry and pushes them on Flush.
type Backend struct {
	gatewayURL string
	jobName    string

	reg *prometheus.Registry

	phaseCounter  *prometheus.CounterVec
	phaseDuration *prometheus.SummaryVec
	rowCounter    *prometheus.CounterVec
}

// NewBackend builds a backend that pushes to the given Pushgateway URL under
// the given job group. An empty jobName defaults to "logiflow".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: missing gateway URL")
	}
	if jobName == "" {
		jobName = "logiflow"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		phaseCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_phase_total",
			Help: "Pipeline phase executions by phase and status.",
		}, []string{"phase", "status"}),
		phaseDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       "etl_phase_duration_seconds",
			Help:       "Pipeline phase latency in seconds by phase and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"phase", "status"}),
		rowCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_rows_total",
			Help: "Rows moved per table, broken down by kind (extracted, transformed, loaded, skipped).",
		}, []string{"table", "kind"}),
	}

	for _, c := range []prometheus.Collector{b.phaseCounter, b.phaseDuration, b.rowCounter} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

// IncCounter routes a counter emission to its collector by metric name.
// Names the backend does not know are dropped.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "etl_phase_total":
		if b.phaseCounter != nil {
			b.phaseCounter.WithLabelValues(labels["phase"], labels["status"]).Add(delta)
		}
	case "etl_rows_total":
		if b.rowCounter != nil {
			b.rowCounter.WithLabelValues(labels["table"], labels["kind"]).Add(delta)
		}
	}
}

// ObserveHistogram records a phase latency sample. Other metric names are
// dropped.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "etl_phase_duration_seconds" || b.phaseDuration == nil {
		return
	}
	b.phaseDuration.WithLabelValues(labels["phase"], labels["status"]).Observe(value)
}

// Flush pushes the accumulated registry to the Pushgateway, replacing the
// metric group for this job.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}
