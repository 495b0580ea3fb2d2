// Package datadog sends pipeline metrics to a DogStatsD endpoint.
//
// It adapts metrics.Backend to the official statsd client: labels become
// "key:value" tags, counters map to Count and histograms to Histogram. The
// rest of the project sees only the metrics.Backend interface, so swapping
// this for the Pushgateway backend is a config change.
package datadog

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/DataDog/datadog-go/v5/statsd"

	"logiflow/internal/metrics"
)

// Config holds DogStatsD client settings.
type Config struct {
	// Addr is the agent address, e.g. "127.0.0.1:8125" or
	// "unix:///var/run/datadog/dsd.socket".
	Addr string

	// Namespace prefixes every metric name. A trailing dot is added when
	// missing, so "logiflow" and "logiflow." are equivalent.
	Namespace string

	// GlobalTags are attached to every metric, e.g. {"env:prod"}.
	GlobalTags []string
}

// Backend forwards metrics to a DogStatsD agent. Install it once via
// metrics.SetBackend; emission is fire-and-forget.
type Backend struct {
	client *statsd.Client

	closeOnce sync.Once
	closeErr  error
}

// NewBackend dials the DogStatsD endpoint in cfg. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}

	opts := []statsd.Option{}
	if ns := normalizeNamespace(cfg.Namespace); ns != "" {
		opts = append(opts, statsd.WithNamespace(ns))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter implements metrics.Backend. Fractional deltas round to the
// nearest count, since DogStatsD counters are integral.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	b.client.Count(name, int64(math.Round(delta)), tags(labels), 1)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	b.client.Histogram(name, value, tags(labels), 1)
}

// Flush drains buffered metrics and closes the client. The pipeline flushes
// once at shutdown; any later call is a no-op returning the first result.
func (b *Backend) Flush() error {
	b.closeOnce.Do(func() {
		if err := b.client.Flush(); err != nil {
			b.closeErr = err
		}
		if err := b.client.Close(); err != nil && b.closeErr == nil {
			b.closeErr = err
		}
	})
	return b.closeErr
}

func normalizeNamespace(ns string) string {
	if ns == "" || strings.HasSuffix(ns, ".") {
		return ns
	}
	return ns + "."
}

// tags converts labels to "key:value" tag strings in key order, so the tag
// set for a given label set is stable across emissions.
func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(lbls))
	for k := range lbls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + ":" + lbls[k]
	}
	return out
}
