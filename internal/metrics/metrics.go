// Package metrics holds the Prometheus instruments for lifecycle
// operations. Collector implements engine.Recorder.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector counts operations by outcome and times them.
type Collector struct {
	gatherer   prometheus.Gatherer
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a Collector registered with reg.
func New(reg *prometheus.Registry) (*Collector, error) {
	c := &Collector{
		gatherer: reg,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storypage_operations_total",
				Help: "Cumulative number of lifecycle operations by outcome.",
			}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storypage_operation_duration_seconds",
				Help:    "Lifecycle operation latency including uploads and the document write.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			}, []string{"op"}),
	}
	for _, col := range []prometheus.Collector{c.operations, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// ObserveOperation implements engine.Recorder.
func (c *Collector) ObserveOperation(op, outcome string, elapsed time.Duration) {
	c.operations.WithLabelValues(op, outcome).Inc()
	c.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WriteText writes every gathered family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
