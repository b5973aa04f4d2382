package ports

import (
	"io"
	"time"

	"github.com/ahrav/go-concord/internal/domain"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, such as a
	// Consensus Index.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ResultRenderer writes a consolidation Result in one output format.
type ResultRenderer interface {
	// Format returns the format name, e.g. "table" or "json".
	Format() string

	// Render writes r to w. It must not modify r.
	Render(w io.Writer, r *domain.Result) error
}
