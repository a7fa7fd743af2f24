package diffable

import "time"

// MetricsCollector receives timing and volume measurements from the data
// source. Implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordApplyDuration records the wall time of one complete apply.
	RecordApplyDuration(mode ApplyMode, d time.Duration)

	// RecordDiffDuration records the time spent computing one transaction.
	RecordDiffDuration(d time.Duration)

	// RecordChanges records the operation volume of one applied transaction.
	RecordChanges(sectionChanges, itemChanges int)

	// RecordError records a failed operation by type.
	RecordError(operation string, errorType string)
}

// NoopMetricsCollector discards all measurements. It is the default when no
// collector is configured.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordApplyDuration(ApplyMode, time.Duration) {}
func (NoopMetricsCollector) RecordDiffDuration(time.Duration)            {}
func (NoopMetricsCollector) RecordChanges(int, int)                      {}
func (NoopMetricsCollector) RecordError(string, string)                  {}
