package diffable

import (
	"fmt"

	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
	"github.com/c0deZ3R0/go-diffable-kit/logging"
)

// DataSourceBuilder constructs a DataSource with a fluent API.
type DataSourceBuilder[S comparable, I comparable] struct {
	updater ViewUpdater[S, I]
	options Options
	logger  *logging.Logger
	metrics MetricsCollector
	initial *Snapshot[S, I]
}

// NewDataSourceBuilder creates a builder with defaults: no-op metrics, the
// package default logger, validation disabled.
func NewDataSourceBuilder[S comparable, I comparable]() *DataSourceBuilder[S, I] {
	return &DataSourceBuilder[S, I]{}
}

// WithUpdater sets the view boundary. Required.
func (b *DataSourceBuilder[S, I]) WithUpdater(updater ViewUpdater[S, I]) *DataSourceBuilder[S, I] {
	b.updater = updater
	return b
}

// WithLogger sets the logger used for apply diagnostics.
func (b *DataSourceBuilder[S, I]) WithLogger(logger *logging.Logger) *DataSourceBuilder[S, I] {
	b.logger = logger
	return b
}

// WithMetrics sets the metrics collector.
func (b *DataSourceBuilder[S, I]) WithMetrics(metrics MetricsCollector) *DataSourceBuilder[S, I] {
	b.metrics = metrics
	return b
}

// WithValidation enables replay verification of every transaction.
func (b *DataSourceBuilder[S, I]) WithValidation() *DataSourceBuilder[S, I] {
	b.options.ValidateTransactions = true
	return b
}

// WithInitialSnapshot seeds the baseline, e.g. one restored from a snapshot
// store, so the first live apply diffs incrementally instead of reloading.
func (b *DataSourceBuilder[S, I]) WithInitialSnapshot(snap *Snapshot[S, I]) *DataSourceBuilder[S, I] {
	b.initial = snap
	return b
}

// Build validates the configuration and returns the data source.
func (b *DataSourceBuilder[S, I]) Build() (*DataSource[S, I], error) {
	if b.updater == nil {
		return nil, kiterrors.NewValidationError(kiterrors.OpApply, fmt.Errorf("view updater is required"))
	}

	logger := b.logger
	if logger == nil {
		logger = logging.WithComponent("data-source")
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	ds := &DataSource[S, I]{
		updater: b.updater,
		options: b.options,
		logger:  logger,
		metrics: metrics,
	}
	if b.initial != nil {
		seed := b.initial.Clone()
		seed.clearReloadMarks()
		ds.baseline = seed
	}
	return ds, nil
}
