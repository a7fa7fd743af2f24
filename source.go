package diffable

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
	"github.com/c0deZ3R0/go-diffable-kit/logging"
)

// ApplyMode selects how a snapshot is realized against the view layer.
type ApplyMode string

const (
	// ApplyModeReload discards all view state and rebuilds from the new
	// snapshot, skipping the diff entirely.
	ApplyModeReload ApplyMode = "reload"

	// ApplyModeAnimated applies the computed transaction incrementally
	// with animation.
	ApplyModeAnimated ApplyMode = "animated"

	// ApplyModeNonAnimated applies the computed transaction incrementally
	// without animation.
	ApplyModeNonAnimated ApplyMode = "non_animated"
)

func (m ApplyMode) valid() bool {
	switch m {
	case ApplyModeReload, ApplyModeAnimated, ApplyModeNonAnimated:
		return true
	}
	return false
}

// ApplyResult summarizes one apply operation.
type ApplyResult struct {
	StartTime time.Time
	Duration  time.Duration
	Mode      ApplyMode

	// FullReload is true when the view was rebuilt instead of patched.
	FullReload bool

	SectionsInserted int
	SectionsDeleted  int
	SectionsMoved    int
	SectionsReloaded int
	ItemsInserted    int
	ItemsDeleted     int
	ItemsMoved       int
	ItemsReloaded    int

	Errors []error
}

// Options configures a DataSource.
type Options struct {
	// ValidateTransactions replays every computed transaction before it
	// reaches the view layer and fails the apply on a mismatch. Cheap for
	// typical list sizes; intended for development and tests.
	ValidateTransactions bool
}

// DataSource owns the applied baseline snapshot and drives the view layer.
// Applies are serialized: a single apply is in flight at a time and each
// diff is computed against the baseline current at that moment, so
// concurrently produced snapshots can never diff against a stale baseline.
//
// Construct through NewDataSourceBuilder.
type DataSource[S comparable, I comparable] struct {
	updater ViewUpdater[S, I]
	options Options
	logger  *logging.Logger
	metrics MetricsCollector

	// applyMu serializes Apply end to end, diff included.
	applyMu sync.Mutex

	mu          sync.RWMutex
	baseline    *Snapshot[S, I]
	subscribers []func(*ApplyResult)
	closed      bool
}

// Apply hands a new snapshot to the data source. In reload mode, or when no
// baseline exists yet, the view is rebuilt from the snapshot; otherwise the
// difference against the current baseline is computed and applied
// incrementally. On success the snapshot becomes the new baseline with its
// reload marks consumed; on failure the baseline is left untouched.
//
// The caller keeps ownership of snap: the data source works on a deep copy,
// so mutating snap afterwards never affects the applied state.
func (ds *DataSource[S, I]) Apply(ctx context.Context, snap *Snapshot[S, I], mode ApplyMode) (*ApplyResult, error) {
	ds.mu.RLock()
	if ds.closed {
		ds.mu.RUnlock()
		return nil, kiterrors.NewWithComponent(kiterrors.OpApply, "source", fmt.Errorf("data source is closed"))
	}
	ds.mu.RUnlock()

	if snap == nil {
		return nil, kiterrors.NewValidationError(kiterrors.OpApply, fmt.Errorf("nil snapshot"))
	}
	if !mode.valid() {
		return nil, kiterrors.NewValidationError(kiterrors.OpApply, fmt.Errorf("unknown apply mode %q", mode))
	}

	next := snap.Clone()

	ds.applyMu.Lock()
	defer ds.applyMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ApplyResult{StartTime: time.Now(), Mode: mode}
	defer func() {
		result.Duration = time.Since(result.StartTime)
		ds.notifySubscribers(result)
	}()

	ds.mu.RLock()
	baseline := ds.baseline
	ds.mu.RUnlock()

	if mode == ApplyModeReload || baseline == nil {
		result.FullReload = true
		if ds.updater != nil {
			if err := ds.updater.Reload(ctx, next); err != nil {
				ds.metrics.RecordError("apply", "reload_failure")
				ds.logger.LogError(ctx, err, "full reload failed")
				result.Errors = append(result.Errors, err)
				return result, kiterrors.WrapOpComponent(err, kiterrors.OpApply, "updater")
			}
		}
	} else {
		diffStart := time.Now()
		tx := ComputeTransaction(baseline, next)
		ds.metrics.RecordDiffDuration(time.Since(diffStart))

		if ds.options.ValidateTransactions {
			if err := tx.verifyReplay(); err != nil {
				ds.metrics.RecordError("apply", "invariant_violation")
				ds.logger.LogError(ctx, err, "transaction replay verification failed")
				result.Errors = append(result.Errors, err)
				return result, err
			}
		}

		countChanges(result, tx)
		ds.metrics.RecordChanges(len(tx.SectionChanges), len(tx.ItemChanges))

		if ds.updater != nil && !tx.IsEmpty() {
			if err := ds.updater.ApplyChanges(ctx, tx, mode == ApplyModeAnimated); err != nil {
				ds.metrics.RecordError("apply", "update_failure")
				ds.logger.LogError(ctx, err, "incremental update failed")
				result.Errors = append(result.Errors, err)
				return result, kiterrors.WrapOpComponent(err, kiterrors.OpApply, "updater")
			}
		}
	}

	// Marks are consumed by this apply; the stored baseline carries none
	// so the next diff does not re-reload.
	next.clearReloadMarks()

	ds.mu.Lock()
	ds.baseline = next
	ds.mu.Unlock()

	ds.metrics.RecordApplyDuration(mode, time.Since(result.StartTime))
	ds.logger.InfoContext(ctx, "snapshot applied",
		slog.String("mode", string(mode)),
		slog.Bool("full_reload", result.FullReload),
		slog.Int("sections", next.NumberOfSections()),
		slog.Int("items", next.NumberOfItems()),
	)
	return result, nil
}

// Snapshot returns a deep copy of the current baseline. Before the first
// apply it returns an empty snapshot.
func (ds *DataSource[S, I]) Snapshot() *Snapshot[S, I] {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.baseline == nil {
		return NewSnapshot[S, I]()
	}
	return ds.baseline.Clone()
}

// Subscribe registers a handler invoked after every apply, successful or
// not. Handlers run on their own goroutines and must not block forever.
func (ds *DataSource[S, I]) Subscribe(handler func(*ApplyResult)) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.closed {
		return kiterrors.NewWithComponent(kiterrors.OpApply, "source", fmt.Errorf("data source is closed"))
	}

	ds.subscribers = append(ds.subscribers, handler)
	return nil
}

// Close shuts down the data source. Further applies fail; the last baseline
// stays readable through Snapshot.
func (ds *DataSource[S, I]) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.closed = true
	return nil
}

func (ds *DataSource[S, I]) notifySubscribers(result *ApplyResult) {
	ds.mu.RLock()
	subscribers := make([]func(*ApplyResult), len(ds.subscribers))
	copy(subscribers, ds.subscribers)
	ds.mu.RUnlock()

	for _, handler := range subscribers {
		go func(h func(*ApplyResult)) {
			defer func() {
				if r := recover(); r != nil {
					// A panicking subscriber must not take down applies.
				}
			}()
			h(result)
		}(handler)
	}
}

func countChanges[S comparable, I comparable](result *ApplyResult, tx *Transaction[S, I]) {
	for _, c := range tx.SectionChanges {
		switch c.Kind {
		case ChangeInsert:
			result.SectionsInserted++
		case ChangeDelete:
			result.SectionsDeleted++
		case ChangeMove:
			result.SectionsMoved++
		case ChangeReload:
			result.SectionsReloaded++
		}
	}
	for _, c := range tx.ItemChanges {
		switch c.Kind {
		case ChangeInsert:
			result.ItemsInserted++
		case ChangeDelete:
			result.ItemsDeleted++
		case ChangeMove:
			result.ItemsMoved++
		case ChangeReload:
			result.ItemsReloaded++
		}
	}
}
