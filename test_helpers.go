package diffable

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TestUpdater implements ViewUpdater over string identifiers for testing,
// recording every call it receives.
type TestUpdater struct {
	mu          sync.Mutex
	shouldError bool

	ReloadCalls []*Snapshot[string, string]
	ChangeCalls []RecordedChanges
}

// RecordedChanges is one ApplyChanges call seen by a TestUpdater.
type RecordedChanges struct {
	Tx       *Transaction[string, string]
	Animated bool
}

func (u *TestUpdater) Reload(_ context.Context, snapshot *Snapshot[string, string]) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.shouldError {
		return fmt.Errorf("updater error")
	}
	u.ReloadCalls = append(u.ReloadCalls, snapshot)
	return nil
}

func (u *TestUpdater) ApplyChanges(_ context.Context, tx *Transaction[string, string], animated bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.shouldError {
		return fmt.Errorf("updater error")
	}
	u.ChangeCalls = append(u.ChangeCalls, RecordedChanges{Tx: tx, Animated: animated})
	return nil
}

// DurationCall records one duration measurement
type DurationCall struct {
	Operation string
	Duration  time.Duration
}

// ErrorCall records one error measurement
type ErrorCall struct {
	Operation string
	ErrorType string
}

// VolumeCall records one change-volume measurement
type VolumeCall struct {
	SectionChanges int
	ItemChanges    int
}

// MockMetricsCollector records all measurements for assertions in tests
type MockMetricsCollector struct {
	mu sync.Mutex

	DurationCalls []DurationCall
	ErrorCalls    []ErrorCall
	VolumeCalls   []VolumeCall
}

func (mc *MockMetricsCollector) RecordApplyDuration(mode ApplyMode, d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.DurationCalls = append(mc.DurationCalls, DurationCall{Operation: "apply_" + string(mode), Duration: d})
}

func (mc *MockMetricsCollector) RecordDiffDuration(d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.DurationCalls = append(mc.DurationCalls, DurationCall{Operation: "diff", Duration: d})
}

func (mc *MockMetricsCollector) RecordChanges(sectionChanges, itemChanges int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.VolumeCalls = append(mc.VolumeCalls, VolumeCall{SectionChanges: sectionChanges, ItemChanges: itemChanges})
}

func (mc *MockMetricsCollector) RecordError(operation string, errorType string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.ErrorCalls = append(mc.ErrorCalls, ErrorCall{Operation: operation, ErrorType: errorType})
}
