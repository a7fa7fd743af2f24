package diffable

import (
	"context"
	"testing"
)

func buildMeteredSource(t *testing.T) (*DataSource[string, string], *TestUpdater, *MockMetricsCollector) {
	t.Helper()
	updater := &TestUpdater{}
	metrics := &MockMetricsCollector{}
	ds, err := NewDataSourceBuilder[string, string]().
		WithUpdater(updater).
		WithMetrics(metrics).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return ds, updater, metrics
}

func durationOps(metrics *MockMetricsCollector) map[string]int {
	out := make(map[string]int)
	for _, c := range metrics.DurationCalls {
		out[c.Operation]++
	}
	return out
}

func TestMetricsOnReload(t *testing.T) {
	ds, _, metrics := buildMeteredSource(t)

	snap := makeSnapshot(t, testSection{id: "main", items: []string{"a"}})
	if _, err := ds.Apply(context.Background(), snap, ApplyModeReload); err != nil {
		t.Fatalf("apply: %v", err)
	}

	ops := durationOps(metrics)
	if ops["apply_reload"] != 1 {
		t.Errorf("apply_reload durations = %d, want 1", ops["apply_reload"])
	}
	if ops["diff"] != 0 {
		t.Errorf("reload mode must not record a diff duration, got %d", ops["diff"])
	}
}

func TestMetricsOnIncrementalApply(t *testing.T) {
	ds, _, metrics := buildMeteredSource(t)
	ctx := context.Background()

	first := makeSnapshot(t, testSection{id: "main", items: []string{"a"}})
	if _, err := ds.Apply(ctx, first, ApplyModeAnimated); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second := makeSnapshot(t, testSection{id: "main", items: []string{"a", "b", "c"}})
	if _, err := ds.Apply(ctx, second, ApplyModeAnimated); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	ops := durationOps(metrics)
	if ops["apply_animated"] != 2 {
		t.Errorf("apply_animated durations = %d, want 2", ops["apply_animated"])
	}
	if ops["diff"] != 1 {
		t.Errorf("diff durations = %d, want 1", ops["diff"])
	}

	if len(metrics.VolumeCalls) != 1 {
		t.Fatalf("VolumeCalls = %d, want 1", len(metrics.VolumeCalls))
	}
	vol := metrics.VolumeCalls[0]
	if vol.SectionChanges != 0 || vol.ItemChanges != 2 {
		t.Errorf("recorded volume %+v, want 0 section / 2 item changes", vol)
	}
	if len(metrics.ErrorCalls) != 0 {
		t.Errorf("unexpected error metrics %v", metrics.ErrorCalls)
	}
}

func TestMetricsOnUpdaterFailure(t *testing.T) {
	ds, updater, metrics := buildMeteredSource(t)
	ctx := context.Background()

	first := makeSnapshot(t, testSection{id: "main", items: []string{"a"}})
	if _, err := ds.Apply(ctx, first, ApplyModeNonAnimated); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	updater.shouldError = true
	second := makeSnapshot(t, testSection{id: "main", items: []string{"a", "b"}})
	if _, err := ds.Apply(ctx, second, ApplyModeNonAnimated); err == nil {
		t.Fatal("expected updater failure")
	}

	if len(metrics.ErrorCalls) != 1 {
		t.Fatalf("ErrorCalls = %d, want 1", len(metrics.ErrorCalls))
	}
	call := metrics.ErrorCalls[0]
	if call.Operation != "apply" || call.ErrorType != "update_failure" {
		t.Errorf("recorded error %+v", call)
	}

	// Failed applies record no apply duration.
	if ops := durationOps(metrics); ops["apply_non_animated"] != 1 {
		t.Errorf("apply_non_animated durations = %d, want 1", ops["apply_non_animated"])
	}
}

func TestNoopCollectorIsSafe(t *testing.T) {
	var c NoopMetricsCollector
	c.RecordApplyDuration(ApplyModeAnimated, 0)
	c.RecordDiffDuration(0)
	c.RecordChanges(1, 2)
	c.RecordError("apply", "update_failure")
}
