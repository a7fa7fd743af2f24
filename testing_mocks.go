package diffable

import (
	"context"
)

// Mock types for testing

// Mock updater implementation for testing; accepts everything silently
type mockUpdater struct{}

func (mockUpdater) Reload(ctx context.Context, snapshot *Snapshot[string, string]) error {
	return nil
}

func (mockUpdater) ApplyChanges(ctx context.Context, tx *Transaction[string, string], animated bool) error {
	return nil
}
