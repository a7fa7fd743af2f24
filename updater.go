package diffable

import "context"

// ViewUpdater is the outbound boundary to the consuming view layer. The kit
// computes what changed; the updater owns everything downstream: reuse
// pooling, animation, focus preservation.
//
// Implementations must treat the snapshot and transaction arguments as
// read-only and must not retain them past the call; the data source reuses
// the snapshot as its next baseline.
type ViewUpdater[S comparable, I comparable] interface {
	// Reload discards all view state and rebuilds from the snapshot in
	// index order. Always correct, used for first loads and for
	// caller-forced reloads.
	Reload(ctx context.Context, snapshot *Snapshot[S, I]) error

	// ApplyChanges realizes a transaction incrementally. Deletes arrive in
	// initial-snapshot coordinates, inserts in final-snapshot coordinates,
	// deletes before inserts; reload changes are in-place content
	// refreshes, not structural ops.
	ApplyChanges(ctx context.Context, tx *Transaction[S, I], animated bool) error
}
