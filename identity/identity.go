// Package identity defines the identifier contracts used across the kit
// packages to avoid circular dependencies.
//
// Snapshots store bare identifiers; consumers that keep richer models map
// them through Identifiable when feeding the data source.
package identity

// Identifiable is implemented by model types that expose a stable, unique
// identifier. The identifier must not change for the conceptual lifetime of
// the element even when its content does.
type Identifiable[ID comparable] interface {
	// Identifier returns the stable identity key of the element.
	Identifier() ID
}

// Collect extracts the identifiers of elems in order.
func Collect[ID comparable, T Identifiable[ID]](elems []T) []ID {
	ids := make([]ID, len(elems))
	for i, e := range elems {
		ids[i] = e.Identifier()
	}
	return ids
}

// FirstDuplicate returns the first identifier that occurs more than once in
// ids, in order of appearance.
func FirstDuplicate[ID comparable](ids []ID) (ID, bool) {
	seen := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	var zero ID
	return zero, false
}
