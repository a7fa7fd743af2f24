package diffable

import (
	"fmt"

	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
)

// ChangeKind classifies a single structural or content operation.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeDelete ChangeKind = "delete"
	ChangeMove   ChangeKind = "move"
	ChangeReload ChangeKind = "reload"
)

// SectionChange is one section-level operation. FromIndex is a position in
// the initial snapshot (-1 for inserts), ToIndex a position in the final
// snapshot (-1 for deletes).
type SectionChange[S comparable] struct {
	Kind      ChangeKind
	Section   S
	FromIndex int
	ToIndex   int
}

// ItemChange is one item-level operation. From coordinates are
// section-relative rows in the initial snapshot, To coordinates rows in the
// final snapshot. Inserts carry no From coordinates (FromIndex -1), deletes
// no To coordinates (ToIndex -1).
type ItemChange[S comparable, I comparable] struct {
	Kind        ChangeKind
	Item        I
	FromSection S
	FromIndex   int
	ToSection   S
	ToIndex     int
}

// Transaction is the computed structural difference between two snapshots.
// It references both snapshots and carries no view-specific state; it is
// recomputed for every apply and discarded afterwards.
//
// Operation ordering is deterministic and application-safe: section changes
// and item changes each list deletes first (descending, initial-snapshot
// coordinates), then moves, then inserts (ascending, final-snapshot
// coordinates), then reloads. Items belonging to a deleted section are
// implicit in the section delete and produce no standalone op; likewise for
// items of an inserted section.
type Transaction[S comparable, I comparable] struct {
	Initial *Snapshot[S, I]
	Final   *Snapshot[S, I]

	SectionChanges []SectionChange[S]
	ItemChanges    []ItemChange[S, I]

	// Raw scripts retained for replay verification.
	sectionScript editScript
	itemScripts   []sectionScript[S]
}

type sectionScript[S comparable] struct {
	section S
	script  editScript
}

// itemRef locates a structural edit endpoint. implicit marks edits covered
// by a section insert or delete.
type itemRef[S comparable] struct {
	section  S
	row      int
	implicit bool
}

// ComputeTransaction diffs two well-formed snapshots. Sections are diffed
// first; items are then diffed per surviving section pair, so operations on
// one section's items never reference another section (cross-section moves
// excepted, which name both endpoints). Diffing never fails: malformed
// snapshots are rejected at mutation time, so both inputs can be assumed
// consistent here.
func ComputeTransaction[S comparable, I comparable](initial, final *Snapshot[S, I]) *Transaction[S, I] {
	t := &Transaction[S, I]{Initial: initial, Final: final}

	t.sectionScript = diffSlices(initial.sections, final.sections)
	deletedSectionAt := make(map[S]int, len(t.sectionScript.deletions))
	for _, at := range t.sectionScript.deletions {
		deletedSectionAt[initial.sections[at]] = at
	}
	insertedSectionAt := make(map[S]int, len(t.sectionScript.insertions))
	for _, at := range t.sectionScript.insertions {
		insertedSectionAt[final.sections[at]] = at
	}

	// Section deletes, descending initial coordinates.
	for i := len(t.sectionScript.deletions) - 1; i >= 0; i-- {
		at := t.sectionScript.deletions[i]
		sec := initial.sections[at]
		if _, moved := insertedSectionAt[sec]; moved {
			continue
		}
		t.SectionChanges = append(t.SectionChanges, SectionChange[S]{
			Kind: ChangeDelete, Section: sec, FromIndex: at, ToIndex: -1,
		})
	}
	// Section moves, ascending final coordinates. A moved section shows up
	// on both sides of the script under the same identity.
	for _, at := range t.sectionScript.insertions {
		sec := final.sections[at]
		if from, moved := deletedSectionAt[sec]; moved {
			t.SectionChanges = append(t.SectionChanges, SectionChange[S]{
				Kind: ChangeMove, Section: sec, FromIndex: from, ToIndex: at,
			})
		}
	}
	// Section inserts, ascending final coordinates.
	for _, at := range t.sectionScript.insertions {
		sec := final.sections[at]
		if _, moved := deletedSectionAt[sec]; moved {
			continue
		}
		t.SectionChanges = append(t.SectionChanges, SectionChange[S]{
			Kind: ChangeInsert, Section: sec, FromIndex: -1, ToIndex: at,
		})
	}

	// Per-section item scripts for sections present in both snapshots,
	// keyed in final order for deterministic emission.
	scripts := make(map[S]editScript)
	for _, sec := range final.sections {
		if !initial.ContainsSection(sec) {
			continue
		}
		sc := diffSlices(initial.items[sec], final.items[sec])
		scripts[sec] = sc
		t.itemScripts = append(t.itemScripts, sectionScript[S]{section: sec, script: sc})
	}

	removed := make(map[I]itemRef[S])
	var removedOrder []I // ascending initial coordinates
	for _, sec := range initial.sections {
		if sc, ok := scripts[sec]; ok {
			for _, row := range sc.deletions {
				item := initial.items[sec][row]
				removed[item] = itemRef[S]{section: sec, row: row}
				removedOrder = append(removedOrder, item)
			}
		} else if !final.ContainsSection(sec) {
			for row, item := range initial.items[sec] {
				removed[item] = itemRef[S]{section: sec, row: row, implicit: true}
			}
		}
	}

	inserted := make(map[I]itemRef[S])
	var insertedOrder []I // ascending final coordinates
	for _, sec := range final.sections {
		if sc, ok := scripts[sec]; ok {
			for _, row := range sc.insertions {
				item := final.items[sec][row]
				inserted[item] = itemRef[S]{section: sec, row: row}
				insertedOrder = append(insertedOrder, item)
			}
		} else if !initial.ContainsSection(sec) {
			for row, item := range final.items[sec] {
				inserted[item] = itemRef[S]{section: sec, row: row, implicit: true}
			}
		}
	}

	// Item deletes, descending initial coordinates. An item that reappears
	// in a surviving section becomes a move below; one whose destination
	// section is itself being inserted stays a plain delete, since the
	// section insert already carries it.
	for i := len(removedOrder) - 1; i >= 0; i-- {
		item := removedOrder[i]
		from := removed[item]
		if to, ok := inserted[item]; ok && !to.implicit {
			continue
		}
		t.ItemChanges = append(t.ItemChanges, ItemChange[S, I]{
			Kind: ChangeDelete, Item: item,
			FromSection: from.section, FromIndex: from.row, ToIndex: -1,
		})
	}
	// Item moves, ascending final coordinates. Only pairs whose source
	// section survives qualify; moving out of a deleted section is an
	// insert, because the old coordinates no longer exist for the view.
	for _, item := range insertedOrder {
		to := inserted[item]
		if from, ok := removed[item]; ok && !from.implicit {
			t.ItemChanges = append(t.ItemChanges, ItemChange[S, I]{
				Kind: ChangeMove, Item: item,
				FromSection: from.section, FromIndex: from.row,
				ToSection: to.section, ToIndex: to.row,
			})
		}
	}
	// Item inserts, ascending final coordinates.
	for _, item := range insertedOrder {
		to := inserted[item]
		if from, ok := removed[item]; ok && !from.implicit {
			continue
		}
		t.ItemChanges = append(t.ItemChanges, ItemChange[S, I]{
			Kind: ChangeInsert, Item: item,
			FromIndex: -1, ToSection: to.section, ToIndex: to.row,
		})
	}

	// Reloads last: content refreshes for identities present on both sides.
	// Marks on the final snapshot drive them; a mark on a freshly inserted
	// item is subsumed by its insert.
	for _, sec := range final.reloadedSections {
		fromAt, ok := initial.ensureIndex().sectionAt[sec]
		if !ok {
			continue
		}
		toAt := final.ensureIndex().sectionAt[sec]
		t.SectionChanges = append(t.SectionChanges, SectionChange[S]{
			Kind: ChangeReload, Section: sec, FromIndex: fromAt, ToIndex: toAt,
		})
	}
	for _, item := range final.reloadedItems {
		fromSec, ok := initial.sectionOf[item]
		if !ok {
			continue
		}
		toSec := final.sectionOf[item]
		t.ItemChanges = append(t.ItemChanges, ItemChange[S, I]{
			Kind: ChangeReload, Item: item,
			FromSection: fromSec, FromIndex: indexOf(initial.items[fromSec], item),
			ToSection: toSec, ToIndex: indexOf(final.items[toSec], item),
		})
	}

	return t
}

// IsEmpty reports whether the transaction carries no operations at all.
func (t *Transaction[S, I]) IsEmpty() bool {
	return len(t.SectionChanges) == 0 && len(t.ItemChanges) == 0
}

// verifyReplay replays the recorded scripts over the initial snapshot and
// checks that the final section order and flattened item order come out
// exactly. A mismatch is a bug in the diff engine, reported as an
// invariant violation, never as recoverable caller input.
func (t *Transaction[S, I]) verifyReplay() error {
	gotSections := applyScript(t.Initial.sections, t.Final.sections, t.sectionScript)
	if !equalSlices(gotSections, t.Final.sections) {
		return kiterrors.NewInvariantError(kiterrors.OpDiff,
			fmt.Errorf("section replay diverged: got %v, want %v", gotSections, t.Final.sections))
	}

	scripts := make(map[S]editScript, len(t.itemScripts))
	for _, ss := range t.itemScripts {
		scripts[ss.section] = ss.script
	}

	var got []I
	for _, sec := range gotSections {
		if sc, ok := scripts[sec]; ok {
			got = append(got, applyScript(t.Initial.items[sec], t.Final.items[sec], sc)...)
		} else {
			// Section newly inserted; its items ride along with it.
			got = append(got, t.Final.items[sec]...)
		}
	}
	want := t.Final.ItemIdentifiers()
	if !equalSlices(got, want) {
		return kiterrors.NewInvariantError(kiterrors.OpDiff,
			fmt.Errorf("item replay diverged: got %v, want %v", got, want))
	}
	return nil
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
