package diffable

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
)

type testSection struct {
	id    string
	items []string
}

// makeSnapshot builds a snapshot from ordered sections, failing the test on
// any invalid input.
func makeSnapshot(t *testing.T, sections ...testSection) *Snapshot[string, string] {
	t.Helper()
	snap := NewSnapshot[string, string]()
	for _, sec := range sections {
		if err := snap.AppendSections(sec.id); err != nil {
			t.Fatalf("append section %s: %v", sec.id, err)
		}
		if len(sec.items) > 0 {
			if err := snap.AppendItems(sec.id, sec.items...); err != nil {
				t.Fatalf("append items to %s: %v", sec.id, err)
			}
		}
	}
	return snap
}

func TestAppendSections(t *testing.T) {
	snap := NewSnapshot[string, string]()

	if err := snap.AppendSections("main", "extra"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if diff := cmp.Diff([]string{"main", "extra"}, snap.SectionIdentifiers()); diff != "" {
		t.Errorf("section order (-want +got):\n%s", diff)
	}

	err := snap.AppendSections("main")
	if !kiterrors.IsDuplicateIdentity(err) {
		t.Errorf("expected duplicate identity error, got %v", err)
	}

	err = snap.AppendSections("fresh", "fresh")
	if !kiterrors.IsDuplicateIdentity(err) {
		t.Errorf("expected duplicate identity error for repeated batch, got %v", err)
	}
	if snap.ContainsSection("fresh") {
		t.Error("failed batch must not be partially applied")
	}
}

func TestInsertSections(t *testing.T) {
	snap := makeSnapshot(t, testSection{id: "b"})

	if err := snap.InsertSectionsBefore("b", "a"); err != nil {
		t.Fatalf("insert before: %v", err)
	}
	if err := snap.InsertSectionsAfter("b", "c", "d"); err != nil {
		t.Fatalf("insert after: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, snap.SectionIdentifiers()); diff != "" {
		t.Errorf("section order (-want +got):\n%s", diff)
	}

	err := snap.InsertSectionsBefore("missing", "x")
	if !kiterrors.IsMissingAnchor(err) {
		t.Errorf("expected missing anchor error, got %v", err)
	}
	if snap.ContainsSection("x") {
		t.Error("failed insert must not be partially applied")
	}
}

func TestDeleteSections(t *testing.T) {
	snap := makeSnapshot(t,
		testSection{id: "main", items: []string{"a", "b"}},
		testSection{id: "extra", items: []string{"c"}},
	)
	if err := snap.ReloadItems("c"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := snap.ReloadSections("extra"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	// Unknown identifiers are ignored.
	snap.DeleteSections("extra", "never-existed")

	if snap.ContainsSection("extra") {
		t.Error("deleted section still present")
	}
	if snap.ContainsItem("c") {
		t.Error("items of deleted section still present")
	}
	if len(snap.ReloadedItemIdentifiers()) != 0 {
		t.Error("reload marks of deleted items must be dropped")
	}
	if len(snap.ReloadedSectionIdentifiers()) != 0 {
		t.Error("reload marks of deleted sections must be dropped")
	}
	if diff := cmp.Diff([]string{"a", "b"}, snap.ItemIdentifiers()); diff != "" {
		t.Errorf("surviving items (-want +got):\n%s", diff)
	}
}

func TestMoveSection(t *testing.T) {
	snap := makeSnapshot(t,
		testSection{id: "a"}, testSection{id: "b"}, testSection{id: "c"},
	)

	if err := snap.MoveSectionBefore("c", "a"); err != nil {
		t.Fatalf("move before: %v", err)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, snap.SectionIdentifiers()); diff != "" {
		t.Errorf("section order (-want +got):\n%s", diff)
	}

	if err := snap.MoveSectionAfter("c", "b"); err != nil {
		t.Fatalf("move after: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, snap.SectionIdentifiers()); diff != "" {
		t.Errorf("section order (-want +got):\n%s", diff)
	}

	if err := snap.MoveSectionBefore("a", "a"); err == nil {
		t.Error("self move must be rejected")
	}
	err := snap.MoveSectionBefore("missing", "a")
	if !kiterrors.IsCode(err, kiterrors.ErrCodeMissingIdentity) {
		t.Errorf("expected missing identity error, got %v", err)
	}
	err = snap.MoveSectionBefore("a", "missing")
	if !kiterrors.IsMissingAnchor(err) {
		t.Errorf("expected missing anchor error, got %v", err)
	}
}

func TestAppendItems(t *testing.T) {
	snap := makeSnapshot(t, testSection{id: "main"}, testSection{id: "extra"})

	if err := snap.AppendItems("main", "a", "b"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := snap.AppendItemsToLastSection("c"); err != nil {
		t.Fatalf("append to last: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, snap.ItemIdentifiersInSection("main")); diff != "" {
		t.Errorf("main items (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c"}, snap.ItemIdentifiersInSection("extra")); diff != "" {
		t.Errorf("extra items (-want +got):\n%s", diff)
	}

	err := snap.AppendItems("missing", "x")
	if !kiterrors.IsMissingAnchor(err) {
		t.Errorf("expected missing anchor error, got %v", err)
	}
	// Item identity is unique across the whole snapshot, not per section.
	err = snap.AppendItems("extra", "a")
	if !kiterrors.IsDuplicateIdentity(err) {
		t.Errorf("expected duplicate identity error, got %v", err)
	}

	empty := NewSnapshot[string, string]()
	if err := empty.AppendItemsToLastSection("x"); err == nil {
		t.Error("append to last section of empty snapshot must fail")
	}
}

func TestInsertItems(t *testing.T) {
	snap := makeSnapshot(t, testSection{id: "main", items: []string{"b"}})

	if err := snap.InsertItemsBefore("b", "a"); err != nil {
		t.Fatalf("insert before: %v", err)
	}
	if err := snap.InsertItemsAfter("b", "c", "d"); err != nil {
		t.Fatalf("insert after: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, snap.ItemIdentifiers()); diff != "" {
		t.Errorf("item order (-want +got):\n%s", diff)
	}

	err := snap.InsertItemsBefore("missing", "x")
	if !kiterrors.IsMissingAnchor(err) {
		t.Errorf("expected missing anchor error, got %v", err)
	}
	err = snap.InsertItemsAfter("a", "b")
	if !kiterrors.IsDuplicateIdentity(err) {
		t.Errorf("expected duplicate identity error, got %v", err)
	}
}

func TestDeleteItems(t *testing.T) {
	snap := makeSnapshot(t, testSection{id: "main", items: []string{"a", "b", "c"}})
	if err := snap.ReloadItems("b"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	snap.DeleteItems("b", "never-existed")

	if diff := cmp.Diff([]string{"a", "c"}, snap.ItemIdentifiers()); diff != "" {
		t.Errorf("item order (-want +got):\n%s", diff)
	}
	if len(snap.ReloadedItemIdentifiers()) != 0 {
		t.Error("reload mark of deleted item must be dropped")
	}

	// Deleting the last item keeps the section.
	snap.DeleteItems("a", "c")
	if !snap.ContainsSection("main") {
		t.Error("section must survive deletion of its last item")
	}
	if snap.NumberOfItems() != 0 {
		t.Errorf("expected no items, got %d", snap.NumberOfItems())
	}
}

func TestDeleteAllItems(t *testing.T) {
	snap := makeSnapshot(t,
		testSection{id: "main", items: []string{"a", "b"}},
		testSection{id: "extra", items: []string{"c"}},
	)
	if err := snap.ReloadItems("a"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := snap.ReloadSections("extra"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	snap.DeleteAllItems()

	if snap.NumberOfItems() != 0 {
		t.Errorf("expected no items, got %d", snap.NumberOfItems())
	}
	if diff := cmp.Diff([]string{"main", "extra"}, snap.SectionIdentifiers()); diff != "" {
		t.Errorf("sections must survive (-want +got):\n%s", diff)
	}
	if len(snap.ReloadedItemIdentifiers()) != 0 {
		t.Error("item reload marks must be dropped")
	}
	// Section marks refer to sections that still exist.
	if diff := cmp.Diff([]string{"extra"}, snap.ReloadedSectionIdentifiers()); diff != "" {
		t.Errorf("section reload marks (-want +got):\n%s", diff)
	}
}

func TestMoveItem(t *testing.T) {
	snap := makeSnapshot(t,
		testSection{id: "main", items: []string{"a", "b", "c"}},
		testSection{id: "extra", items: []string{"d"}},
	)

	if err := snap.MoveItemAfter("a", "c"); err != nil {
		t.Fatalf("move after: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, snap.ItemIdentifiersInSection("main")); diff != "" {
		t.Errorf("main items (-want +got):\n%s", diff)
	}

	// Moving relative to an anchor in another section migrates the item.
	if err := snap.MoveItemBefore("a", "d"); err != nil {
		t.Fatalf("move before: %v", err)
	}
	if sec, _ := snap.SectionOfItem("a"); sec != "extra" {
		t.Errorf("item a should live in extra, got %s", sec)
	}
	if diff := cmp.Diff([]string{"a", "d"}, snap.ItemIdentifiersInSection("extra")); diff != "" {
		t.Errorf("extra items (-want +got):\n%s", diff)
	}

	if err := snap.MoveItemBefore("a", "a"); err == nil {
		t.Error("self move must be rejected")
	}
	err := snap.MoveItemBefore("missing", "a")
	if !kiterrors.IsCode(err, kiterrors.ErrCodeMissingIdentity) {
		t.Errorf("expected missing identity error, got %v", err)
	}
	err = snap.MoveItemBefore("a", "missing")
	if !kiterrors.IsMissingAnchor(err) {
		t.Errorf("expected missing anchor error, got %v", err)
	}
}

func TestReloadMarks(t *testing.T) {
	snap := makeSnapshot(t,
		testSection{id: "main", items: []string{"a", "b"}},
		testSection{id: "extra"},
	)

	if err := snap.ReloadItems("b", "a"); err != nil {
		t.Fatalf("reload items: %v", err)
	}
	// Marking again is idempotent and keeps first-mark order.
	if err := snap.ReloadItems("b"); err != nil {
		t.Fatalf("reload items: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, snap.ReloadedItemIdentifiers()); diff != "" {
		t.Errorf("reloaded items (-want +got):\n%s", diff)
	}

	if err := snap.ReloadSections("extra"); err != nil {
		t.Fatalf("reload sections: %v", err)
	}
	if diff := cmp.Diff([]string{"extra"}, snap.ReloadedSectionIdentifiers()); diff != "" {
		t.Errorf("reloaded sections (-want +got):\n%s", diff)
	}

	err := snap.ReloadItems("a", "missing")
	if !kiterrors.IsCode(err, kiterrors.ErrCodeMissingIdentity) {
		t.Errorf("expected missing identity error, got %v", err)
	}
	err = snap.ReloadSections("missing")
	if !kiterrors.IsCode(err, kiterrors.ErrCodeMissingIdentity) {
		t.Errorf("expected missing identity error, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	snap := makeSnapshot(t,
		testSection{id: "main", items: []string{"a", "b"}},
		testSection{id: "empty"},
		testSection{id: "extra", items: []string{"c"}},
	)

	if got := snap.NumberOfSections(); got != 3 {
		t.Errorf("NumberOfSections = %d, want 3", got)
	}
	if got := snap.NumberOfItems(); got != 3 {
		t.Errorf("NumberOfItems = %d, want 3", got)
	}
	if got := snap.NumberOfItemsInSection("main"); got != 2 {
		t.Errorf("NumberOfItemsInSection(main) = %d, want 2", got)
	}
	if got := snap.NumberOfItemsInSection("missing"); got != 0 {
		t.Errorf("NumberOfItemsInSection(missing) = %d, want 0", got)
	}

	if diff := cmp.Diff([]string{"a", "b", "c"}, snap.ItemIdentifiers()); diff != "" {
		t.Errorf("flattened item order (-want +got):\n%s", diff)
	}
	if got := snap.ItemIdentifiersInSection("missing"); got != nil {
		t.Errorf("items of missing section = %v, want nil", got)
	}

	if at, ok := snap.IndexOfSection("extra"); !ok || at != 2 {
		t.Errorf("IndexOfSection(extra) = %d, %v", at, ok)
	}
	// Flattened item positions span sections.
	if at, ok := snap.IndexOfItem("c"); !ok || at != 2 {
		t.Errorf("IndexOfItem(c) = %d, %v", at, ok)
	}
	if _, ok := snap.IndexOfItem("missing"); ok {
		t.Error("IndexOfItem(missing) should report absence")
	}
	if sec, ok := snap.SectionOfItem("b"); !ok || sec != "main" {
		t.Errorf("SectionOfItem(b) = %s, %v", sec, ok)
	}
	if !snap.ContainsSection("empty") || snap.ContainsSection("missing") {
		t.Error("ContainsSection misreports")
	}
	if !snap.ContainsItem("a") || snap.ContainsItem("missing") {
		t.Error("ContainsItem misreports")
	}
}

func TestIndexSurvivesMutation(t *testing.T) {
	snap := makeSnapshot(t, testSection{id: "main", items: []string{"a", "b", "c"}})

	// Warm the index, then mutate, then query again.
	if at, ok := snap.IndexOfItem("c"); !ok || at != 2 {
		t.Fatalf("IndexOfItem(c) = %d, %v", at, ok)
	}
	snap.DeleteItems("a")
	if at, ok := snap.IndexOfItem("c"); !ok || at != 1 {
		t.Errorf("IndexOfItem(c) after delete = %d, %v, want 1", at, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	original := makeSnapshot(t, testSection{id: "main", items: []string{"a", "b"}})
	if err := original.ReloadItems("a"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	clone := original.Clone()

	original.DeleteItems("a")
	if err := original.AppendItems("main", "z"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, clone.ItemIdentifiers()); diff != "" {
		t.Errorf("clone mutated through original (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, clone.ReloadedItemIdentifiers()); diff != "" {
		t.Errorf("clone reload marks (-want +got):\n%s", diff)
	}

	clone.DeleteSections("main")
	if !original.ContainsSection("main") {
		t.Error("original mutated through clone")
	}
}
