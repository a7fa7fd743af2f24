package diffable

import (
	"fmt"

	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
	"github.com/c0deZ3R0/go-diffable-kit/identity"
)

// Snapshot is an ordered, sectioned collection of uniquely identified
// elements representing one state in time. Section identifiers are unique
// across the snapshot; item identifiers are unique across the whole snapshot
// and each item belongs to exactly one section.
//
// A Snapshot is a plain value with no internal locking: build it on one
// goroutine, then hand it to a DataSource, which clones it so the applied
// baseline can never be retroactively mutated.
//
// Mutations that would violate the identity invariants fail without
// partially applying: either every element of a batch is applied or none is.
type Snapshot[S comparable, I comparable] struct {
	sections []S
	items    map[S][]I

	// sectionOf maps every item to its owning section.
	sectionOf map[I]S

	// Reload marks carried to the next apply. Ordered slices keep
	// enumeration deterministic; the sets exist for dedup only.
	reloadedItems      []I
	reloadedItemSet    map[I]struct{}
	reloadedSections   []S
	reloadedSectionSet map[S]struct{}

	// Lazily rebuilt position indices. Invalidated by every mutation so
	// queries stay O(1) amortized without paying O(n) per mutation.
	idx *snapshotIndex[S, I]
}

type snapshotIndex[S comparable, I comparable] struct {
	sectionAt map[S]int
	itemAt    map[I]int // flattened position across all sections
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot[S comparable, I comparable]() *Snapshot[S, I] {
	return &Snapshot[S, I]{
		items:              make(map[S][]I),
		sectionOf:          make(map[I]S),
		reloadedItemSet:    make(map[I]struct{}),
		reloadedSectionSet: make(map[S]struct{}),
	}
}

func (s *Snapshot[S, I]) invalidate() {
	s.idx = nil
}

func (s *Snapshot[S, I]) ensureIndex() *snapshotIndex[S, I] {
	if s.idx != nil {
		return s.idx
	}
	idx := &snapshotIndex[S, I]{
		sectionAt: make(map[S]int, len(s.sections)),
		itemAt:    make(map[I]int, len(s.sectionOf)),
	}
	pos := 0
	for i, sec := range s.sections {
		idx.sectionAt[sec] = i
		for _, item := range s.items[sec] {
			idx.itemAt[item] = pos
			pos++
		}
	}
	s.idx = idx
	return idx
}

// validateNewSections rejects batches that repeat an identifier or reuse one
// already present in the snapshot.
func (s *Snapshot[S, I]) validateNewSections(op kiterrors.Operation, sections []S) error {
	if dup, ok := identity.FirstDuplicate(sections); ok {
		return kiterrors.NewSnapshotError(op, kiterrors.ErrCodeDuplicateIdentity,
			fmt.Errorf("section identifier %v repeated in batch", dup))
	}
	for _, sec := range sections {
		if _, ok := s.items[sec]; ok {
			return kiterrors.NewSnapshotError(op, kiterrors.ErrCodeDuplicateIdentity,
				fmt.Errorf("section identifier %v already present", sec))
		}
	}
	return nil
}

func (s *Snapshot[S, I]) validateNewItems(op kiterrors.Operation, items []I) error {
	if dup, ok := identity.FirstDuplicate(items); ok {
		return kiterrors.NewSnapshotError(op, kiterrors.ErrCodeDuplicateIdentity,
			fmt.Errorf("item identifier %v repeated in batch", dup))
	}
	for _, item := range items {
		if _, ok := s.sectionOf[item]; ok {
			return kiterrors.NewSnapshotError(op, kiterrors.ErrCodeDuplicateIdentity,
				fmt.Errorf("item identifier %v already present", item))
		}
	}
	return nil
}

// AppendSections appends new sections after all existing sections.
func (s *Snapshot[S, I]) AppendSections(sections ...S) error {
	if err := s.validateNewSections(kiterrors.OpAppendSections, sections); err != nil {
		return err
	}
	for _, sec := range sections {
		s.sections = append(s.sections, sec)
		s.items[sec] = nil
	}
	s.invalidate()
	return nil
}

// InsertSectionsBefore splices sections immediately before the anchor section.
func (s *Snapshot[S, I]) InsertSectionsBefore(anchor S, sections ...S) error {
	return s.insertSections(anchor, 0, sections)
}

// InsertSectionsAfter splices sections immediately after the anchor section.
func (s *Snapshot[S, I]) InsertSectionsAfter(anchor S, sections ...S) error {
	return s.insertSections(anchor, 1, sections)
}

func (s *Snapshot[S, I]) insertSections(anchor S, offset int, sections []S) error {
	at, ok := s.ensureIndex().sectionAt[anchor]
	if !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpInsertSections, kiterrors.ErrCodeMissingAnchor,
			fmt.Errorf("anchor section %v not in snapshot", anchor))
	}
	if err := s.validateNewSections(kiterrors.OpInsertSections, sections); err != nil {
		return err
	}
	s.sections = insertAt(s.sections, at+offset, sections...)
	for _, sec := range sections {
		s.items[sec] = nil
	}
	s.invalidate()
	return nil
}

// DeleteSections removes the named sections and every item they contain.
// Identifiers absent from the snapshot are ignored, so deletes stay
// idempotent.
func (s *Snapshot[S, I]) DeleteSections(sections ...S) {
	for _, sec := range sections {
		contained, ok := s.items[sec]
		if !ok {
			continue
		}
		for _, item := range contained {
			delete(s.sectionOf, item)
			s.unmarkItemReload(item)
		}
		delete(s.items, sec)
		s.sections = removeFirst(s.sections, sec)
		s.unmarkSectionReload(sec)
	}
	s.invalidate()
}

// MoveSectionBefore relocates an existing section immediately before the
// anchor section.
func (s *Snapshot[S, I]) MoveSectionBefore(section, anchor S) error {
	return s.moveSection(section, anchor, 0)
}

// MoveSectionAfter relocates an existing section immediately after the
// anchor section.
func (s *Snapshot[S, I]) MoveSectionAfter(section, anchor S) error {
	return s.moveSection(section, anchor, 1)
}

func (s *Snapshot[S, I]) moveSection(section, anchor S, offset int) error {
	if section == anchor {
		return kiterrors.NewSnapshotError(kiterrors.OpMoveSection, kiterrors.ErrCodeValidationFailure,
			fmt.Errorf("cannot move section %v relative to itself", section))
	}
	if _, ok := s.items[section]; !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpMoveSection, kiterrors.ErrCodeMissingIdentity,
			fmt.Errorf("section %v not in snapshot", section))
	}
	if _, ok := s.items[anchor]; !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpMoveSection, kiterrors.ErrCodeMissingAnchor,
			fmt.Errorf("anchor section %v not in snapshot", anchor))
	}
	s.sections = removeFirst(s.sections, section)
	at := indexOf(s.sections, anchor)
	s.sections = insertAt(s.sections, at+offset, section)
	s.invalidate()
	return nil
}

// AppendItems appends items to the end of the named section's item list.
func (s *Snapshot[S, I]) AppendItems(section S, items ...I) error {
	if _, ok := s.items[section]; !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpAppendItems, kiterrors.ErrCodeMissingAnchor,
			fmt.Errorf("section %v not in snapshot", section))
	}
	if err := s.validateNewItems(kiterrors.OpAppendItems, items); err != nil {
		return err
	}
	s.items[section] = append(s.items[section], items...)
	for _, item := range items {
		s.sectionOf[item] = section
	}
	s.invalidate()
	return nil
}

// AppendItemsToLastSection appends items to the last section of the snapshot.
func (s *Snapshot[S, I]) AppendItemsToLastSection(items ...I) error {
	if len(s.sections) == 0 {
		return kiterrors.NewSnapshotError(kiterrors.OpAppendItems, kiterrors.ErrCodeMissingAnchor,
			fmt.Errorf("snapshot has no sections"))
	}
	return s.AppendItems(s.sections[len(s.sections)-1], items...)
}

// InsertItemsBefore splices items immediately before the anchor item, in the
// anchor's section.
func (s *Snapshot[S, I]) InsertItemsBefore(anchor I, items ...I) error {
	return s.insertItems(anchor, 0, items)
}

// InsertItemsAfter splices items immediately after the anchor item, in the
// anchor's section.
func (s *Snapshot[S, I]) InsertItemsAfter(anchor I, items ...I) error {
	return s.insertItems(anchor, 1, items)
}

func (s *Snapshot[S, I]) insertItems(anchor I, offset int, items []I) error {
	sec, ok := s.sectionOf[anchor]
	if !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpInsertItems, kiterrors.ErrCodeMissingAnchor,
			fmt.Errorf("anchor item %v not in snapshot", anchor))
	}
	if err := s.validateNewItems(kiterrors.OpInsertItems, items); err != nil {
		return err
	}
	row := indexOf(s.items[sec], anchor)
	s.items[sec] = insertAt(s.items[sec], row+offset, items...)
	for _, item := range items {
		s.sectionOf[item] = sec
	}
	s.invalidate()
	return nil
}

// DeleteItems removes items by identity. Identifiers absent from the
// snapshot are ignored. Deleting the last item of a section leaves the
// section in place.
func (s *Snapshot[S, I]) DeleteItems(items ...I) {
	for _, item := range items {
		sec, ok := s.sectionOf[item]
		if !ok {
			continue
		}
		s.items[sec] = removeFirst(s.items[sec], item)
		delete(s.sectionOf, item)
		s.unmarkItemReload(item)
	}
	s.invalidate()
}

// DeleteAllItems removes every item from every section. Sections are
// retained.
func (s *Snapshot[S, I]) DeleteAllItems() {
	for _, sec := range s.sections {
		s.items[sec] = nil
	}
	s.sectionOf = make(map[I]S)
	s.reloadedItems = nil
	s.reloadedItemSet = make(map[I]struct{})
	s.invalidate()
}

// MoveItemBefore removes the item from its current position and reinserts it
// immediately before the anchor, in the anchor's section.
func (s *Snapshot[S, I]) MoveItemBefore(item, anchor I) error {
	return s.moveItem(item, anchor, 0)
}

// MoveItemAfter removes the item from its current position and reinserts it
// immediately after the anchor, in the anchor's section.
func (s *Snapshot[S, I]) MoveItemAfter(item, anchor I) error {
	return s.moveItem(item, anchor, 1)
}

func (s *Snapshot[S, I]) moveItem(item, anchor I, offset int) error {
	if item == anchor {
		return kiterrors.NewSnapshotError(kiterrors.OpMoveItem, kiterrors.ErrCodeValidationFailure,
			fmt.Errorf("cannot move item %v relative to itself", item))
	}
	fromSec, ok := s.sectionOf[item]
	if !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpMoveItem, kiterrors.ErrCodeMissingIdentity,
			fmt.Errorf("item %v not in snapshot", item))
	}
	toSec, ok := s.sectionOf[anchor]
	if !ok {
		return kiterrors.NewSnapshotError(kiterrors.OpMoveItem, kiterrors.ErrCodeMissingAnchor,
			fmt.Errorf("anchor item %v not in snapshot", anchor))
	}
	s.items[fromSec] = removeFirst(s.items[fromSec], item)
	row := indexOf(s.items[toSec], anchor)
	s.items[toSec] = insertAt(s.items[toSec], row+offset, item)
	s.sectionOf[item] = toSec
	s.invalidate()
	return nil
}

// ReloadItems marks items as changed in content while keeping identity and
// position. The diff engine surfaces them as reload operations, never as
// structural ones. Every identifier must be present in the snapshot.
func (s *Snapshot[S, I]) ReloadItems(items ...I) error {
	for _, item := range items {
		if _, ok := s.sectionOf[item]; !ok {
			return kiterrors.NewSnapshotError(kiterrors.OpReloadItems, kiterrors.ErrCodeMissingIdentity,
				fmt.Errorf("item %v not in snapshot", item))
		}
	}
	for _, item := range items {
		if _, ok := s.reloadedItemSet[item]; ok {
			continue
		}
		s.reloadedItemSet[item] = struct{}{}
		s.reloadedItems = append(s.reloadedItems, item)
	}
	return nil
}

// ReloadSections marks whole sections for content refresh.
func (s *Snapshot[S, I]) ReloadSections(sections ...S) error {
	for _, sec := range sections {
		if _, ok := s.items[sec]; !ok {
			return kiterrors.NewSnapshotError(kiterrors.OpReloadSections, kiterrors.ErrCodeMissingIdentity,
				fmt.Errorf("section %v not in snapshot", sec))
		}
	}
	for _, sec := range sections {
		if _, ok := s.reloadedSectionSet[sec]; ok {
			continue
		}
		s.reloadedSectionSet[sec] = struct{}{}
		s.reloadedSections = append(s.reloadedSections, sec)
	}
	return nil
}

func (s *Snapshot[S, I]) unmarkItemReload(item I) {
	if _, ok := s.reloadedItemSet[item]; !ok {
		return
	}
	delete(s.reloadedItemSet, item)
	s.reloadedItems = removeFirst(s.reloadedItems, item)
}

func (s *Snapshot[S, I]) unmarkSectionReload(sec S) {
	if _, ok := s.reloadedSectionSet[sec]; !ok {
		return
	}
	delete(s.reloadedSectionSet, sec)
	s.reloadedSections = removeFirst(s.reloadedSections, sec)
}

// clearReloadMarks drops all pending reload marks. The data source calls
// this on the baseline it stores after an apply so a mark fires exactly once.
func (s *Snapshot[S, I]) clearReloadMarks() {
	s.reloadedItems = nil
	s.reloadedItemSet = make(map[I]struct{})
	s.reloadedSections = nil
	s.reloadedSectionSet = make(map[S]struct{})
}

// NumberOfSections returns the number of sections in the snapshot.
func (s *Snapshot[S, I]) NumberOfSections() int {
	return len(s.sections)
}

// NumberOfItems returns the total number of items across all sections.
func (s *Snapshot[S, I]) NumberOfItems() int {
	return len(s.sectionOf)
}

// NumberOfItemsInSection returns the item count of a section, or 0 if the
// section is not in the snapshot.
func (s *Snapshot[S, I]) NumberOfItemsInSection(section S) int {
	return len(s.items[section])
}

// SectionIdentifiers returns the section identifiers in order.
func (s *Snapshot[S, I]) SectionIdentifiers() []S {
	out := make([]S, len(s.sections))
	copy(out, s.sections)
	return out
}

// ItemIdentifiers returns all item identifiers in flattened order: section
// by section, each section's items in order.
func (s *Snapshot[S, I]) ItemIdentifiers() []I {
	out := make([]I, 0, len(s.sectionOf))
	for _, sec := range s.sections {
		out = append(out, s.items[sec]...)
	}
	return out
}

// ItemIdentifiersInSection returns the ordered item identifiers of a
// section, or nil if the section is not in the snapshot.
func (s *Snapshot[S, I]) ItemIdentifiersInSection(section S) []I {
	contained, ok := s.items[section]
	if !ok {
		return nil
	}
	out := make([]I, len(contained))
	copy(out, contained)
	return out
}

// SectionOfItem returns the section containing the given item.
func (s *Snapshot[S, I]) SectionOfItem(item I) (S, bool) {
	sec, ok := s.sectionOf[item]
	return sec, ok
}

// IndexOfSection returns the position of a section.
func (s *Snapshot[S, I]) IndexOfSection(section S) (int, bool) {
	at, ok := s.ensureIndex().sectionAt[section]
	return at, ok
}

// IndexOfItem returns the flattened position of an item across all sections.
func (s *Snapshot[S, I]) IndexOfItem(item I) (int, bool) {
	at, ok := s.ensureIndex().itemAt[item]
	return at, ok
}

// ContainsSection reports whether the section is in the snapshot.
func (s *Snapshot[S, I]) ContainsSection(section S) bool {
	_, ok := s.items[section]
	return ok
}

// ContainsItem reports whether the item is in the snapshot.
func (s *Snapshot[S, I]) ContainsItem(item I) bool {
	_, ok := s.sectionOf[item]
	return ok
}

// ReloadedItemIdentifiers returns the items currently marked for reload, in
// mark order.
func (s *Snapshot[S, I]) ReloadedItemIdentifiers() []I {
	out := make([]I, len(s.reloadedItems))
	copy(out, s.reloadedItems)
	return out
}

// ReloadedSectionIdentifiers returns the sections currently marked for
// reload, in mark order.
func (s *Snapshot[S, I]) ReloadedSectionIdentifiers() []S {
	out := make([]S, len(s.reloadedSections))
	copy(out, s.reloadedSections)
	return out
}

// Clone returns a deep copy. Mutating the clone never affects the original.
func (s *Snapshot[S, I]) Clone() *Snapshot[S, I] {
	c := &Snapshot[S, I]{
		sections:           make([]S, len(s.sections)),
		items:              make(map[S][]I, len(s.items)),
		sectionOf:          make(map[I]S, len(s.sectionOf)),
		reloadedItems:      make([]I, len(s.reloadedItems)),
		reloadedItemSet:    make(map[I]struct{}, len(s.reloadedItemSet)),
		reloadedSections:   make([]S, len(s.reloadedSections)),
		reloadedSectionSet: make(map[S]struct{}, len(s.reloadedSectionSet)),
	}
	copy(c.sections, s.sections)
	for sec, contained := range s.items {
		dup := make([]I, len(contained))
		copy(dup, contained)
		c.items[sec] = dup
	}
	for item, sec := range s.sectionOf {
		c.sectionOf[item] = sec
	}
	copy(c.reloadedItems, s.reloadedItems)
	for item := range s.reloadedItemSet {
		c.reloadedItemSet[item] = struct{}{}
	}
	copy(c.reloadedSections, s.reloadedSections)
	for sec := range s.reloadedSectionSet {
		c.reloadedSectionSet[sec] = struct{}{}
	}
	return c
}

// Slice helpers shared by snapshot mutations. removeFirst and indexOf run a
// linear scan; mutations are O(n) on the affected section regardless, the
// lazy index keeps the hot read path fast.

func insertAt[T any](s []T, pos int, vals ...T) []T {
	out := make([]T, 0, len(s)+len(vals))
	out = append(out, s[:pos]...)
	out = append(out, vals...)
	out = append(out, s[pos:]...)
	return out
}

func removeFirst[T comparable](s []T, val T) []T {
	for i, v := range s {
		if v == val {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}

func indexOf[T comparable](s []T, val T) int {
	for i, v := range s {
		if v == val {
			return i
		}
	}
	return -1
}
