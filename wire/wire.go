// Package wire provides a stable, versioned JSON encoding for snapshots so
// they can be persisted or shipped across process boundaries.
//
// Sections serialize as an ordered array of objects rather than a map, so
// any JSON-marshalable identifier type works without map-key restrictions.
// Decoding rebuilds the snapshot through its mutation operations, which
// means the identity invariants are re-checked on every ingest.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	diffable "github.com/c0deZ3R0/go-diffable-kit"
	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
)

const (
	// Kind identifies a snapshot envelope.
	Kind = "snapshot"

	// Version is the current payload schema version.
	Version = 1
)

// Maximum allowed size for a wire snapshot payload.
const maxWireSnapshotSize = 16 << 20 // 16 MB

// Envelope is the typed union for persisted snapshots.
type Envelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type sectionPayload[S comparable, I comparable] struct {
	ID       S    `json:"id"`
	Items    []I  `json:"items,omitempty"`
	Reloaded bool `json:"reloaded,omitempty"`
}

type snapshotPayload[S comparable, I comparable] struct {
	Sections      []sectionPayload[S, I] `json:"sections"`
	ReloadedItems []I                    `json:"reloaded_items,omitempty"`
}

// Marshal encodes a snapshot into an enveloped wire form.
func Marshal[S comparable, I comparable](snap *diffable.Snapshot[S, I]) ([]byte, error) {
	if snap == nil {
		return nil, kiterrors.NewEncodingError(kiterrors.OpEncode, errors.New("nil snapshot"))
	}

	reloadedSections := make(map[S]struct{})
	for _, sec := range snap.ReloadedSectionIdentifiers() {
		reloadedSections[sec] = struct{}{}
	}

	payload := snapshotPayload[S, I]{
		ReloadedItems: snap.ReloadedItemIdentifiers(),
	}
	for _, sec := range snap.SectionIdentifiers() {
		_, reloaded := reloadedSections[sec]
		payload.Sections = append(payload.Sections, sectionPayload[S, I]{
			ID:       sec,
			Items:    snap.ItemIdentifiersInSection(sec),
			Reloaded: reloaded,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, kiterrors.NewEncodingError(kiterrors.OpEncode, err)
	}

	out, err := json.Marshal(Envelope{Kind: Kind, Version: Version, Data: data})
	if err != nil {
		return nil, kiterrors.NewEncodingError(kiterrors.OpEncode, err)
	}
	if len(out) > maxWireSnapshotSize {
		return nil, kiterrors.NewEncodingError(kiterrors.OpEncode,
			fmt.Errorf("snapshot payload too large: %d bytes", len(out)))
	}
	return out, nil
}

// Validate checks the envelope without decoding the payload.
func Validate(data []byte) error {
	if len(data) == 0 {
		return kiterrors.NewEncodingError(kiterrors.OpDecode, errors.New("empty payload"))
	}
	if len(data) > maxWireSnapshotSize {
		return kiterrors.NewEncodingError(kiterrors.OpDecode,
			fmt.Errorf("snapshot payload too large: %d bytes", len(data)))
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return kiterrors.NewEncodingError(kiterrors.OpDecode, err)
	}
	if env.Kind != Kind {
		return kiterrors.NewEncodingError(kiterrors.OpDecode,
			fmt.Errorf("unknown envelope kind: %s", env.Kind))
	}
	if env.Version != Version {
		return kiterrors.NewEncodingError(kiterrors.OpDecode,
			fmt.Errorf("unsupported payload version: %d", env.Version))
	}
	return nil
}

// Unmarshal decodes an enveloped wire form back into a snapshot. Identity
// violations in the payload surface as the snapshot mutation errors they
// would raise when built directly.
func Unmarshal[S comparable, I comparable](data []byte) (*diffable.Snapshot[S, I], error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, kiterrors.NewEncodingError(kiterrors.OpDecode, err)
	}
	var payload snapshotPayload[S, I]
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, kiterrors.NewEncodingError(kiterrors.OpDecode, err)
	}

	snap := diffable.NewSnapshot[S, I]()
	for _, sec := range payload.Sections {
		if err := snap.AppendSections(sec.ID); err != nil {
			return nil, err
		}
		if len(sec.Items) > 0 {
			if err := snap.AppendItems(sec.ID, sec.Items...); err != nil {
				return nil, err
			}
		}
	}
	for _, sec := range payload.Sections {
		if sec.Reloaded {
			if err := snap.ReloadSections(sec.ID); err != nil {
				return nil, err
			}
		}
	}
	if len(payload.ReloadedItems) > 0 {
		if err := snap.ReloadItems(payload.ReloadedItems...); err != nil {
			return nil, err
		}
	}
	return snap, nil
}
