// Package statesync converts a Land's state into per-viewer snapshots and
// synthesizes JSON-Patch-shaped diffs between successive snapshots, per
// spec.md §4.2.
package statesync

import "statetree/pkg/statefield"

// Viewer identifies who a snapshot is being built for. The zero Viewer
// (Admin=false, PlayerID="") is never passed to Snapshot directly — callers
// use ViewerAdmin for the nil-session admin/audit view or ViewerFor(playerID)
// for a specific session.
type Viewer struct {
	PlayerID string
	Admin    bool
}

// ViewerAdmin requests the full admin/audit view: perPlayerSlice fields are
// included in their entirety rather than filtered to one player's key.
var ViewerAdmin = Viewer{Admin: true}

// ViewerFor builds a Viewer for a specific joined session's playerID.
func ViewerFor(playerID string) Viewer {
	return Viewer{PlayerID: playerID}
}

// Snapshot implements `snapshot(state, forSession) -> SnapshotValue(object)`
// from spec.md §4.2: fields are enumerated in declaration order; broadcast
// fields are included in full; perPlayerSlice fields are filtered to the
// viewer's own key (or included whole for the admin viewer); serverOnly and
// internal fields are omitted entirely.
func Snapshot(table statefield.Table, state interface{}, viewer Viewer) statefield.SnapshotValue {
	entries := make([]statefield.ObjectEntry, 0, len(table))

	for _, d := range table {
		switch d.Policy {
		case statefield.Broadcast:
			entries = append(entries, statefield.Entry(d.Name, d.Read(state)))

		case statefield.PerPlayerSlice:
			entries = append(entries, statefield.Entry(d.Name, sliceView(d, state, viewer)))

		case statefield.ServerOnly, statefield.Internal:
			// Never leaves the server / never visible to the sync engine.

		default:
			entries = append(entries, statefield.Entry(d.Name, d.Read(state)))
		}
	}

	return statefield.Object(entries...)
}

func sliceView(d statefield.Descriptor, state interface{}, viewer Viewer) statefield.SnapshotValue {
	if viewer.Admin {
		return d.Read(state)
	}
	if viewer.PlayerID == "" {
		return statefield.EmptyObject()
	}
	value, ok := d.SliceValue(state, viewer.PlayerID)
	if !ok {
		return statefield.EmptyObject()
	}
	return statefield.Object(statefield.Entry(viewer.PlayerID, value))
}
