package statesync

import "statetree/pkg/statefield"

// UpdateKind tags the StateUpdate variant: `firstSync(patches) |
// diff(patches) | noChange` from spec.md §3.
type UpdateKind string

const (
	UpdateFirstSync UpdateKind = "firstSync"
	UpdateDiff      UpdateKind = "diff"
	UpdateNoChange  UpdateKind = "noChange"
)

// StateUpdate is what a LandKeeper sends a session after each op, per
// spec.md §4.2's per-session emission rule.
type StateUpdate struct {
	Kind    UpdateKind
	Patches []Patch
}

// NoChange is the update sent (or, per spec.md §8, optionally suppressed
// entirely) when a session's snapshot hasn't moved.
func NoChange() StateUpdate { return StateUpdate{Kind: UpdateNoChange} }

// SessionSync tracks one joined session's sync bookkeeping: whether its
// first snapshot is still pending, and the last snapshot it was sent — the
// two pieces of per-session state spec.md §3 calls out for Session.
//
// This mirrors the per-client "Full vs Diff vs Broadcast" projection shape
// used by generic state-sync session helpers in the broader ecosystem: one
// small struct holding "what did this viewer last see".
type SessionSync struct {
	Viewer           Viewer
	FirstSyncPending bool
	lastSent         statefield.SnapshotValue
}

// NewSessionSync creates sync bookkeeping for a freshly joined session;
// FirstSyncPending starts true per spec.md §4.4's Join handling.
func NewSessionSync(viewer Viewer) *SessionSync {
	return &SessionSync{
		Viewer:           viewer,
		FirstSyncPending: true,
		lastSent:         statefield.EmptyObject(),
	}
}

// ComputeUpdate implements the per-session emission rule of spec.md §4.2:
// first sync emits a firstSync update diffed against the empty object and
// clears the pending flag; subsequent calls diff the session's own
// snapshot-for-viewer against what was last sent, returning NoChange when
// nothing moved.
func (s *SessionSync) ComputeUpdate(table statefield.Table, state interface{}) StateUpdate {
	current := Snapshot(table, state, s.Viewer)

	if s.FirstSyncPending {
		patches := Diff(statefield.EmptyObject(), current)
		s.lastSent = current
		s.FirstSyncPending = false
		return StateUpdate{Kind: UpdateFirstSync, Patches: patches}
	}

	patches := Diff(s.lastSent, current)
	s.lastSent = current
	if len(patches) == 0 {
		return NoChange()
	}
	return StateUpdate{Kind: UpdateDiff, Patches: patches}
}

// ApplyFastPathDiff updates lastSent using a diff already computed by the
// caller against a shared broadcast-only snapshot (the "fast path" of
// spec.md §4.2), skipping a redundant per-session Snapshot+Diff call when
// only broadcast fields are dirty and this session has no perPlayerSlice
// of its own to worry about.
func (s *SessionSync) ApplyFastPathDiff(nextBroadcastSnapshot statefield.SnapshotValue, patches []Patch) StateUpdate {
	s.lastSent = nextBroadcastSnapshot
	if len(patches) == 0 {
		return NoChange()
	}
	return StateUpdate{Kind: UpdateDiff, Patches: patches}
}
