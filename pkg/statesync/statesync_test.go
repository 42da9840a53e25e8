package statesync_test

import (
	"testing"

	"statetree/pkg/statefield"
	"statetree/pkg/statesync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cookieState is a minimal stand-in for a Land's real state type, matching
// the cookie-clicker example from spec.md §8.
type cookieState struct {
	totalCookies int64
	privates     map[string]int64 // playerID -> cursor upgrade level
}

func cookieTable() statefield.Table {
	return statefield.Table{
		{
			Name:   "totalCookies",
			Policy: statefield.Broadcast,
			Kind:   statefield.Leaf,
			Read: func(s interface{}) statefield.SnapshotValue {
				return statefield.Int(s.(*cookieState).totalCookies)
			},
			IsDirty:    func(interface{}) bool { return false },
			ClearDirty: func(interface{}) {},
		},
		{
			Name:   "privateStates",
			Policy: statefield.PerPlayerSlice,
			Kind:   statefield.MapKind,
			Read: func(s interface{}) statefield.SnapshotValue {
				cs := s.(*cookieState)
				entries := make([]statefield.ObjectEntry, 0, len(cs.privates))
				for pid, v := range cs.privates {
					entries = append(entries, statefield.Entry(pid, statefield.Object(
						statefield.Entry("cursor", statefield.Int(v)),
					)))
				}
				return statefield.Object(entries...)
			},
			IsDirty:    func(interface{}) bool { return false },
			ClearDirty: func(interface{}) {},
			SliceValue: func(s interface{}, playerID string) (statefield.SnapshotValue, bool) {
				cs := s.(*cookieState)
				v, ok := cs.privates[playerID]
				if !ok {
					return statefield.SnapshotValue{}, false
				}
				return statefield.Object(statefield.Entry("cursor", statefield.Int(v))), true
			},
			AllSliceKeys: func(s interface{}) []string {
				cs := s.(*cookieState)
				keys := make([]string, 0, len(cs.privates))
				for k := range cs.privates {
					keys = append(keys, k)
				}
				return keys
			},
			DirtyKeys: func(interface{}) []string { return nil },
		},
	}
}

func TestFirstSyncOnJoin(t *testing.T) {
	table := cookieTable()
	state := &cookieState{privates: map[string]int64{}}

	sess := statesync.NewSessionSync(statesync.ViewerFor("p1"))
	update := sess.ComputeUpdate(table, state)

	require.Equal(t, statesync.UpdateFirstSync, update.Kind)
	assert.Len(t, update.Patches, 2)
	assert.Equal(t, "/totalCookies", update.Patches[0].Path)
	assert.Equal(t, statesync.OpAdd, update.Patches[0].Op)
	assert.Equal(t, "/privateStates", update.Patches[1].Path)
}

func TestBroadcastUpdateVisibleToAll(t *testing.T) {
	table := cookieTable()
	state := &cookieState{privates: map[string]int64{}}

	a := statesync.NewSessionSync(statesync.ViewerFor("p1"))
	b := statesync.NewSessionSync(statesync.ViewerFor("p2"))
	_ = a.ComputeUpdate(table, state)
	_ = b.ComputeUpdate(table, state)

	state.totalCookies = 1

	ua := a.ComputeUpdate(table, state)
	ub := b.ComputeUpdate(table, state)

	for _, u := range []statesync.StateUpdate{ua, ub} {
		require.Equal(t, statesync.UpdateDiff, u.Kind)
		require.Len(t, u.Patches, 1)
		assert.Equal(t, "/totalCookies", u.Patches[0].Path)
		assert.Equal(t, statesync.OpReplace, u.Patches[0].Op)
	}
}

func TestPerPlayerSliceIsolation(t *testing.T) {
	table := cookieTable()
	state := &cookieState{privates: map[string]int64{}}

	a := statesync.NewSessionSync(statesync.ViewerFor("p1"))
	b := statesync.NewSessionSync(statesync.ViewerFor("p2"))
	_ = a.ComputeUpdate(table, state)
	_ = b.ComputeUpdate(table, state)

	state.privates["p1"] = 1

	ua := a.ComputeUpdate(table, state)
	ub := b.ComputeUpdate(table, state)

	require.Equal(t, statesync.UpdateDiff, ua.Kind)
	require.Len(t, ua.Patches, 1)
	assert.Equal(t, "/privateStates/p1", ua.Patches[0].Path)
	assert.Equal(t, statesync.OpAdd, ua.Patches[0].Op)

	assert.Equal(t, statesync.UpdateNoChange, ub.Kind)
}

func TestDiffArraysReplacedAtomically(t *testing.T) {
	prev := statefield.Object(statefield.Entry("items", statefield.Array(statefield.Int(1), statefield.Int(2))))
	next := statefield.Object(statefield.Entry("items", statefield.Array(statefield.Int(1), statefield.Int(2), statefield.Int(3))))

	patches := statesync.Diff(prev, next)
	require.Len(t, patches, 1)
	assert.Equal(t, statesync.OpReplace, patches[0].Op)
	assert.Equal(t, "/items", patches[0].Path)
}

func TestDiffEscapesJSONPointerTokens(t *testing.T) {
	prev := statefield.Object()
	next := statefield.Object(statefield.Entry("a/b~c", statefield.Int(1)))

	patches := statesync.Diff(prev, next)
	require.Len(t, patches, 1)
	assert.Equal(t, "/a~1b~0c", patches[0].Path)
}
