package landdemo

import (
	"statetree/pkg/statefield"
)

// cookieState is the single in-memory state tree for one cookieClicker
// Land instance. Every mutation happens on the single-writer loop, so no
// internal locking is needed beyond the Tracker's own (used only so its
// API can be shared verbatim with any future concurrent reader).
type cookieState struct {
	tracker *statefield.Tracker

	totalCookies int64
	players      map[string]int64   // playerID -> lifetime clicks, broadcast leaderboard
	upgrades     map[string][]string // playerID -> purchased upgrade names, perPlayerSlice
}

func newCookieState() interface{} {
	return &cookieState{
		tracker:  statefield.NewTracker(),
		players:  make(map[string]int64),
		upgrades: make(map[string][]string),
	}
}

func cloneCookieState(s interface{}) interface{} {
	cs := s.(*cookieState)

	players := make(map[string]int64, len(cs.players))
	for k, v := range cs.players {
		players[k] = v
	}
	upgrades := make(map[string][]string, len(cs.upgrades))
	for k, v := range cs.upgrades {
		upgrades[k] = append([]string(nil), v...)
	}

	return &cookieState{
		tracker:      statefield.NewTracker(),
		totalCookies: cs.totalCookies,
		players:      players,
		upgrades:     upgrades,
	}
}

const (
	fieldTotalCookies = "totalCookies"
	fieldPlayers      = "players"
	fieldUpgrades     = "privateUpgrades"
)

func cookieTable() statefield.Table {
	return statefield.Table{
		{
			Name:   fieldTotalCookies,
			Policy: statefield.Broadcast,
			Kind:   statefield.Leaf,
			Read: func(s interface{}) statefield.SnapshotValue {
				return statefield.Int(s.(*cookieState).totalCookies)
			},
			IsDirty:    func(s interface{}) bool { return s.(*cookieState).tracker.IsDirty(fieldTotalCookies) },
			ClearDirty: func(s interface{}) { s.(*cookieState).tracker.Clear(fieldTotalCookies) },
		},
		{
			Name:   fieldPlayers,
			Policy: statefield.Broadcast,
			Kind:   statefield.MapKind,
			Read: func(s interface{}) statefield.SnapshotValue {
				cs := s.(*cookieState)
				entries := make([]statefield.ObjectEntry, 0, len(cs.players))
				for playerID, clicks := range cs.players {
					entries = append(entries, statefield.Entry(playerID, statefield.Int(clicks)))
				}
				return statefield.Object(entries...)
			},
			IsDirty:    func(s interface{}) bool { return s.(*cookieState).tracker.IsDirty(fieldPlayers) },
			ClearDirty: func(s interface{}) { s.(*cookieState).tracker.Clear(fieldPlayers) },
		},
		{
			Name:   fieldUpgrades,
			Policy: statefield.PerPlayerSlice,
			Kind:   statefield.MapKind,
			Read: func(s interface{}) statefield.SnapshotValue {
				cs := s.(*cookieState)
				entries := make([]statefield.ObjectEntry, 0, len(cs.upgrades))
				for playerID, owned := range cs.upgrades {
					entries = append(entries, statefield.Entry(playerID, upgradesValue(owned)))
				}
				return statefield.Object(entries...)
			},
			IsDirty:    func(s interface{}) bool { return s.(*cookieState).tracker.IsDirty(fieldUpgrades) },
			ClearDirty: func(s interface{}) { s.(*cookieState).tracker.Clear(fieldUpgrades) },
			DirtyKeys: func(s interface{}) []string {
				return s.(*cookieState).tracker.DirtySliceKeys(fieldUpgrades)
			},
			SliceValue: func(s interface{}, playerID string) (statefield.SnapshotValue, bool) {
				cs := s.(*cookieState)
				owned, ok := cs.upgrades[playerID]
				if !ok {
					return statefield.SnapshotValue{}, false
				}
				return upgradesValue(owned), true
			},
			AllSliceKeys: func(s interface{}) []string {
				cs := s.(*cookieState)
				keys := make([]string, 0, len(cs.upgrades))
				for playerID := range cs.upgrades {
					keys = append(keys, playerID)
				}
				return keys
			},
		},
	}
}

func upgradesValue(owned []string) statefield.SnapshotValue {
	items := make([]statefield.SnapshotValue, 0, len(owned))
	for _, name := range owned {
		items = append(items, statefield.String(name))
	}
	return statefield.Array(items...)
}
