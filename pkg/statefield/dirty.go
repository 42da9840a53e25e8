package statefield

import "sync"

// Tracker is a mutation-wrapper dirty bitmap: Land state types embed one
// and call Mark/MarkSliceKey from their mutator methods. This is the
// "mutation-wrapper API that flips per-field bits" option named in
// spec.md §4.1 — chosen over a copy-on-write comparison because it avoids
// requiring every state type to implement a deep Clone/Equal pair, and
// over a versioned arena because it needs no extra per-field counters.
//
// Tracker is safe for concurrent use, though in practice only the owning
// LandKeeper's single writer goroutine ever touches it.
type Tracker struct {
	mu        sync.Mutex
	dirty     map[string]bool
	sliceKeys map[string]map[string]bool
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		dirty:     make(map[string]bool),
		sliceKeys: make(map[string]map[string]bool),
	}
}

// Mark flags a field dirty.
func (t *Tracker) Mark(field string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty[field] = true
}

// IsDirty reports whether a field has been marked since the last Clear.
func (t *Tracker) IsDirty(field string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty[field]
}

// Clear resets a single field's dirty flag.
func (t *Tracker) Clear(field string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.dirty, field)
}

// MarkSliceKey flags a single playerID's slice dirty within a
// PerPlayerSlice field, without marking the whole field (the field-level
// bit is reserved for "the map's key set itself changed", e.g. add/remove
// of a player).
func (t *Tracker) MarkSliceKey(field, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys, ok := t.sliceKeys[field]
	if !ok {
		keys = make(map[string]bool)
		t.sliceKeys[field] = keys
	}
	keys[key] = true
}

// DirtySliceKeys returns the playerIDs whose slice changed for a field
// since the last ClearSliceKeys, in no particular order (the sync engine
// sorts when it needs determinism).
func (t *Tracker) DirtySliceKeys(field string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := t.sliceKeys[field]
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}

// ClearSliceKeys resets the per-key dirty set for a field.
func (t *Tracker) ClearSliceKeys(field string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sliceKeys, field)
}

// ClearAll resets every field and slice-key dirty bit, called once per op
// after the sync pass has read them (spec.md §4.4's clearDirtyAll step).
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty = make(map[string]bool)
	t.sliceKeys = make(map[string]map[string]bool)
}
