package statesync

import (
	"strings"

	"statetree/pkg/statefield"
)

// PatchOp is one of the three JSON-Patch operations spec.md §3 allows.
type PatchOp string

const (
	OpAdd     PatchOp = "add"
	OpReplace PatchOp = "replace"
	OpRemove  PatchOp = "remove"
)

// Patch is `{op, path: JSONPointer, value?: SnapshotValue}`.
type Patch struct {
	Op    PatchOp
	Path  string
	Value *statefield.SnapshotValue
}

// Diff implements `diff(prevSnapshot, nextSnapshot) -> [Patch]` from
// spec.md §4.2: objects are compared key-by-key, recursing into keys
// present in both; arrays and primitive leaves are replaced atomically
// when unequal, never patched positionally.
func Diff(prev, next statefield.SnapshotValue) []Patch {
	var patches []Patch
	diffValue("", prev, next, &patches)
	return patches
}

func diffValue(path string, prev, next statefield.SnapshotValue, out *[]Patch) {
	if prev.Kind == statefield.SVObject && next.Kind == statefield.SVObject {
		diffObject(path, prev, next, out)
		return
	}

	if !statefield.Equal(prev, next) {
		v := next
		*out = append(*out, Patch{Op: OpReplace, Path: path, Value: &v})
	}
}

func diffObject(path string, prev, next statefield.SnapshotValue, out *[]Patch) {
	prevByKey := make(map[string]statefield.SnapshotValue, len(prev.Object))
	for _, e := range prev.Object {
		prevByKey[e.Key] = e.Value
	}
	nextByKey := make(map[string]statefield.SnapshotValue, len(next.Object))
	for _, e := range next.Object {
		nextByKey[e.Key] = e.Value
	}

	// Removed keys, in prev's declaration order for determinism.
	for _, e := range prev.Object {
		if _, ok := nextByKey[e.Key]; !ok {
			*out = append(*out, Patch{Op: OpRemove, Path: joinPointer(path, e.Key)})
		}
	}

	// Added/changed keys, in next's declaration order.
	for _, e := range next.Object {
		prevValue, existed := prevByKey[e.Key]
		childPath := joinPointer(path, e.Key)
		if !existed {
			v := e.Value
			*out = append(*out, Patch{Op: OpAdd, Path: childPath, Value: &v})
			continue
		}
		diffValue(childPath, prevValue, e.Value, out)
	}
}

// joinPointer appends a key to a JSON-Pointer path, escaping per RFC 6901
// (`~` -> `~0`, `/` -> `~1`, in that order).
func joinPointer(base, key string) string {
	escaped := strings.ReplaceAll(key, "~", "~0")
	escaped = strings.ReplaceAll(escaped, "/", "~1")
	return base + "/" + escaped
}
