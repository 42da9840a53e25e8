package statefield

import "fmt"

// Policy is one of the four sync policies a stored field may carry.
type Policy int

const (
	// Broadcast fields are visible to every joined session.
	Broadcast Policy = iota
	// PerPlayerSlice fields are maps keyed by playerID; each session sees
	// only its own key.
	PerPlayerSlice
	// ServerOnly fields never leave the server.
	ServerOnly
	// Internal fields are not even visible to the sync engine.
	Internal
)

// String renders the policy the way it is named on the wire and in specs.
func (p Policy) String() string {
	switch p {
	case Broadcast:
		return "broadcast"
	case PerPlayerSlice:
		return "perPlayerSlice"
	case ServerOnly:
		return "serverOnly"
	case Internal:
		return "internal"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Kind distinguishes a leaf value from a map or a nested node, per
// spec.md §4.1's FieldDescriptor.kind.
type Kind int

const (
	Leaf Kind = iota
	MapKind
	NestedNode
)

// Descriptor is one row of a Land's FieldDescriptor table. Read/Write/
// IsDirty/ClearDirty close over the concrete state type a Land definition
// uses, so the table itself stays free of reflection on the hot path, per
// spec.md §9's "hot-path reflection is disallowed" note.
type Descriptor struct {
	Name   string
	Policy Policy
	Kind   Kind

	// Read yields the current value of this field as a SnapshotValue.
	Read func(state interface{}) SnapshotValue

	// Write applies an inbound SnapshotValue to the field. Most fields are
	// mutated by handler code directly rather than through Write; Write
	// exists for admin tooling and schema-driven field population.
	Write func(state interface{}, value SnapshotValue) error

	// IsDirty reports whether the field has changed since the last
	// ClearDirty. Always used for Broadcast/ServerOnly/Internal fields;
	// PerPlayerSlice fields additionally use DirtyKeys for per-key
	// granularity.
	IsDirty func(state interface{}) bool

	// ClearDirty resets the dirty flag after a sync pass has read it.
	ClearDirty func(state interface{})

	// DirtyKeys, for PerPlayerSlice fields only, returns the set of
	// playerIDs whose slice changed since the last ClearDirty. nil for
	// other policies.
	DirtyKeys func(state interface{}) []string

	// SliceValue, for PerPlayerSlice fields only, returns the slice value
	// for a single playerID (or the zero SnapshotValue + false if that
	// player has no slice yet).
	SliceValue func(state interface{}, playerID string) (SnapshotValue, bool)

	// AllSliceKeys, for PerPlayerSlice fields only, returns every playerID
	// currently holding a slice, used to build the admin/nil-session "whole
	// map" view and to detect key removal (e.g. on Leave).
	AllSliceKeys func(state interface{}) []string
}

// Table is an ordered FieldDescriptor table: declaration order doubles as
// the snapshot field-iteration order spec.md §4.2 requires.
type Table []Descriptor

// Validate checks the structural invariants spec.md §4.1 requires at Land
// creation: every descriptor has a name, no duplicate names, and
// PerPlayerSlice descriptors carry the extra per-key accessors.
func (t Table) Validate() error {
	seen := make(map[string]bool, len(t))
	for _, d := range t {
		if d.Name == "" {
			return fmt.Errorf("statefield: descriptor with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("statefield: duplicate field descriptor %q", d.Name)
		}
		seen[d.Name] = true

		if d.Read == nil || d.IsDirty == nil || d.ClearDirty == nil {
			return fmt.Errorf("statefield: descriptor %q missing read/isDirty/clearDirty", d.Name)
		}

		if d.Policy == PerPlayerSlice {
			if d.DirtyKeys == nil || d.SliceValue == nil || d.AllSliceKeys == nil {
				return fmt.Errorf("statefield: perPlayerSlice descriptor %q missing per-key accessors", d.Name)
			}
		}
	}
	return nil
}

// ByName looks up a single descriptor, used by admin tooling and the
// schema-driven Write path.
func (t Table) ByName(name string) (Descriptor, bool) {
	for _, d := range t {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
