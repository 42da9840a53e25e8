package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"statetree/pkg/integration"
	"statetree/pkg/statefield"

	"gopkg.in/yaml.v3"
)

// FieldSchema describes one field of a land's state tree as loaded from a
// YAML schema file, per spec.md §9's "macro-generated metadata" alternative:
// a LandDefinition's FieldDescriptor table can be assembled from one of
// these instead of being written by hand in Go.
type FieldSchema struct {
	Name   string `yaml:"name"`
	Policy string `yaml:"policy"` // broadcast | perPlayerSlice | serverOnly | internal
	Kind   string `yaml:"kind"`   // scalar | map | list
}

// LandSchema is the top-level shape of a land schema YAML file: a land type
// name plus the ordered list of fields making up its state tree.
type LandSchema struct {
	LandType string        `yaml:"landType"`
	Fields   []FieldSchema `yaml:"fields"`
}

// LoadLandSchema loads a land field schema from a YAML file and returns it
// as a LandSchema. This function is protected by both circuit breaker and
// retry patterns to prevent cascade failures and handle transient file
// system issues.
//
// Parameters:
//   - filename: Path to the YAML file containing the land schema
//
// Returns:
//   - *LandSchema: The parsed schema
//   - error: File read, YAML parsing, circuit breaker, or retry errors if any occurred
func LoadLandSchema(filename string) (*LandSchema, error) {
	var schema LandSchema
	ctx := context.Background()

	err := integration.ExecuteConfigOperation(ctx, func(ctx context.Context) error {
		data, err := os.ReadFile(filename)
		if err != nil {
			return err
		}

		if err := yaml.Unmarshal(data, &schema); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if schema.LandType == "" {
		return nil, fmt.Errorf("land schema %s: missing landType", filename)
	}

	if err := schema.validate(); err != nil {
		return nil, fmt.Errorf("land schema %s: %w", filename, err)
	}

	return &schema, nil
}

func (s *LandSchema) validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		if _, err := parsePolicy(f.Policy); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		switch f.Kind {
		case "scalar", "map", "list":
		default:
			return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
		if f.Kind == "list" && f.Policy != "perPlayerSlice" {
			return fmt.Errorf("field %q: kind list is only valid with policy perPlayerSlice", f.Name)
		}
	}
	return nil
}

func parsePolicy(name string) (statefield.Policy, error) {
	switch name {
	case "broadcast":
		return statefield.Broadcast, nil
	case "perPlayerSlice":
		return statefield.PerPlayerSlice, nil
	case "serverOnly":
		return statefield.ServerOnly, nil
	case "internal":
		return statefield.Internal, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", name)
	}
}

// SchemaState is the generic state container a schema-loaded land uses in
// place of a hand-written Go struct: every field BuildFieldTable describes
// lives in one of two maps here, keyed by field name, rather than as a
// named struct field. Handlers for a schema-loaded land are necessarily
// generic (SetScalar/SetSlice) since the field set is only known at load
// time, not at compile time.
type SchemaState struct {
	mu sync.RWMutex

	scalars     map[string]statefield.SnapshotValue
	scalarDirty map[string]bool
	slices      map[string]map[string]statefield.SnapshotValue
	sliceDirty  map[string]map[string]bool
}

// NewSchemaState builds a zero-valued SchemaState for the given schema:
// every scalar/map field starts at its kind's zero SnapshotValue, every
// perPlayerSlice field starts with no keys.
func NewSchemaState(schema *LandSchema) *SchemaState {
	st := &SchemaState{
		scalars:     make(map[string]statefield.SnapshotValue),
		scalarDirty: make(map[string]bool),
		slices:      make(map[string]map[string]statefield.SnapshotValue),
		sliceDirty:  make(map[string]map[string]bool),
	}
	for _, f := range schema.Fields {
		policy, _ := parsePolicy(f.Policy)
		if policy == statefield.PerPlayerSlice {
			st.slices[f.Name] = make(map[string]statefield.SnapshotValue)
			st.sliceDirty[f.Name] = make(map[string]bool)
			continue
		}
		st.scalars[f.Name] = zeroValueForKind(f.Kind)
	}
	return st
}

// CloneSchemaState produces a deep-enough copy for the keeper's
// rollback-on-panic guarantee: every map is copied so mutating the clone
// never touches the original's storage.
func CloneSchemaState(state interface{}) interface{} {
	src := state.(*SchemaState)
	src.mu.RLock()
	defer src.mu.RUnlock()

	dst := &SchemaState{
		scalars:     make(map[string]statefield.SnapshotValue, len(src.scalars)),
		scalarDirty: make(map[string]bool, len(src.scalarDirty)),
		slices:      make(map[string]map[string]statefield.SnapshotValue, len(src.slices)),
		sliceDirty:  make(map[string]map[string]bool, len(src.sliceDirty)),
	}
	for k, v := range src.scalars {
		dst.scalars[k] = v
	}
	for k, v := range src.scalarDirty {
		dst.scalarDirty[k] = v
	}
	for field, byPlayer := range src.slices {
		cp := make(map[string]statefield.SnapshotValue, len(byPlayer))
		for k, v := range byPlayer {
			cp[k] = v
		}
		dst.slices[field] = cp
	}
	for field, byPlayer := range src.sliceDirty {
		cp := make(map[string]bool, len(byPlayer))
		for k, v := range byPlayer {
			cp[k] = v
		}
		dst.sliceDirty[field] = cp
	}
	return dst
}

func zeroValueForKind(kind string) statefield.SnapshotValue {
	switch kind {
	case "map":
		return statefield.SnapshotValue{Kind: statefield.SVObject}
	default:
		return statefield.SnapshotValue{Kind: statefield.SVNull}
	}
}

// SetScalar writes a broadcast/serverOnly/internal field and marks it dirty.
// It is the write path schema-driven actions use in place of a field-
// specific handler.
func (s *SchemaState) SetScalar(name string, v statefield.SnapshotValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars[name] = v
	s.scalarDirty[name] = true
}

// SetSlice writes one player's entry of a perPlayerSlice field and marks
// that key dirty.
func (s *SchemaState) SetSlice(name, playerID string, v statefield.SnapshotValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slices[name] == nil {
		s.slices[name] = make(map[string]statefield.SnapshotValue)
		s.sliceDirty[name] = make(map[string]bool)
	}
	s.slices[name][playerID] = v
	s.sliceDirty[name][playerID] = true
}

// RemoveSlice deletes one player's entry of a perPlayerSlice field, used by
// a generic OnLeave to drop per-player state for fields that should not
// outlive the session.
func (s *SchemaState) RemoveSlice(name, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slices[name] == nil {
		return
	}
	delete(s.slices[name], playerID)
	if s.sliceDirty[name] == nil {
		s.sliceDirty[name] = make(map[string]bool)
	}
	s.sliceDirty[name][playerID] = true
}

// BuildFieldTable converts a LandSchema into a statefield.Table: one
// Descriptor per FieldSchema, with Read/Write/IsDirty/ClearDirty (and, for
// perPlayerSlice fields, DirtyKeys/SliceValue/AllSliceKeys) closing over a
// *SchemaState rather than a hand-written Go struct field. This is the
// path that makes LoadLandSchema's output usable by a land.Definition
// instead of a parsed-but-discarded value.
func BuildFieldTable(schema *LandSchema) (statefield.Table, error) {
	table := make(statefield.Table, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		policy, err := parsePolicy(f.Policy)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}

		name := f.Name
		if policy == statefield.PerPlayerSlice {
			table = append(table, statefield.Descriptor{
				Name:   name,
				Policy: policy,
				Kind:   statefield.Leaf,
				Read: func(state interface{}) statefield.SnapshotValue {
					return perPlayerSliceAsObject(state.(*SchemaState), name)
				},
				Write: func(state interface{}, v statefield.SnapshotValue) error {
					return fmt.Errorf("statetree: schema field %q is perPlayerSlice; write via SetSlice", name)
				},
				IsDirty: func(state interface{}) bool {
					st := state.(*SchemaState)
					st.mu.RLock()
					defer st.mu.RUnlock()
					for _, dirty := range st.sliceDirty[name] {
						if dirty {
							return true
						}
					}
					return false
				},
				ClearDirty: func(state interface{}) {
					st := state.(*SchemaState)
					st.mu.Lock()
					defer st.mu.Unlock()
					for k := range st.sliceDirty[name] {
						st.sliceDirty[name][k] = false
					}
				},
				DirtyKeys: func(state interface{}) []string {
					st := state.(*SchemaState)
					st.mu.RLock()
					defer st.mu.RUnlock()
					var keys []string
					for k, dirty := range st.sliceDirty[name] {
						if dirty {
							keys = append(keys, k)
						}
					}
					sort.Strings(keys)
					return keys
				},
				SliceValue: func(state interface{}, playerID string) (statefield.SnapshotValue, bool) {
					st := state.(*SchemaState)
					st.mu.RLock()
					defer st.mu.RUnlock()
					v, ok := st.slices[name][playerID]
					return v, ok
				},
				AllSliceKeys: func(state interface{}) []string {
					st := state.(*SchemaState)
					st.mu.RLock()
					defer st.mu.RUnlock()
					keys := make([]string, 0, len(st.slices[name]))
					for k := range st.slices[name] {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					return keys
				},
			})
			continue
		}

		kind := statefield.Leaf
		if f.Kind == "map" {
			kind = statefield.NestedNode
		}
		table = append(table, statefield.Descriptor{
			Name:   name,
			Policy: policy,
			Kind:   kind,
			Read: func(state interface{}) statefield.SnapshotValue {
				st := state.(*SchemaState)
				st.mu.RLock()
				defer st.mu.RUnlock()
				return st.scalars[name]
			},
			Write: func(state interface{}, v statefield.SnapshotValue) error {
				state.(*SchemaState).SetScalar(name, v)
				return nil
			},
			IsDirty: func(state interface{}) bool {
				st := state.(*SchemaState)
				st.mu.RLock()
				defer st.mu.RUnlock()
				return st.scalarDirty[name]
			},
			ClearDirty: func(state interface{}) {
				st := state.(*SchemaState)
				st.mu.Lock()
				defer st.mu.Unlock()
				st.scalarDirty[name] = false
			},
		})
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("schema %q: %w", schema.LandType, err)
	}
	return table, nil
}

// perPlayerSliceAsObject renders a perPlayerSlice field as a single object
// keyed by playerID, for callers (admin tooling, AllSliceKeys-based whole-
// map views) that want the server-side view rather than one session's
// filtered slice.
func perPlayerSliceAsObject(st *SchemaState, name string) statefield.SnapshotValue {
	st.mu.RLock()
	defer st.mu.RUnlock()
	byPlayer := st.slices[name]
	keys := make([]string, 0, len(byPlayer))
	for k := range byPlayer {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]statefield.ObjectEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, statefield.ObjectEntry{Key: k, Value: byPlayer[k]})
	}
	return statefield.SnapshotValue{Kind: statefield.SVObject, Object: entries}
}
