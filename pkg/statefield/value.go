// Package statefield implements the FieldDescriptor table contract: typed
// state nodes with a per-field sync policy, a dirty bitmap, and the
// SnapshotValue tagged union used to express state as wire-safe data.
package statefield

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SVKind tags the variant held by a SnapshotValue.
type SVKind int

const (
	SVNull SVKind = iota
	SVBool
	SVInt
	SVDouble
	SVString
	SVArray
	SVObject
)

// ObjectEntry is one key/value pair of an SVObject, kept in declaration
// order rather than a Go map so that snapshot encoding matches the
// field-declaration order the wire contract requires.
type ObjectEntry struct {
	Key   string
	Value SnapshotValue
}

// SnapshotValue is the tagged union `null | bool | int | double | string |
// array[SnapshotValue] | object{string->SnapshotValue}` that every
// FieldDescriptor.Read produces.
type SnapshotValue struct {
	Kind   SVKind
	Bool   bool
	Int    int64
	Double float64
	Str    string
	Array  []SnapshotValue
	Object []ObjectEntry
}

// Null returns the null SnapshotValue.
func Null() SnapshotValue { return SnapshotValue{Kind: SVNull} }

// Bool wraps a boolean.
func Bool(b bool) SnapshotValue { return SnapshotValue{Kind: SVBool, Bool: b} }

// Int wraps a 64-bit integer.
func Int(i int64) SnapshotValue { return SnapshotValue{Kind: SVInt, Int: i} }

// Double wraps a 64-bit float.
func Double(d float64) SnapshotValue { return SnapshotValue{Kind: SVDouble, Double: d} }

// String wraps a string.
func String(s string) SnapshotValue { return SnapshotValue{Kind: SVString, Str: s} }

// Array wraps an ordered list of SnapshotValues.
func Array(items ...SnapshotValue) SnapshotValue {
	return SnapshotValue{Kind: SVArray, Array: items}
}

// Object wraps an ordered set of key/value entries.
func Object(entries ...ObjectEntry) SnapshotValue {
	return SnapshotValue{Kind: SVObject, Object: entries}
}

// EmptyObject is the zero-entry object value used as the "nothing synced
// yet" baseline when diffing a first-sync against an implicit empty state.
func EmptyObject() SnapshotValue { return Object() }

// Entry is a convenience constructor for an ObjectEntry.
func Entry(key string, value SnapshotValue) ObjectEntry {
	return ObjectEntry{Key: key, Value: value}
}

// Get returns the value under key in an SVObject and whether it was present.
func (v SnapshotValue) Get(key string) (SnapshotValue, bool) {
	for _, e := range v.Object {
		if e.Key == key {
			return e.Value, true
		}
	}
	return SnapshotValue{}, false
}

// Keys returns the declared key order of an SVObject.
func (v SnapshotValue) Keys() []string {
	keys := make([]string, len(v.Object))
	for i, e := range v.Object {
		keys[i] = e.Key
	}
	return keys
}

// Equal reports whether two SnapshotValues are structurally identical.
// Object key order is NOT significant for equality (only for encoding),
// matching the diff engine's need to detect "same set of keys, same
// values" regardless of declaration order drift.
func Equal(a, b SnapshotValue) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case SVNull:
		return true
	case SVBool:
		return a.Bool == b.Bool
	case SVInt:
		return a.Int == b.Int
	case SVDouble:
		return a.Double == b.Double
	case SVString:
		return a.Str == b.Str
	case SVArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case SVObject:
		if len(a.Object) != len(b.Object) {
			return false
		}
		for _, e := range a.Object {
			bv, ok := b.Get(e.Key)
			if !ok || !Equal(e.Value, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToInterface converts a SnapshotValue into a plain interface{} tree of
// bool/int64/float64/string/[]interface{}/map[string]interface{}, the shape
// consumed by the wirecodec encoders for the "compact form" described in
// spec.md §6 (bare values where the type is unambiguous).
func (v SnapshotValue) ToInterface() interface{} {
	switch v.Kind {
	case SVNull:
		return nil
	case SVBool:
		return v.Bool
	case SVInt:
		return v.Int
	case SVDouble:
		return v.Double
	case SVString:
		return v.Str
	case SVArray:
		out := make([]interface{}, len(v.Array))
		for i, item := range v.Array {
			out[i] = item.ToInterface()
		}
		return out
	case SVObject:
		out := make(map[string]interface{}, len(v.Object))
		for _, e := range v.Object {
			out[e.Key] = e.Value.ToInterface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface is the inverse of ToInterface: it builds a SnapshotValue
// from a plain interface{} tree as produced by encoding/json's default
// decode into interface{} (float64 for all numbers, map[string]interface{}
// for objects). Object keys come out sorted lexicographically, since a Go
// map carries no declaration order, so callers that need declaration-order
// fidelity should not round-trip through this for values that will be
// re-encoded on the wire.
func FromInterface(v interface{}) SnapshotValue {
	switch val := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(val)
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val))
		}
		return Double(val)
	case string:
		return String(val)
	case []interface{}:
		items := make([]SnapshotValue, len(val))
		for i, item := range val {
			items[i] = FromInterface(item)
		}
		return Array(items...)
	case map[string]interface{}:
		keys := maps.Keys(val)
		slices.Sort(keys)
		entries := make([]ObjectEntry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, Entry(k, FromInterface(val[k])))
		}
		return Object(entries...)
	default:
		return Null()
	}
}

// FromJSON decodes a JSON value into a SnapshotValue via FromInterface.
// Used by schema-driven lands, whose field set is only known at load time
// and so cannot unmarshal directly into a typed Go value.
func FromJSON(data []byte) (SnapshotValue, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return SnapshotValue{}, err
	}
	return FromInterface(v), nil
}

// MarshalJSON renders the SnapshotValue in declaration order for objects,
// so that the jsonObject wire encoding matches field-declaration order
// rather than Go's default alphabetical map-key ordering.
func (v SnapshotValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SVNull:
		return []byte("null"), nil
	case SVBool, SVInt, SVDouble, SVString:
		return json.Marshal(v.ToInterface())
	case SVArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case SVObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, e := range v.Object {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(e.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := e.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("statefield: unknown SnapshotValue kind %d", v.Kind)
	}
}

// CanonicalJSON renders the SnapshotValue with object keys sorted
// lexicographically at every level, per spec.md §4.8's hashing
// canonicalization rule. It is distinct from MarshalJSON, which preserves
// declaration order for wire framing.
func (v SnapshotValue) CanonicalJSON() []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.Bytes()
}

func writeCanonical(buf *bytes.Buffer, v SnapshotValue) {
	switch v.Kind {
	case SVNull:
		buf.WriteString("null")
	case SVBool, SVInt, SVDouble, SVString:
		b, _ := json.Marshal(v.ToInterface())
		buf.Write(b)
	case SVArray:
		buf.WriteByte('[')
		for i, item := range v.Array {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, item)
		}
		buf.WriteByte(']')
	case SVObject:
		byKey := make(map[string]SnapshotValue, len(v.Object))
		for _, e := range v.Object {
			byKey[e.Key] = e.Value
		}
		keys := maps.Keys(byKey)
		slices.Sort(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			writeCanonical(buf, byKey[k])
		}
		buf.WriteByte('}')
	}
}
