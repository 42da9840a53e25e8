package config

import (
	"os"
	"path/filepath"
	"testing"

	"statetree/pkg/resilience"
	"statetree/pkg/statefield"
)

// resetCircuitBreakerForTesting clears the shared config-loader circuit
// breaker between tests so one test's induced failures don't leak into the
// next.
func resetCircuitBreakerForTesting() {
	resilience.GetGlobalCircuitBreakerManager().Remove("config_loader")
}

func writeSchema(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write schema fixture: %v", err)
	}
	return path
}

func TestLoadLandSchema_ValidFile(t *testing.T) {
	resetCircuitBreakerForTesting()

	dir := t.TempDir()
	path := writeSchema(t, dir, `
landType: noticeBoard
fields:
  - name: notice
    policy: broadcast
    kind: scalar
  - name: drafts
    policy: perPlayerSlice
    kind: list
`)

	schema, err := LoadLandSchema(path)
	if err != nil {
		t.Fatalf("LoadLandSchema failed: %v", err)
	}
	if schema.LandType != "noticeBoard" {
		t.Errorf("landType = %q, want noticeBoard", schema.LandType)
	}
	if len(schema.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(schema.Fields))
	}
}

func TestLoadLandSchema_MissingLandType(t *testing.T) {
	resetCircuitBreakerForTesting()

	dir := t.TempDir()
	path := writeSchema(t, dir, `
fields:
  - name: notice
    policy: broadcast
    kind: scalar
`)

	if _, err := LoadLandSchema(path); err == nil {
		t.Error("expected error for missing landType, got nil")
	}
}

func TestLoadLandSchema_UnknownPolicy(t *testing.T) {
	resetCircuitBreakerForTesting()

	dir := t.TempDir()
	path := writeSchema(t, dir, `
landType: badLand
fields:
  - name: notice
    policy: globalBroadcast
    kind: scalar
`)

	if _, err := LoadLandSchema(path); err == nil {
		t.Error("expected error for unknown policy, got nil")
	}
}

func TestLoadLandSchema_FileNotFound(t *testing.T) {
	resetCircuitBreakerForTesting()

	if _, err := LoadLandSchema(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestBuildFieldTable_ScalarReadWriteDirty(t *testing.T) {
	schema := &LandSchema{
		LandType: "noticeBoard",
		Fields: []FieldSchema{
			{Name: "notice", Policy: "broadcast", Kind: "scalar"},
		},
	}

	table, err := BuildFieldTable(schema)
	if err != nil {
		t.Fatalf("BuildFieldTable failed: %v", err)
	}
	desc, ok := table.ByName("notice")
	if !ok {
		t.Fatal("expected a notice descriptor")
	}

	state := NewSchemaState(schema)
	if desc.IsDirty(state) {
		t.Error("expected fresh state to be clean")
	}

	if err := desc.Write(state, statefield.String("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !desc.IsDirty(state) {
		t.Error("expected state to be dirty after Write")
	}
	got := desc.Read(state)
	if got.Str != "hello" {
		t.Errorf("Read = %q, want hello", got.Str)
	}

	desc.ClearDirty(state)
	if desc.IsDirty(state) {
		t.Error("expected state to be clean after ClearDirty")
	}
}

func TestBuildFieldTable_PerPlayerSlice(t *testing.T) {
	schema := &LandSchema{
		LandType: "noticeBoard",
		Fields: []FieldSchema{
			{Name: "drafts", Policy: "perPlayerSlice", Kind: "list"},
		},
	}

	table, err := BuildFieldTable(schema)
	if err != nil {
		t.Fatalf("BuildFieldTable failed: %v", err)
	}
	desc, _ := table.ByName("drafts")

	state := NewSchemaState(schema)
	state.SetSlice("drafts", "player-1", statefield.Array(statefield.String("draft one")))

	keys := desc.DirtyKeys(state)
	if len(keys) != 1 || keys[0] != "player-1" {
		t.Fatalf("DirtyKeys = %v, want [player-1]", keys)
	}

	v, ok := desc.SliceValue(state, "player-1")
	if !ok {
		t.Fatal("expected a slice value for player-1")
	}
	if len(v.Array) != 1 || v.Array[0].Str != "draft one" {
		t.Errorf("SliceValue = %+v, want one-element array", v)
	}

	desc.ClearDirty(state)
	if len(desc.DirtyKeys(state)) != 0 {
		t.Error("expected no dirty keys after ClearDirty")
	}

	all := desc.AllSliceKeys(state)
	if len(all) != 1 || all[0] != "player-1" {
		t.Fatalf("AllSliceKeys = %v, want [player-1]", all)
	}
}

func TestLandSchemaValidate_RejectsListWithoutPerPlayerSlice(t *testing.T) {
	schema := &LandSchema{
		LandType: "badLand",
		Fields: []FieldSchema{
			{Name: "notice", Policy: "broadcast", Kind: "list"},
		},
	}

	if err := schema.validate(); err == nil {
		t.Error("expected validation error for list kind outside perPlayerSlice")
	}
}

func TestSchemaDefinition_RoundTripsThroughGenericActions(t *testing.T) {
	schema := &LandSchema{
		LandType: "noticeBoard",
		Fields: []FieldSchema{
			{Name: "notice", Policy: "broadcast", Kind: "scalar"},
			{Name: "drafts", Policy: "perPlayerSlice", Kind: "list"},
		},
	}

	def, err := SchemaDefinition(schema)
	if err != nil {
		t.Fatalf("SchemaDefinition failed: %v", err)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("definition failed to validate: %v", err)
	}
	if def.LandType != "noticeBoard" {
		t.Errorf("LandType = %q, want noticeBoard", def.LandType)
	}
	if _, ok := def.Actions["setField"]; !ok {
		t.Error("expected a setField action")
	}
	if _, ok := def.Actions["setMySlice"]; !ok {
		t.Error("expected a setMySlice action")
	}
}
