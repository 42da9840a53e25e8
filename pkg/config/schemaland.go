package config

import (
	"encoding/json"

	"statetree/pkg/land"
	"statetree/pkg/statefield"
	"statetree/pkg/wireproto"
)

// setFieldPayload is the body of the generic "setField" action a schema-
// loaded land registers for its broadcast/serverOnly/internal fields.
type setFieldPayload struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// setSlicePayload is the body of the generic "setMySlice" action a schema-
// loaded land registers for its perPlayerSlice fields: the caller's own
// slot is always the target, since a schema-driven land has no per-field
// handler code to decide otherwise.
type setSlicePayload struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// SchemaDefinition builds a land.Definition straight from a LandSchema,
// with no hand-written state struct or action handlers: field access is
// generic (setField for broadcast/serverOnly/internal fields, setMySlice
// for perPlayerSlice fields), backed by SchemaState and the table
// BuildFieldTable produces. This is what makes LoadLandSchema's output
// usable by a realm.Manager rather than a parsed-and-discarded value.
func SchemaDefinition(schema *LandSchema) (*land.Definition, error) {
	table, err := BuildFieldTable(schema)
	if err != nil {
		return nil, err
	}

	sliceFields := make(map[string]bool)
	for _, f := range schema.Fields {
		if f.Policy == "perPlayerSlice" {
			sliceFields[f.Name] = true
		}
	}

	return &land.Definition{
		LandType:         schema.LandType,
		LandDefinitionID: schema.LandType + "-schema-v1",
		Fields:           table,
		NewState:         func() interface{} { return NewSchemaState(schema) },
		CloneState:       CloneSchemaState,
		MaxPlayers:       0,
		AllowPublic:      true,

		Actions: map[string]land.ActionHandler{
			"setField":   handleSetField(sliceFields),
			"setMySlice": handleSetMySlice(sliceFields),
		},
		ClientEvents: map[string]land.ClientEventHandler{},
		OnLeave:      handleSchemaLeave(sliceFields),
	}, nil
}

func handleSetField(sliceFields map[string]bool) land.ActionHandler {
	return func(state interface{}, payload []byte, ctx *land.Context) (interface{}, *wireproto.WireError) {
		var req setFieldPayload
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, wireproto.NewWireError(wireproto.CodeUnknownError, "malformed setField payload")
		}
		if sliceFields[req.Field] {
			return nil, wireproto.NewWireError(wireproto.CodeActionNotRegistered, "field "+req.Field+" is perPlayerSlice; use setMySlice")
		}
		v, err := statefield.FromJSON(req.Value)
		if err != nil {
			return nil, wireproto.NewWireError(wireproto.CodeUnknownError, "malformed field value: "+err.Error())
		}
		st := state.(*SchemaState)
		if _, ok := st.scalars[req.Field]; !ok {
			return nil, wireproto.NewWireError(wireproto.CodeActionNotRegistered, "unknown field "+req.Field)
		}
		st.SetScalar(req.Field, v)
		return map[string]interface{}{"field": req.Field}, nil
	}
}

func handleSetMySlice(sliceFields map[string]bool) land.ActionHandler {
	return func(state interface{}, payload []byte, ctx *land.Context) (interface{}, *wireproto.WireError) {
		var req setSlicePayload
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, wireproto.NewWireError(wireproto.CodeUnknownError, "malformed setMySlice payload")
		}
		if !sliceFields[req.Field] {
			return nil, wireproto.NewWireError(wireproto.CodeActionNotRegistered, "unknown perPlayerSlice field "+req.Field)
		}
		v, err := statefield.FromJSON(req.Value)
		if err != nil {
			return nil, wireproto.NewWireError(wireproto.CodeUnknownError, "malformed field value: "+err.Error())
		}
		state.(*SchemaState).SetSlice(req.Field, ctx.PlayerID(), v)
		return map[string]interface{}{"field": req.Field}, nil
	}
}

func handleSchemaLeave(sliceFields map[string]bool) func(interface{}, *land.Context) {
	return func(state interface{}, ctx *land.Context) {
		st := state.(*SchemaState)
		for field := range sliceFields {
			st.RemoveSlice(field, ctx.PlayerID())
		}
	}
}
