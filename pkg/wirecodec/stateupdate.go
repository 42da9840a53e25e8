package wirecodec

import (
	"statetree/pkg/statefield"
	"statetree/pkg/statesync"
)

// snapshotWireDTO is the `{values: {...}}` form spec.md §6 gives for a full
// snapshot message. The server only ever produces these (never decodes its
// own output back), so values are rendered through SnapshotValue.ToInterface
// in compact bare-value form rather than the typed `{type,value}` form —
// the typed form exists to preserve int-vs-double across a decode, which
// this write-only direction never needs.
type snapshotWireDTO struct {
	Values interface{} `json:"values" msgpack:"values"`
}

type patchWireDTO struct {
	Op    string      `json:"op" msgpack:"op"`
	Path  string      `json:"path" msgpack:"path"`
	Value interface{} `json:"value,omitempty" msgpack:"value,omitempty"`
}

// stateUpdateWireDTO is the `{type, patches}` form spec.md §6 gives for an
// incremental (or noChange/firstSync) state-update message.
type stateUpdateWireDTO struct {
	Type    string         `json:"type" msgpack:"type"`
	Patches []patchWireDTO `json:"patches,omitempty" msgpack:"patches,omitempty"`
}

func updateKindWireName(k statesync.UpdateKind) string {
	switch k {
	case statesync.UpdateFirstSync:
		return "firstSync"
	case statesync.UpdateDiff:
		return "diff"
	default:
		return "noChange"
	}
}

func patchOpWireName(op statesync.PatchOp) string {
	switch op {
	case statesync.OpAdd:
		return "add"
	case statesync.OpRemove:
		return "remove"
	default:
		return "replace"
	}
}

func stateUpdateToWireDTO(update statesync.StateUpdate) stateUpdateWireDTO {
	dto := stateUpdateWireDTO{Type: updateKindWireName(update.Kind)}
	if len(update.Patches) == 0 {
		return dto
	}
	dto.Patches = make([]patchWireDTO, len(update.Patches))
	for i, p := range update.Patches {
		pd := patchWireDTO{Op: patchOpWireName(p.Op), Path: p.Path}
		if p.Value != nil {
			pd.Value = p.Value.ToInterface()
		}
		dto.Patches[i] = pd
	}
	return dto
}

func snapshotToWireDTO(values statefield.SnapshotValue) snapshotWireDTO {
	return snapshotWireDTO{Values: values.ToInterface()}
}
