package wirecodec

import (
	"encoding/json"

	"statetree/pkg/statefield"
	"statetree/pkg/statesync"
)

func newJSONObjectCodec() Codec {
	return &structuredCodec{
		name:      JSONObject,
		binary:    false,
		marshal:   json.Marshal,
		unmarshal: json.Unmarshal,
	}
}

func (c *structuredCodec) EncodeStateUpdate(update statesync.StateUpdate) ([]byte, error) {
	return c.marshal(stateUpdateToWireDTO(update))
}

func (c *structuredCodec) EncodeSnapshot(values statefield.SnapshotValue) ([]byte, error) {
	return c.marshal(snapshotToWireDTO(values))
}
