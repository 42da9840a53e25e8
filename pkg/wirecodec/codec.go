// Package wirecodec implements the three wire encodings spec.md §4.5/§6
// requires for an envelope: jsonObject (tagged JSON), opcodeJsonArray
// (compact positional JSON array keyed by a frozen opcode table), and
// messagepack (the same logical structure as jsonObject, MessagePack
// binary encoded). A session picks exactly one encoding for its entire
// life; state-update frames may independently choose any of the three.
package wirecodec

import (
	"fmt"

	"statetree/pkg/statefield"
	"statetree/pkg/statesync"
	"statetree/pkg/wireproto"
)

// Name identifies one of the three required wire encodings.
type Name string

const (
	JSONObject     Name = "jsonObject"
	OpcodeJSONArray Name = "opcodeJsonArray"
	MessagePack    Name = "messagepack"
)

// Codec encodes and decodes every wire-visible shape spec.md §6 names: the
// envelope union, and the separately-framed state-update / snapshot
// messages. IsBinary reports whether Encode* output must be sent as a
// binary websocket frame rather than text.
type Codec interface {
	Name() Name
	IsBinary() bool

	EncodeEnvelope(env wireproto.Envelope) ([]byte, error)
	DecodeEnvelope(data []byte) (wireproto.Envelope, error)

	EncodeStateUpdate(update statesync.StateUpdate) ([]byte, error)
	EncodeSnapshot(values statefield.SnapshotValue) ([]byte, error)
}

// Get resolves one of the three required encodings by name.
func Get(name Name) (Codec, error) {
	switch name {
	case JSONObject:
		return newJSONObjectCodec(), nil
	case OpcodeJSONArray:
		return newOpcodeArrayCodec(), nil
	case MessagePack:
		return newMessagePackCodec(), nil
	default:
		return nil, fmt.Errorf("wirecodec: unknown encoding %q", name)
	}
}
