package land

import (
	"time"

	"statetree/pkg/statesync"
	"statetree/pkg/wireproto"
)

// SessionInfo is the joined-sessions map entry a Keeper publishes after
// every op. It is an immutable snapshot: callers must not mutate it.
type SessionInfo struct {
	SessionID string
	PlayerID  string
	JoinedAt  time.Time
}

// Transport is everything a Keeper needs from the adapter that owns the
// actual network connections. wsgateway implements this on top of
// wireproto's envelope types; tests implement it with an in-memory fake.
//
// Every method must be safe for concurrent use — many Keepers may call
// into the same Transport concurrently — and must not block the calling
// Keeper on a slow consumer; a Transport enforces its own backpressure
// and closes slow sessions itself.
type Transport interface {
	SendJoinResponse(sessionID string, resp wireproto.JoinResponse)
	SendActionResponse(sessionID string, resp wireproto.ActionResponse)
	SendStateUpdate(sessionID string, update statesync.StateUpdate)
	SendServerEvent(sessionID string, typeIdentifier string, payload interface{})
	SendError(sessionID string, err *wireproto.WireError, requestID string)
	CloseSession(sessionID string, reason string)
}

// Recorder appends one committed op to a reevaluation log. Implemented by
// pkg/replay; declared here so pkg/land never imports it.
type Recorder interface {
	Append(tickID uint64, kind string, payloadBytes []byte, stateHash string, events []RecordedEvent)
}

// RecordedEvent is one server event emitted during a recorded op, kept
// alongside the op entry so a replay can assert the same events fire.
type RecordedEvent struct {
	TypeIdentifier string
	PayloadBytes   []byte
}

// RecordedOpEnvelope captures every field of a committed op a replay runner
// needs to reconstruct and resubmit it against a freshly built Keeper. It is
// marshaled into Recorder.Append's payloadBytes by Keeper.record; pkg/replay
// unmarshals it back out when driving its Runner.
type RecordedOpEnvelope struct {
	SessionID      string                 `json:"sessionID,omitempty"`
	RequestID      string                 `json:"requestID,omitempty"`
	PlayerIDHint   string                 `json:"playerIDHint,omitempty"`
	DeviceID       string                 `json:"deviceID,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	TypeIdentifier string                 `json:"typeIdentifier,omitempty"`
	Payload        []byte                 `json:"payload,omitempty"`
	LeaveReason    string                 `json:"leaveReason,omitempty"`
}
