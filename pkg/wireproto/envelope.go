package wireproto

// Kind is the envelope discriminator spec.md §4.5 requires: every wire
// message carries `kind` plus a payload union.
type Kind string

const (
	KindJoin           Kind = "join"
	KindJoinResponse   Kind = "joinResponse"
	KindLeave          Kind = "leave"
	KindAction         Kind = "action"
	KindActionResponse Kind = "actionResponse"
	KindEvent          Kind = "event"
	KindError          Kind = "error"
)

// Opcode table for the opcodeJsonArray encoding, per spec.md §6. These
// integers are part of the wire contract and must never be reassigned.
const (
	OpcodeAction         = 100
	OpcodeActionResponse = 101
	OpcodeJoin           = 102
	OpcodeEvent          = 103
	OpcodeError          = 104
	OpcodeJoinResponse   = 105
	OpcodeLeave          = 106
)

// Event direction tag used inside the opcodeJsonArray `event` frame.
const (
	DirectionFromClient = 0
	DirectionFromServer = 1
)

// JoinRequest is `join.payload` — a client asking to join a Land, by
// landType alone (single-room mode) or landType+landInstanceId.
type JoinRequest struct {
	RequestID      string
	LandType       string
	LandInstanceID string
	PlayerID       string
	DeviceID       string
	Metadata       map[string]interface{}
}

// JoinResponse is `joinResponse.payload`. On success LandID is the
// server-assigned canonical routing key for all subsequent messages on
// this session — per spec.md §9, it is authoritative and overrides
// whatever form the client joined with.
type JoinResponse struct {
	RequestID      string
	Success        bool
	LandType       string
	LandInstanceID string
	LandID         string
	PlayerID       string
	PlayerSlot     int
	Encoding       string
	Reason         *WireError
}

// LeaveRequest is `leave.payload`.
type LeaveRequest struct {
	LandID string
}

// ActionRequest is `action.payload`. Payload carries the still-encoded
// action body; the Land's registered handler is responsible for decoding
// it into its own payload type.
type ActionRequest struct {
	RequestID      string
	LandID         string
	TypeIdentifier string
	Payload        []byte
}

// ActionResponse is `actionResponse.payload`.
type ActionResponse struct {
	RequestID string
	Success   bool
	Response  interface{}
	Err       *WireError
}

// ClientEventEnvelope is the `fromClient` variant of `event.payload`.
type ClientEventEnvelope struct {
	LandID         string
	TypeIdentifier string
	Payload        []byte
}

// ServerEventEnvelope is the `fromServer` variant of `event.payload`.
type ServerEventEnvelope struct {
	LandID         string
	TypeIdentifier string
	Payload        interface{}
}

// ErrorEnvelope is `error.payload`. RequestID/LandID are populated when the
// error pertains to a specific request or land, per spec.md §7's
// propagation policy.
type ErrorEnvelope struct {
	Err       *WireError
	RequestID string
	LandID    string
}

// Envelope is the tagged union every wire message decodes into. Exactly
// one of the pointer fields matching Kind is non-nil.
type Envelope struct {
	Kind Kind

	Join           *JoinRequest
	JoinResponse   *JoinResponse
	Leave          *LeaveRequest
	Action         *ActionRequest
	ActionResponse *ActionResponse
	ClientEvent    *ClientEventEnvelope
	ServerEvent    *ServerEventEnvelope
	Error          *ErrorEnvelope
}
