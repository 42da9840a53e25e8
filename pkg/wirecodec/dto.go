package wirecodec

import (
	"fmt"

	"statetree/pkg/wireproto"
)

// The structs below mirror spec.md §6's jsonObject payload table exactly;
// messagepack reuses them verbatim since its "logical structure" is, per
// spec.md §4.5, identical to jsonObject's. Only opcodeJsonArray needs its
// own positional shape (see opcodearray.go).

type joinPayloadDTO struct {
	RequestID      string                 `json:"requestID" msgpack:"requestID"`
	LandType       string                 `json:"landType" msgpack:"landType"`
	LandInstanceID string                 `json:"landInstanceId,omitempty" msgpack:"landInstanceId,omitempty"`
	PlayerID       string                 `json:"playerID,omitempty" msgpack:"playerID,omitempty"`
	DeviceID       string                 `json:"deviceID,omitempty" msgpack:"deviceID,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

type wireErrorDTO struct {
	Code    string                 `json:"code" msgpack:"code"`
	Message string                 `json:"message" msgpack:"message"`
	Details map[string]interface{} `json:"details,omitempty" msgpack:"details,omitempty"`
}

type joinResponsePayloadDTO struct {
	RequestID      string        `json:"requestID" msgpack:"requestID"`
	Success        bool          `json:"success" msgpack:"success"`
	LandType       string        `json:"landType,omitempty" msgpack:"landType,omitempty"`
	LandInstanceID string        `json:"landInstanceId,omitempty" msgpack:"landInstanceId,omitempty"`
	LandID         string        `json:"landID,omitempty" msgpack:"landID,omitempty"`
	PlayerID       string        `json:"playerID,omitempty" msgpack:"playerID,omitempty"`
	PlayerSlot     int           `json:"playerSlot,omitempty" msgpack:"playerSlot,omitempty"`
	Encoding       string        `json:"encoding,omitempty" msgpack:"encoding,omitempty"`
	Reason         *wireErrorDTO `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

type leavePayloadDTO struct {
	LandID string `json:"landID" msgpack:"landID"`
}

type actionInnerDTO struct {
	TypeIdentifier string `json:"typeIdentifier" msgpack:"typeIdentifier"`
	Payload        []byte `json:"payload" msgpack:"payload"`
}

type actionPayloadDTO struct {
	RequestID string         `json:"requestID" msgpack:"requestID"`
	LandID    string         `json:"landID" msgpack:"landID"`
	Action    actionInnerDTO `json:"action" msgpack:"action"`
}

type actionResponsePayloadDTO struct {
	RequestID string        `json:"requestID" msgpack:"requestID"`
	Response  interface{}   `json:"response,omitempty" msgpack:"response,omitempty"`
	Error     *wireErrorDTO `json:"error,omitempty" msgpack:"error,omitempty"`
}

type clientEventSideDTO struct {
	Type    string `json:"type" msgpack:"type"`
	Payload []byte `json:"payload" msgpack:"payload"`
}

type serverEventSideDTO struct {
	Type    string      `json:"type" msgpack:"type"`
	Payload interface{} `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

type eventWrapperDTO struct {
	FromClient *clientEventSideDTO `json:"fromClient,omitempty" msgpack:"fromClient,omitempty"`
	FromServer *serverEventSideDTO `json:"fromServer,omitempty" msgpack:"fromServer,omitempty"`
}

type eventPayloadDTO struct {
	LandID string          `json:"landID" msgpack:"landID"`
	Event  eventWrapperDTO `json:"event" msgpack:"event"`
}

type errorPayloadDTO struct {
	Code    string                 `json:"code" msgpack:"code"`
	Message string                 `json:"message" msgpack:"message"`
	Details map[string]interface{} `json:"details,omitempty" msgpack:"details,omitempty"`
}

// envelopeWireDTO is the `{kind, payload}` tagged union itself.
type envelopeWireDTO struct {
	Kind    string      `json:"kind" msgpack:"kind"`
	Payload interface{} `json:"payload" msgpack:"payload"`
}

func wireErrorToDTO(e *wireproto.WireError) *wireErrorDTO {
	if e == nil {
		return nil
	}
	return &wireErrorDTO{Code: string(e.Code), Message: e.Message, Details: e.Details}
}

func dtoToWireError(d *wireErrorDTO) *wireproto.WireError {
	if d == nil {
		return nil
	}
	return &wireproto.WireError{Code: wireproto.Code(d.Code), Message: d.Message, Details: d.Details}
}

// envelopeToWirePayload converts an outbound Envelope into its
// (kind, payload-DTO) pair. Only server-originated kinds
// (joinResponse/actionResponse/event(fromServer)/error/leave) are expected
// here in practice, but every kind is handled so the codec is symmetric.
func envelopeToWirePayload(env wireproto.Envelope) (string, interface{}, error) {
	switch env.Kind {
	case wireproto.KindJoin:
		if env.Join == nil {
			return "", nil, fmt.Errorf("wirecodec: join envelope missing payload")
		}
		j := env.Join
		return string(env.Kind), joinPayloadDTO{
			RequestID:      j.RequestID,
			LandType:       j.LandType,
			LandInstanceID: j.LandInstanceID,
			PlayerID:       j.PlayerID,
			DeviceID:       j.DeviceID,
			Metadata:       j.Metadata,
		}, nil

	case wireproto.KindJoinResponse:
		if env.JoinResponse == nil {
			return "", nil, fmt.Errorf("wirecodec: joinResponse envelope missing payload")
		}
		r := env.JoinResponse
		return string(env.Kind), joinResponsePayloadDTO{
			RequestID:      r.RequestID,
			Success:        r.Success,
			LandType:       r.LandType,
			LandInstanceID: r.LandInstanceID,
			LandID:         r.LandID,
			PlayerID:       r.PlayerID,
			PlayerSlot:     r.PlayerSlot,
			Encoding:       r.Encoding,
			Reason:         wireErrorToDTO(r.Reason),
		}, nil

	case wireproto.KindLeave:
		if env.Leave == nil {
			return "", nil, fmt.Errorf("wirecodec: leave envelope missing payload")
		}
		return string(env.Kind), leavePayloadDTO{LandID: env.Leave.LandID}, nil

	case wireproto.KindAction:
		if env.Action == nil {
			return "", nil, fmt.Errorf("wirecodec: action envelope missing payload")
		}
		a := env.Action
		return string(env.Kind), actionPayloadDTO{
			RequestID: a.RequestID,
			LandID:    a.LandID,
			Action:    actionInnerDTO{TypeIdentifier: a.TypeIdentifier, Payload: a.Payload},
		}, nil

	case wireproto.KindActionResponse:
		if env.ActionResponse == nil {
			return "", nil, fmt.Errorf("wirecodec: actionResponse envelope missing payload")
		}
		r := env.ActionResponse
		return string(env.Kind), actionResponsePayloadDTO{
			RequestID: r.RequestID,
			Response:  r.Response,
			Error:     wireErrorToDTO(r.Err),
		}, nil

	case wireproto.KindEvent:
		if env.ClientEvent != nil {
			c := env.ClientEvent
			return string(env.Kind), eventPayloadDTO{
				LandID: c.LandID,
				Event:  eventWrapperDTO{FromClient: &clientEventSideDTO{Type: c.TypeIdentifier, Payload: c.Payload}},
			}, nil
		}
		if env.ServerEvent != nil {
			s := env.ServerEvent
			return string(env.Kind), eventPayloadDTO{
				LandID: s.LandID,
				Event:  eventWrapperDTO{FromServer: &serverEventSideDTO{Type: s.TypeIdentifier, Payload: s.Payload}},
			}, nil
		}
		return "", nil, fmt.Errorf("wirecodec: event envelope missing both client and server payload")

	case wireproto.KindError:
		if env.Error == nil {
			return "", nil, fmt.Errorf("wirecodec: error envelope missing payload")
		}
		e := env.Error
		details := map[string]interface{}{}
		if e.Err != nil {
			for k, v := range e.Err.Details {
				details[k] = v
			}
		}
		if e.RequestID != "" {
			details["requestID"] = e.RequestID
		}
		if e.LandID != "" {
			details["landID"] = e.LandID
		}
		code, message := "", ""
		if e.Err != nil {
			code, message = string(e.Err.Code), e.Err.Message
		}
		return string(env.Kind), errorPayloadDTO{Code: code, Message: message, Details: details}, nil

	default:
		return "", nil, fmt.Errorf("wirecodec: unknown envelope kind %q", env.Kind)
	}
}
