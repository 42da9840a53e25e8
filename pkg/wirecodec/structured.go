package wirecodec

import (
	"fmt"

	"statetree/pkg/wireproto"
)

// marshalFunc/unmarshalFunc let jsonObject and messagepack share every bit
// of envelope-shaping logic above, differing only in the byte encoding
// underneath — grounded on spec.md §4.5's "identical logical structure,
// different serialization" description of these two encodings.
type marshalFunc func(v interface{}) ([]byte, error)
type unmarshalFunc func(data []byte, v interface{}) error

type structuredCodec struct {
	name      Name
	binary    bool
	marshal   marshalFunc
	unmarshal unmarshalFunc
}

func (c *structuredCodec) Name() Name   { return c.name }
func (c *structuredCodec) IsBinary() bool { return c.binary }

func (c *structuredCodec) EncodeEnvelope(env wireproto.Envelope) ([]byte, error) {
	kind, payload, err := envelopeToWirePayload(env)
	if err != nil {
		return nil, err
	}
	return c.marshal(envelopeWireDTO{Kind: kind, Payload: payload})
}

func (c *structuredCodec) DecodeEnvelope(data []byte) (wireproto.Envelope, error) {
	var outer struct {
		Kind    string                 `json:"kind" msgpack:"kind"`
		Payload map[string]interface{} `json:"payload" msgpack:"payload"`
	}
	if err := c.unmarshal(data, &outer); err != nil {
		return wireproto.Envelope{}, fmt.Errorf("wirecodec: decode envelope: %w", err)
	}

	// Re-marshal the generic payload map into the concrete DTO for this
	// kind, then back out into a wireproto.Envelope. This two-hop path
	// costs an extra allocation but keeps one decode path for every
	// concrete payload shape instead of hand-rolling a type switch over
	// map[string]interface{}.
	reencode := func(v interface{}) error {
		raw, err := c.marshal(outer.Payload)
		if err != nil {
			return err
		}
		return c.unmarshal(raw, v)
	}

	switch wireproto.Kind(outer.Kind) {
	case wireproto.KindJoin:
		var p joinPayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		return wireproto.Envelope{Kind: wireproto.KindJoin, Join: &wireproto.JoinRequest{
			RequestID:      p.RequestID,
			LandType:       p.LandType,
			LandInstanceID: p.LandInstanceID,
			PlayerID:       p.PlayerID,
			DeviceID:       p.DeviceID,
			Metadata:       p.Metadata,
		}}, nil

	case wireproto.KindJoinResponse:
		var p joinResponsePayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		return wireproto.Envelope{Kind: wireproto.KindJoinResponse, JoinResponse: &wireproto.JoinResponse{
			RequestID:      p.RequestID,
			Success:        p.Success,
			LandType:       p.LandType,
			LandInstanceID: p.LandInstanceID,
			LandID:         p.LandID,
			PlayerID:       p.PlayerID,
			PlayerSlot:     p.PlayerSlot,
			Encoding:       p.Encoding,
			Reason:         dtoToWireError(p.Reason),
		}}, nil

	case wireproto.KindLeave:
		var p leavePayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		return wireproto.Envelope{Kind: wireproto.KindLeave, Leave: &wireproto.LeaveRequest{LandID: p.LandID}}, nil

	case wireproto.KindAction:
		var p actionPayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		return wireproto.Envelope{Kind: wireproto.KindAction, Action: &wireproto.ActionRequest{
			RequestID:      p.RequestID,
			LandID:         p.LandID,
			TypeIdentifier: p.Action.TypeIdentifier,
			Payload:        p.Action.Payload,
		}}, nil

	case wireproto.KindActionResponse:
		var p actionResponsePayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		return wireproto.Envelope{Kind: wireproto.KindActionResponse, ActionResponse: &wireproto.ActionResponse{
			RequestID: p.RequestID,
			Success:   p.Error == nil,
			Response:  p.Response,
			Err:       dtoToWireError(p.Error),
		}}, nil

	case wireproto.KindEvent:
		var p eventPayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		switch {
		case p.Event.FromClient != nil:
			return wireproto.Envelope{Kind: wireproto.KindEvent, ClientEvent: &wireproto.ClientEventEnvelope{
				LandID:         p.LandID,
				TypeIdentifier: p.Event.FromClient.Type,
				Payload:        p.Event.FromClient.Payload,
			}}, nil
		case p.Event.FromServer != nil:
			return wireproto.Envelope{Kind: wireproto.KindEvent, ServerEvent: &wireproto.ServerEventEnvelope{
				LandID:         p.LandID,
				TypeIdentifier: p.Event.FromServer.Type,
				Payload:        p.Event.FromServer.Payload,
			}}, nil
		default:
			return wireproto.Envelope{}, fmt.Errorf("wirecodec: event payload has neither fromClient nor fromServer")
		}

	case wireproto.KindError:
		var p errorPayloadDTO
		if err := reencode(&p); err != nil {
			return wireproto.Envelope{}, err
		}
		requestID, _ := p.Details["requestID"].(string)
		landID, _ := p.Details["landID"].(string)
		return wireproto.Envelope{Kind: wireproto.KindError, Error: &wireproto.ErrorEnvelope{
			Err:       &wireproto.WireError{Code: wireproto.Code(p.Code), Message: p.Message, Details: p.Details},
			RequestID: requestID,
			LandID:    landID,
		}}, nil

	default:
		return wireproto.Envelope{}, fmt.Errorf("wirecodec: unknown envelope kind %q", outer.Kind)
	}
}
