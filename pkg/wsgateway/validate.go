package wsgateway

import (
	"statetree/pkg/validation"
	"statetree/pkg/wireproto"
)

// validateInbound structurally validates a decoded Join/Action/ClientEvent
// envelope through pkg/validation before it reaches Router.Authorize or a
// Keeper, enforcing the size ceiling and per-kind shape (required fields,
// identifier format) pkg/validation.InputValidator encodes. Leave and
// every server-originated/response kind pass through untouched: Leave
// carries nothing to validate beyond landID routing, already checked by
// the Router, and a server never receives a response/error envelope from
// a client.
func validateInbound(v *validation.InputValidator, env wireproto.Envelope, frameSize int) error {
	switch env.Kind {
	case wireproto.KindJoin:
		if env.Join == nil {
			return nil
		}
		j := env.Join
		fields := map[string]interface{}{"landType": j.LandType}
		if j.LandInstanceID != "" {
			fields["landID"] = j.LandInstanceID
		}
		if j.RequestID != "" {
			fields["requestID"] = j.RequestID
		}
		return v.ValidateEnvelope(validation.KindJoin, fields, int64(frameSize))

	case wireproto.KindAction:
		if env.Action == nil {
			return nil
		}
		a := env.Action
		fields := map[string]interface{}{"landID": a.LandID, "type": a.TypeIdentifier}
		if a.RequestID != "" {
			fields["requestID"] = a.RequestID
		}
		return v.ValidateEnvelope(validation.KindAction, fields, int64(frameSize))

	case wireproto.KindEvent:
		if env.ClientEvent == nil {
			return nil
		}
		c := env.ClientEvent
		fields := map[string]interface{}{"landID": c.LandID, "type": c.TypeIdentifier}
		return v.ValidateEnvelope(validation.KindEvent, fields, int64(frameSize))

	default:
		return nil
	}
}
