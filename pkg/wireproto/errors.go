// Package wireproto defines the StateTree wire contract: envelope shapes,
// the stable opcode table, the per-session connection state machine, and
// strict request/landID routing. It has no dependency on the Land runtime
// itself — pkg/land depends on this package for its error and response
// vocabulary, not the other way around.
package wireproto

import "fmt"

// Code is one of the stable, non-exhaustive error codes spec.md §6 names.
type Code string

const (
	CodeJoinDenied           Code = "JOIN_DENIED"
	CodeJoinRoomFull         Code = "JOIN_ROOM_FULL"
	CodeJoinAlreadyJoined    Code = "JOIN_ALREADY_JOINED"
	CodeViewNotFound         Code = "VIEW_NOT_FOUND"
	CodeNotJoined            Code = "NOT_JOINED"
	CodeActionNotRegistered  Code = "ACTION_NOT_REGISTERED"
	CodeSlowConsumer         Code = "SLOW_CONSUMER"
	CodeLandTypeMismatch     Code = "LAND_TYPE_MISMATCH"
	CodeSchemaMismatch       Code = "SCHEMA_MISMATCH"
	CodeRecordVersionMismatch Code = "RECORD_VERSION_MISMATCH"
	CodeInvalidRequest       Code = "INVALID_REQUEST"
	CodeUnknownError         Code = "UNKNOWN_ERROR"
)

// WireError is the `{code, message, details?}` shape carried in error
// envelopes, actionResponse.error, and joinResponse.reason. It is this
// module's analogue of the teacher's *JSONRPCError — a single typed error
// that crosses the wire, as opposed to the internal `fmt.Errorf` wrapping
// used for configuration-time failures.
type WireError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error satisfies the error interface so a WireError can be returned
// directly from a Land action handler.
func (e *WireError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewWireError constructs a WireError with no details.
func NewWireError(code Code, message string) *WireError {
	return &WireError{Code: code, Message: message}
}

// WithDetail returns a copy of the error with one additional detail field,
// used to attach requestID/landID context when propagating toward a
// session.
func (e *WireError) WithDetail(key string, value interface{}) *WireError {
	out := &WireError{Code: e.Code, Message: e.Message}
	out.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return out
}
