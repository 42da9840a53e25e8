// Package validation provides structural input validation for inbound
// StateTree wire envelopes in the StateTree runtime.
//
// This package ensures every Join/Action/ClientEvent envelope is
// size-bounded and structurally well-formed before it reaches a Router or
// a LandKeeper, to prevent resource exhaustion and catch malformed clients
// early rather than letting a Land's own handler code reject them one
// field at a time.
//
// # Creating a Validator
//
// Create an InputValidator with a maximum envelope size limit:
//
//	validator := validation.NewInputValidator(1024 * 1024) // 1MB limit
//
// # Validating Envelopes
//
// pkg/wsgateway calls ValidateEnvelope on every decoded inbound frame
// before routing it, passing the envelope's kind, its fields as a
// map[string]interface{}, and the raw frame's byte length:
//
//	err := validator.ValidateEnvelope(validation.KindAction, fields, frameSize)
//	if err != nil {
//	    return fmt.Errorf("invalid request: %w", err)
//	}
//
// # Envelope Kinds
//
// There are exactly three inbound envelope kinds, unlike a fixed JSON-RPC
// method table: Land action/event type identifiers are registered
// dynamically per LandDefinition, so validation here is structural (kind,
// size, identifier format) rather than per-method.
//
//   - join: requires landType (and, if present, a non-blank landID)
//   - action: requires landID and type; requestID is checked for format
//     if present
//   - event: requires landID and type
//
// # Validation Rules
//
// Common validation patterns enforced:
//   - Request size: every envelope is checked against maxRequestSize
//   - Type identifiers (landType, action/event type): led by a letter of
//     either case, alphanumeric plus underscore/dot, bounded to 64 characters
//   - requestID: an opaque bounded token, not required to be a UUID
//   - UUIDs (session IDs, generated land instance IDs): 8-4-4-4-12
//     hexadecimal format, checked via ValidateUUID
package validation
