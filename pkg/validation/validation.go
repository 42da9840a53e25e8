// Package validation provides comprehensive input validation for StateTree
// wire envelopes. It ensures every Action, ClientEvent, and Join message is
// properly sanitized and size-bounded before it reaches a LandKeeper, to
// prevent resource exhaustion and maintain data integrity.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// EnvelopeKind identifies which of the three inbound envelope shapes a
// message being validated is. Land action/event type identifiers are
// registered dynamically per LandDefinition, so validation here is
// structural (kind, size, identifier format) rather than per-method, unlike
// a fixed JSON-RPC method table.
type EnvelopeKind string

const (
	KindJoin   EnvelopeKind = "join"
	KindAction EnvelopeKind = "action"
	KindEvent  EnvelopeKind = "event"
)

// typeIdentifierPattern matches the identifiers Land authors use for action
// types, client event types, and landTypes: led by a letter of either case,
// alphanumeric plus underscore/dot, matching the naming style of the teacher's own
// method constants (move, castSpell, getWorldState) generalized to allow
// namespacing dots for larger landTypes (e.g. "cookie.clicker").
var typeIdentifierPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.]{0,63}$`)

// requestIDPattern matches client-supplied correlation IDs: a bounded
// opaque token, not required to be a UUID since clients may use their own
// sequence numbers.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// InputValidator provides structural validation for StateTree envelopes.
// It enforces a request size ceiling and per-kind structural rules; it does
// not know about any particular Land's action or event payload shape, since
// those are validated by the Land's own handler (spec.md §4.3/§4.4).
type InputValidator struct {
	maxRequestSize int64
	validators     map[EnvelopeKind]func(map[string]interface{}) error
}

// NewInputValidator creates a new InputValidator with the specified maximum
// envelope size. The maxRequestSize parameter limits the size of incoming
// Action/ClientEvent/Join payloads to prevent denial-of-service attacks.
func NewInputValidator(maxRequestSize int64) *InputValidator {
	validator := &InputValidator{
		maxRequestSize: maxRequestSize,
		validators:     make(map[EnvelopeKind]func(map[string]interface{}) error),
	}

	validator.registerValidators()

	return validator
}

// ValidateEnvelope validates an inbound envelope by checking its size,
// structural shape for its kind, and common identifier fields
// (requestID, landType, typeIdentifier).
func (v *InputValidator) ValidateEnvelope(kind EnvelopeKind, fields map[string]interface{}, requestSize int64) error {
	if requestSize > v.maxRequestSize {
		return fmt.Errorf("envelope size %d exceeds maximum allowed size %d", requestSize, v.maxRequestSize)
	}

	validator, exists := v.validators[kind]
	if !exists {
		return fmt.Errorf("unknown envelope kind: %s", kind)
	}

	return validator(fields)
}

// registerValidators sets up validation rules for each envelope kind.
// Unlike a per-method table, there are exactly three kinds — every Land's
// dynamically registered action and event types flow through the same
// structural check.
func (v *InputValidator) registerValidators() {
	v.validators[KindJoin] = v.validateJoin
	v.validators[KindAction] = v.validateAction
	v.validators[KindEvent] = v.validateEvent
}

// validateJoin checks a join envelope: landType is required and must match
// the identifier format Land authors use when registering a LandDefinition.
// landID, when present (joining a specific existing room), must be a
// non-empty string — it is opaque, assigned by the realm, not by the client.
func (v *InputValidator) validateJoin(fields map[string]interface{}) error {
	landType, exists := fields["landType"]
	if !exists {
		return fmt.Errorf("join requires 'landType' parameter")
	}

	landTypeStr, ok := landType.(string)
	if !ok {
		return fmt.Errorf("landType must be a string")
	}

	if err := validateTypeIdentifier(landTypeStr); err != nil {
		return fmt.Errorf("invalid landType: %w", err)
	}

	if landID, exists := fields["landID"]; exists {
		landIDStr, ok := landID.(string)
		if !ok {
			return fmt.Errorf("landID must be a string")
		}
		if strings.TrimSpace(landIDStr) == "" {
			return fmt.Errorf("landID, if provided, must not be blank")
		}
	}

	return v.validateRequestID(fields)
}

// validateAction checks an action envelope: landID (the canonical,
// server-assigned ID per spec.md §9's routing resolution) and an action
// typeIdentifier are required; requestID, when present, must match the
// correlation-token format. An action without a requestID is accepted.
func (v *InputValidator) validateAction(fields map[string]interface{}) error {
	if err := v.validateRoutedEnvelope(fields); err != nil {
		return err
	}
	return v.validateRequestID(fields)
}

// validateEvent checks a client event envelope: landID and an event
// typeIdentifier are required. Client events are fire-and-forget, so unlike
// actions they carry no requestID.
func (v *InputValidator) validateEvent(fields map[string]interface{}) error {
	return v.validateRoutedEnvelope(fields)
}

// validateRoutedEnvelope validates the landID + typeIdentifier fields
// shared by action and event envelopes.
func (v *InputValidator) validateRoutedEnvelope(fields map[string]interface{}) error {
	landID, exists := fields["landID"]
	if !exists {
		return fmt.Errorf("missing required parameter: landID")
	}

	landIDStr, ok := landID.(string)
	if !ok {
		return fmt.Errorf("landID must be a string")
	}

	if strings.TrimSpace(landIDStr) == "" {
		return fmt.Errorf("landID must not be blank")
	}

	typeIdentifier, exists := fields["type"]
	if !exists {
		return fmt.Errorf("missing required parameter: type")
	}

	typeStr, ok := typeIdentifier.(string)
	if !ok {
		return fmt.Errorf("type must be a string")
	}

	return validateTypeIdentifier(typeStr)
}

// validateRequestID checks the optional requestID field, when present,
// against the bounded correlation-token format.
func (v *InputValidator) validateRequestID(fields map[string]interface{}) error {
	requestID, exists := fields["requestID"]
	if !exists {
		return nil
	}

	requestIDStr, ok := requestID.(string)
	if !ok {
		return fmt.Errorf("requestID must be a string")
	}

	if !requestIDPattern.MatchString(requestIDStr) {
		return fmt.Errorf("invalid requestID format: %s", requestIDStr)
	}

	return nil
}

// validateTypeIdentifier validates a landType, action type, or event type
// identifier against the naming convention Land authors use when
// registering a LandDefinition.
func validateTypeIdentifier(id string) error {
	if !utf8.ValidString(id) {
		return fmt.Errorf("identifier is not valid UTF-8")
	}
	if !typeIdentifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format: %s", id)
	}
	return nil
}

// ValidateUUID checks the 8-4-4-4-12 hex-digit UUID format used for
// session IDs and generated land instance IDs.
func ValidateUUID(id string) error {
	uuidRegex := regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	if !uuidRegex.MatchString(id) {
		return fmt.Errorf("invalid UUID format: %s", id)
	}
	return nil
}
