package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInputValidator(t *testing.T) {
	validator := NewInputValidator(1024)

	assert.NotNil(t, validator)
	assert.Equal(t, int64(1024), validator.maxRequestSize)
	assert.NotEmpty(t, validator.validators)

	for _, kind := range []EnvelopeKind{KindJoin, KindAction, KindEvent} {
		_, exists := validator.validators[kind]
		assert.True(t, exists, "kind %s should be registered", kind)
	}
}

func TestValidateEnvelope_SizeCeiling(t *testing.T) {
	validator := NewInputValidator(100)

	err := validator.ValidateEnvelope(KindJoin, map[string]interface{}{"landType": "cookieClicker"}, 200)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}

func TestValidateEnvelope_UnknownKind(t *testing.T) {
	validator := NewInputValidator(1024)

	err := validator.ValidateEnvelope(EnvelopeKind("bogus"), map[string]interface{}{}, 10)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown envelope kind")
}

func TestValidateJoin(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		fields        map[string]interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid join with landType only",
			fields:      map[string]interface{}{"landType": "cookieClicker"},
			expectError: false,
		},
		{
			name: "valid join with landID and requestID",
			fields: map[string]interface{}{
				"landType":  "cookieClicker",
				"landID":    "land-42",
				"requestID": "req-1",
			},
			expectError: false,
		},
		{
			name:          "missing landType",
			fields:        map[string]interface{}{},
			expectError:   true,
			errorContains: "requires 'landType'",
		},
		{
			name:          "non-string landType",
			fields:        map[string]interface{}{"landType": 123},
			expectError:   true,
			errorContains: "must be a string",
		},
		{
			name:          "invalid landType format",
			fields:        map[string]interface{}{"landType": "bad type!"},
			expectError:   true,
			errorContains: "invalid landType",
		},
		{
			name: "blank landID",
			fields: map[string]interface{}{
				"landType": "cookieClicker",
				"landID":   "   ",
			},
			expectError:   true,
			errorContains: "must not be blank",
		},
		{
			name: "malformed requestID",
			fields: map[string]interface{}{
				"landType":  "cookieClicker",
				"requestID": "has a space",
			},
			expectError:   true,
			errorContains: "invalid requestID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateEnvelope(KindJoin, tt.fields, 10)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAction(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		fields        map[string]interface{}
		expectError   bool
		errorContains string
	}{
		{
			name: "valid action",
			fields: map[string]interface{}{
				"landID":    "land-42",
				"type":      "clickCookie",
				"requestID": "req-1",
			},
			expectError: false,
		},
		{
			name:          "missing landID",
			fields:        map[string]interface{}{"type": "clickCookie"},
			expectError:   true,
			errorContains: "missing required parameter: landID",
		},
		{
			name:          "missing type",
			fields:        map[string]interface{}{"landID": "land-42"},
			expectError:   true,
			errorContains: "missing required parameter: type",
		},
		{
			name: "invalid type identifier",
			fields: map[string]interface{}{
				"landID": "land-42",
				"type":   "123bad",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateEnvelope(KindAction, tt.fields, 10)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEvent(t *testing.T) {
	validator := NewInputValidator(1024)

	err := validator.ValidateEnvelope(KindEvent, map[string]interface{}{
		"landID": "land-42",
		"type":   "clientHeartbeat",
	}, 10)
	assert.NoError(t, err)

	err = validator.ValidateEnvelope(KindEvent, map[string]interface{}{"type": "clientHeartbeat"}, 10)
	assert.Error(t, err)
}

func TestValidateTypeIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		expectError bool
	}{
		{name: "simple identifier", id: "clickCookie", expectError: false},
		{name: "namespaced identifier", id: "cookie.clicker", expectError: false},
		{name: "underscored identifier", id: "set_field", expectError: false},
		{name: "empty identifier", id: "", expectError: true},
		{name: "starts with digit", id: "1clickCookie", expectError: true},
		{name: "contains space", id: "click cookie", expectError: true},
		{name: "too long", id: strings.Repeat("a", 65), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTypeIdentifier(tt.id)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name        string
		uuid        string
		expectError bool
	}{
		{name: "valid UUID", uuid: "12345678-1234-1234-1234-123456789abc", expectError: false},
		{name: "valid UUID with uppercase", uuid: "12345678-1234-1234-1234-123456789ABC", expectError: false},
		{name: "too short", uuid: "12345678-1234-1234-1234-123456789ab", expectError: true},
		{name: "missing dashes", uuid: "123456781234123412341234123456789abc", expectError: true},
		{name: "invalid characters", uuid: "12345678-1234-1234-1234-123456789abg", expectError: true},
		{name: "empty", uuid: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUUID(tt.uuid)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
