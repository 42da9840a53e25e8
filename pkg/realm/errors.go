package realm

import "fmt"

// registrationError is a fatal, Land-creation-time configuration failure —
// the Realm-level analogue of land.configError, raised by Register before
// any Keeper exists.
type registrationError struct {
	msg string
}

func (e *registrationError) Error() string { return e.msg }

func newRegistrationError(format string, args ...interface{}) error {
	return &registrationError{msg: fmt.Sprintf(format, args...)}
}

var errInvalidLandType = newRegistrationError("realm: landType must not be empty")

func errDuplicateLandType(landType string) error {
	return newRegistrationError("realm: landType %q is already registered", landType)
}

func errUnknownLandType(landType string) error {
	return fmt.Errorf("realm: no definition registered for landType %q", landType)
}

func errLandNotFound(landID string) error {
	return fmt.Errorf("realm: no land instance %q", landID)
}
