package land

import "fmt"

var errInvalidLandType = fmt.Errorf("land: landType must not be empty")

// configError wraps a fatal Land-creation-time configuration failure, as
// distinct from the per-request WireErrors handlers return.
type configError struct {
	msg string
}

func (e *configError) Error() string { return e.msg }

func newConfigError(format string, args ...interface{}) error {
	return &configError{msg: fmt.Sprintf(format, args...)}
}
