package device

import (
	"errors"
	"fmt"
)

var (
	// ErrBadResponse is returned when the instrument answers with a line
	// that does not parse as the expected form. Callers treat it as
	// transient: one garbled exchange must not kill an unattended run.
	ErrBadResponse = errors.New("device: malformed response")

	// ErrUnsupported marks an optional query this firmware does not
	// implement. Callers degrade to a default instead of failing.
	ErrUnsupported = errors.New("device: query not supported by firmware")
)

// Error is a fault reported by the instrument's own error queue after a write.
type Error struct {
	// Code is the numeric error code; 0 means the queue was empty.
	Code int
	// Text is the description reported alongside the code.
	Text string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Text)
}
