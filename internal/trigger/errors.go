package trigger

import "errors"

var (
	// ErrNotConnected is returned when an operation is attempted without an
	// active instrument session. It fails before touching hardware.
	ErrNotConnected = errors.New("trigger: no active instrument session")

	// ErrInvalidParameter is returned by local validation of period, count
	// and batch arguments, before any write reaches the device.
	ErrInvalidParameter = errors.New("trigger: invalid parameter")

	// ErrBusy is returned when a background loop is already armed.
	ErrBusy = errors.New("trigger: a trigger loop is already armed")
)
