// Package device implements the time-base instrument's textual dialect:
// TAI clock reads, atomic alarm-configure writes, the destructive
// external-edge FIFO, log hygiene commands and the error queue.
//
// The package owns wire formatting and parsing only. Scheduling policy
// (guard margins, validation, debouncing, the handshake loop) lives in
// the trigger package on top of it.
package device
