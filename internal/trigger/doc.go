// Package trigger implements the trigger-synchronization controller core:
// guarded alarm scheduling against the instrument's TAI clock, hardware-time
// edge debouncing, bounded-depth log hygiene, the closed-loop handshake that
// paces bursts off external edges, and an idempotent safe stop.
//
// A Controller owns the command/query channel exclusively. At most one
// background loop (handshake or EXT-to-burst) runs per controller; starting
// a second is rejected until the first is disarmed.
package trigger
