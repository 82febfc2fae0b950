// Package transport provides the synchronous textual command/query channel
// to the time-base instrument: one LF-terminated exchange per round trip
// over an LXI raw socket, every operation bounded by the configured command
// timeout.
//
// The channel is exclusively owned by the controller; callers must not run
// two exchanges concurrently without external serialization.
package transport
