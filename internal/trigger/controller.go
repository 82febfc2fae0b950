package trigger

import (
	"context"
	"fmt"
	"sync"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/device"
	"github.com/strella111/trigsync/internal/logger"
	"github.com/strella111/trigsync/internal/transport"
)

// Device is the slice of the instrument session the controller drives.
// Narrow on purpose: tests substitute an in-memory instrument.
type Device interface {
	Identify(ctx context.Context) (string, error)
	ClearStatus(ctx context.Context) error
	Time(ctx context.Context) (device.TimeSample, error)
	BindOutput(ctx context.Context, n int) error
	ConfigureAlarm(ctx context.Context, n int, start device.TimeSample, periodSeconds float64, count int) error
	DropAlarms(ctx context.Context) error
	EnableLogs(ctx context.Context) error
	ClearLogs(ctx context.Context) error
	PopEvent(ctx context.Context) (*device.Event, error)
	LogDepth(ctx context.Context) (int, error)
	CheckError(ctx context.Context) error
}

// Controller is the trigger-synchronization controller over one instrument.
type Controller struct {
	// cfg holds the current defaults; individual calls may override
	// lead, period and count.
	cfg *config.Config

	// mu serializes device operations and guards the session, the
	// debounce state, the operation counter and the loop handle.
	mu sync.Mutex
	// ch is the owned transport, nil when the device was injected.
	ch transport.Channel
	// dev is the active instrument session, nil before Connect.
	dev Device
	// id is the identification string reported at Connect.
	id string
	// deb holds the last accepted edge timestamp per input channel.
	deb *debouncer
	// ops counts scheduling and log operations since the last clear.
	ops int
	// loop is the running background loop, nil when idle.
	loop *loopHandle
}

// New creates a controller for a validated configuration.
// No connection is made until Connect.
func New(cfg *config.Config) *Controller {
	return &Controller{
		cfg: cfg,
		deb: newDebouncer(cfg.DebounceInterval),
	}
}

// NewWithDevice creates a controller over an already-open device session.
// Used by tests and by front ends that manage the channel themselves.
func NewWithDevice(cfg *config.Config, dev Device) *Controller {
	c := New(cfg)
	c.dev = dev

	return c
}

// Connect dials the instrument, identifies it and enables both on-device
// logs. Calling it on an already-connected controller returns the stored
// identification without touching the link.
func (c *Controller) Connect(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		return c.id, nil
	}

	ch, err := transport.Dial(ctx, c.cfg.Resource, c.cfg.Timeout)
	if err != nil {
		return "", err
	}

	sess := device.NewSession(ch)

	id, err := sess.Identify(ctx)
	if err != nil {
		_ = ch.Close()

		return "", err
	}

	if err := sess.ClearStatus(ctx); err != nil {
		_ = ch.Close()

		return "", err
	}

	if err := sess.EnableLogs(ctx); err != nil {
		_ = ch.Close()

		return "", err
	}

	c.ch = ch
	c.dev = sess
	c.id = id

	logger.InfoKV(ctx, "Connected to time-base instrument",
		"resource", c.cfg.Resource, "id", id)

	return id, nil
}

// Time reads the instrument's absolute TAI clock. The sample is fresh on
// every call.
func (c *Controller) Time(ctx context.Context) (device.TimeSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return device.TimeSample{}, ErrNotConnected
	}

	return c.dev.Time(ctx)
}

// PopEvent destructively reads the oldest external-edge record,
// returning (nil, nil) when the log is empty. The read is countable:
// it advances the log-hygiene counter.
func (c *Controller) PopEvent(ctx context.Context) (*device.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return nil, ErrNotConnected
	}

	ev, err := c.dev.PopEvent(ctx)
	if err != nil {
		return nil, err
	}

	c.countOpLocked(ctx)

	return ev, nil
}

// ClearLogs empties both on-device logs and resets the debounce state and
// the hygiene counter. Unlike the automatic hygiene clear, failures here
// are returned to the caller.
func (c *Controller) ClearLogs(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.clearLogsLocked(ctx)
}

// clearLogsLocked clears device logs plus session-side debounce/counter
// state. Callers must hold mu.
func (c *Controller) clearLogsLocked(ctx context.Context) error {
	if c.dev == nil {
		return ErrNotConnected
	}

	if err := c.dev.ClearLogs(ctx); err != nil {
		return fmt.Errorf("clear logs: %w", err)
	}

	c.deb.reset()
	c.ops = 0

	return nil
}

// countOpLocked advances the hygiene counter and, at the configured
// threshold, synchronously clears both on-device logs and the debounce
// state. The FIFO has bounded depth; leaving it unread across thousands
// of operations causes query stalls on long unattended runs. Clear
// failures are logged and swallowed. Callers must hold mu.
func (c *Controller) countOpLocked(ctx context.Context) {
	c.ops++
	if c.ops < c.cfg.LogClearEvery {
		return
	}

	if err := c.dev.ClearLogs(ctx); err != nil {
		logger.WarnKV(ctx, "Housekeeping log clear failed; continuing",
			"error", err)
	}

	c.deb.reset()
	c.ops = 0
}

// Disarm drops every programmed alarm, cancels a running loop and waits,
// bounded, for its acknowledgment. Calling it repeatedly or with nothing
// running is a no-op; it never returns an error.
func (c *Controller) Disarm(ctx context.Context) {
	c.mu.Lock()
	h := c.loop
	c.mu.Unlock()

	if h != nil {
		h.cancel()

		if !h.join(ctx, c.cfg.Timeout+pollInterval(c.cfg.PulsePeriod)) {
			logger.Warnf(ctx, "Trigger loop did not acknowledge cancellation in time")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return
	}

	if err := c.dev.DropAlarms(ctx); err != nil {
		logger.WarnKV(ctx, "Drop alarms failed during disarm", "error", err)
	}
}

// Wait blocks until the running background loop finishes, or returns the
// context error. With no loop armed it returns immediately.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	h := c.loop
	c.mu.Unlock()

	if h == nil {
		return nil
	}

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Busy reports whether a background loop is currently armed.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loop != nil
}

// Close disarms and releases the transport. Teardown failures are logged,
// never raised: resources are always released.
func (c *Controller) Close(ctx context.Context) {
	c.Disarm(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			logger.WarnKV(ctx, "Closing transport failed", "error", err)
		}
	}

	c.ch = nil
	c.dev = nil
	c.id = ""
}
