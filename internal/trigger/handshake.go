package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/strella111/trigsync/internal/device"
	"github.com/strella111/trigsync/internal/logger"
)

const (
	// minPollInterval and maxPollInterval clamp the loop's sleep so the
	// query rate stays bounded regardless of the pulse period.
	minPollInterval = 2 * time.Millisecond
	maxPollInterval = 50 * time.Millisecond

	// maxFaultBackoff caps the pause after an absorbed iteration fault.
	maxFaultBackoff = 500 * time.Millisecond
)

// loopHandle is the cancellation token plus completion signal of one
// background loop. Cancellation is cooperative: the flag is observed at
// iteration boundaries and inside the sleep, never mid-command.
type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// join waits for the loop to acknowledge, bounded by d and by ctx.
func (h *loopHandle) join(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// ArmHandshake starts the closed-loop handshake: one prime burst fires by
// time, then every validated external edge schedules one follow-up burst
// until the batch budget is spent. A non-positive primeLead uses the
// configured default lead.
//
// The prime consumes one batch; batches=1 therefore completes right after
// the prime. Completion does not disarm: the last programmed burst is
// allowed to play out.
func (c *Controller) ArmHandshake(ctx context.Context, batches int, primeLead time.Duration) error {
	if batches < 1 {
		return fmt.Errorf("%w: batch count %d must be at least 1",
			ErrInvalidParameter, batches)
	}

	if primeLead <= 0 {
		primeLead = c.cfg.BurstLead
	}

	c.mu.Lock()

	if c.loop != nil {
		c.mu.Unlock()

		return ErrBusy
	}

	// Stale edges queued before the session started must not pace bursts.
	if err := c.clearLogsLocked(ctx); err != nil {
		c.mu.Unlock()

		return err
	}

	if _, err := c.scheduleBurstLocked(ctx, primeLead, c.cfg.PulsePeriod, c.cfg.PulseCount); err != nil {
		c.mu.Unlock()

		return fmt.Errorf("prime burst: %w", err)
	}

	c.startLoopLocked(ctx, "handshake", batches-1, false)
	c.mu.Unlock()

	logger.InfoKV(ctx, "Handshake armed",
		"batches", batches, "prime_lead", primeLead.String())

	return nil
}

// ArmExtToBurst starts the continuous sibling mode: every validated
// external edge unconditionally schedules one burst, indefinitely, until
// cancelled or disarmed.
func (c *Controller) ArmExtToBurst(ctx context.Context) error {
	c.mu.Lock()

	if c.loop != nil {
		c.mu.Unlock()

		return ErrBusy
	}

	if err := c.clearLogsLocked(ctx); err != nil {
		c.mu.Unlock()

		return err
	}

	c.startLoopLocked(ctx, "ext-burst", 0, true)
	c.mu.Unlock()

	logger.Info(ctx, "EXT-to-burst armed")

	return nil
}

// startLoopLocked registers and launches the background loop goroutine.
// Callers must hold mu and have verified no loop is active.
func (c *Controller) startLoopLocked(ctx context.Context, name string, remaining int, endless bool) {
	loopCtx, cancel := context.WithCancel(ctx)
	h := &loopHandle{cancel: cancel, done: make(chan struct{})}
	c.loop = h

	go c.runLoop(logger.WithName(loopCtx, name), h, remaining, endless)
}

// runLoop is the poll cycle shared by the handshake and EXT-to-burst
// modes. Single-iteration faults are logged and absorbed with exponential
// backoff so a multi-hour unattended run survives isolated faults; the
// next clean iteration is the implicit retry.
func (c *Controller) runLoop(ctx context.Context, h *loopHandle, remaining int, endless bool) {
	defer close(h.done)
	defer func() {
		c.mu.Lock()
		if c.loop == h {
			c.loop = nil
		}
		c.mu.Unlock()
	}()

	poll := pollInterval(c.cfg.PulsePeriod)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = poll
	bo.MaxInterval = maxFaultBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	for (endless || remaining > 0) && ctx.Err() == nil {
		scheduled, err := c.pollOnce(ctx)
		if err != nil {
			logger.WarnKV(ctx, "Poll iteration failed; continuing",
				"error", err)

			if !sleepCtx(ctx, bo.NextBackOff()) {
				break
			}

			continue
		}

		bo.Reset()

		if scheduled && !endless {
			remaining--
			if remaining == 0 {
				// Completion leaves the final programmed burst armed;
				// only cancellation drops not-yet-fired programs.
				logger.Info(ctx, "Handshake complete")

				break
			}
		}

		if !sleepCtx(ctx, poll) {
			break
		}
	}

	if ctx.Err() != nil {
		c.dropAlarmsQuiet()
	}
}

// pollOnce runs one iteration of the poll body: depth probe, destructive
// pop, validation, and the follow-up schedule for a valid edge. It reports
// whether a burst was scheduled.
func (c *Controller) pollOnce(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return false, ErrNotConnected
	}

	depth, err := c.dev.LogDepth(ctx)

	switch {
	case errors.Is(err, device.ErrUnsupported):
		// No depth reporting on this firmware; pop blind.
	case err != nil:
		return false, err
	case depth == 0:
		return false, nil
	}

	ev, err := c.dev.PopEvent(ctx)
	if err != nil {
		return false, err
	}

	c.countOpLocked(ctx)

	if ev == nil {
		return false, nil
	}

	if !c.deb.accept(ev, c.cfg.InputChannel, "") {
		logger.DebugKV(ctx, "Edge rejected",
			"source", ev.Source, "slope", ev.Slope, "timestamp", ev.Timestamp.String())

		return false, nil
	}

	if _, err := c.scheduleBurstLocked(ctx, c.cfg.BurstLead, c.cfg.PulsePeriod, c.cfg.PulseCount); err != nil {
		return false, err
	}

	return true, nil
}

// dropAlarmsQuiet hard-disarms after a cancellation, best-effort. It runs
// on a fresh context because the loop's own context is already cancelled.
func (c *Controller) dropAlarmsQuiet() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return
	}

	if err := c.dev.DropAlarms(ctx); err != nil {
		logger.WarnKV(ctx, "Drop alarms failed after cancellation", "error", err)
	}
}

// pollInterval derives the loop sleep as half the pulse period, clamped
// to keep the query rate reasonable.
func pollInterval(period time.Duration) time.Duration {
	p := period / 2

	if p < minPollInterval {
		return minPollInterval
	}

	if p > maxPollInterval {
		return maxPollInterval
	}

	return p
}

// sleepCtx pauses for d, returning false when the context is cancelled
// before the pause elapses.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
