package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/strella111/trigsync/internal/device"
	"github.com/strella111/trigsync/internal/logger"
)

const (
	// MinPulsePeriod is the documented minimum alarm period.
	// It is enforced uniformly on every scheduling path.
	MinPulsePeriod = 100 * time.Microsecond

	// MaxPulseCount bounds one burst per the size of the alarm table.
	MaxPulseCount = 5000

	// MinimumGuard is the smallest offset used when a requested start
	// has to be corrected into the future.
	MinimumGuard = 10 * time.Millisecond

	// scheduleEpsilon is the slack, in seconds, below which a desired
	// start no longer counts as being in the future.
	scheduleEpsilon = 1e-6
)

// SinglePulse schedules one pulse at lead from "now". A non-positive lead
// uses the configured default.
func (c *Controller) SinglePulse(ctx context.Context, lead time.Duration) (device.TimeSample, error) {
	return c.Burst(ctx, 1, 0, lead)
}

// Burst schedules one burst of count pulses. Non-positive period and lead
// fall back to the configured defaults; count is validated as given.
// The returned sample is the effective start on the instrument's clock.
func (c *Controller) Burst(ctx context.Context, count int, period, lead time.Duration) (device.TimeSample, error) {
	if period <= 0 {
		period = c.cfg.PulsePeriod
	}

	if lead <= 0 {
		lead = c.cfg.BurstLead
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.scheduleBurstLocked(ctx, lead, period, count)
}

// scheduleBurstLocked validates locally, reads the instrument clock, guards
// the start time into the future, binds the output and issues the atomic
// configure write. Once it returns without error the device will emit the
// burst autonomously unless disarmed first. Callers must hold mu.
func (c *Controller) scheduleBurstLocked(ctx context.Context, lead, period time.Duration, count int) (device.TimeSample, error) {
	if err := validateBurst(period, count); err != nil {
		return device.TimeSample{}, err
	}

	if c.dev == nil {
		return device.TimeSample{}, ErrNotConnected
	}

	now, err := c.dev.Time(ctx)
	if err != nil {
		return device.TimeSample{}, err
	}

	desired := now.Add(lead.Seconds())

	// A start at or behind "now" is silently corrected, not rejected:
	// issuing a schedule that is already in the past would never fire.
	if desired.Sub(now) <= scheduleEpsilon {
		guard := c.cfg.GuardMargin
		if guard < MinimumGuard {
			guard = MinimumGuard
		}

		desired = now.Add(guard.Seconds())

		logger.DebugKV(ctx, "Requested start corrected into the future",
			"lead", lead.String(), "guard", guard.String())
	}

	if err := c.dev.BindOutput(ctx, c.cfg.OutputChannel); err != nil {
		return device.TimeSample{}, err
	}

	if err := c.dev.ConfigureAlarm(ctx, c.cfg.OutputChannel, desired, period.Seconds(), count); err != nil {
		return device.TimeSample{}, err
	}

	// The configure write is fire-and-forget on the wire; the error queue
	// is the only way to learn the device rejected it.
	if err := c.dev.CheckError(ctx); err != nil {
		return device.TimeSample{}, fmt.Errorf("schedule rejected: %w", err)
	}

	c.countOpLocked(ctx)

	logger.DebugKV(ctx, "Burst scheduled",
		"start", desired.String(), "period", period.String(), "count", count)

	return desired, nil
}

// validateBurst rejects out-of-range period and count before any write
// reaches the device.
func validateBurst(period time.Duration, count int) error {
	if period < MinPulsePeriod {
		return fmt.Errorf("%w: period %s below minimum %s",
			ErrInvalidParameter, period, MinPulsePeriod)
	}

	if count < 1 || count > MaxPulseCount {
		return fmt.Errorf("%w: pulse count %d outside [1, %d]",
			ErrInvalidParameter, count, MaxPulseCount)
	}

	return nil
}
