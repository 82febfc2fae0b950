package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strella111/trigsync/internal/device"
)

// TestLogHygiene_AutoClear verifies both logs are cleared and the counter
// resets after the configured number of countable operations.
func TestLogHygiene_AutoClear(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.LogClearEvery = 3

	fake := newFakeDevice()
	c := NewWithDevice(cfg, fake)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Burst(ctx, 1, 0, 0)
		require.NoError(t, err)
	}

	require.Zero(t, fake.clearCount())

	// Third countable operation trips the clear; a log read counts too.
	_, err := c.PopEvent(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, fake.clearCount())
	require.Zero(t, c.ops)

	// The next cycle starts counting from zero.
	for i := 0; i < 3; i++ {
		_, err = c.Burst(ctx, 1, 0, 0)
		require.NoError(t, err)
	}

	require.Equal(t, 2, fake.clearCount())
}

// TestPopEvent_EmptyLog verifies an empty FIFO maps to (nil, nil).
func TestPopEvent_EmptyLog(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	c := NewWithDevice(testConfig(), fake)

	ev, err := c.PopEvent(context.Background())
	require.NoError(t, err)
	require.Nil(t, ev)
}

// TestClearLogs_ResetsDebounce verifies an explicit clear empties the FIFO
// and forgets the debounce history.
func TestClearLogs_ResetsDebounce(t *testing.T) {
	t.Parallel()

	fake := newFakeDevice()
	c := NewWithDevice(testConfig(), fake)
	ctx := context.Background()

	ts := device.TimeSample{Sec: 100, Frac: 0.5}
	require.True(t, c.deb.accept(&device.Event{Timestamp: ts, Source: 0, Slope: "POS"}, 0, ""))
	require.False(t, c.deb.accept(&device.Event{Timestamp: ts, Source: 0, Slope: "POS"}, 0, ""))

	require.NoError(t, c.ClearLogs(ctx))

	require.True(t, c.deb.accept(&device.Event{Timestamp: ts, Source: 0, Slope: "POS"}, 0, ""))
	require.Equal(t, 1, fake.clearCount())
}

// TestClearLogs_NotConnected verifies the explicit clear needs a session.
func TestClearLogs_NotConnected(t *testing.T) {
	t.Parallel()

	c := New(testConfig())

	require.ErrorIs(t, c.ClearLogs(context.Background()), ErrNotConnected)
}

// TestDisarm_Idempotent verifies disarm is safe with nothing running, safe
// to repeat, and hard-drops programmed alarms when a session exists.
func TestDisarm_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Without a session disarm is a silent no-op.
	bare := New(testConfig())
	bare.Disarm(ctx)
	bare.Disarm(ctx)

	fake := newFakeDevice()
	c := NewWithDevice(testConfig(), fake)

	_, err := c.Burst(ctx, 1, 0, 0)
	require.NoError(t, err)

	c.Disarm(ctx)
	c.Disarm(ctx)

	require.Equal(t, 2, fake.dropCount())
	require.False(t, c.Busy())
}

// TestClose_ReleasesSession verifies close disarms, releases the session
// and never fails, even repeated.
func TestClose_ReleasesSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fake := newFakeDevice()
	c := NewWithDevice(testConfig(), fake)

	c.Close(ctx)
	require.Equal(t, 1, fake.dropCount())

	// The session is gone: operations fail locally.
	_, err := c.Burst(ctx, 1, 0, 0)
	require.ErrorIs(t, err, ErrNotConnected)

	c.Close(ctx)
}
