package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate_DefaultsAndErrors verifies required fields and default substitution.
func TestValidate_DefaultsAndErrors(t *testing.T) {
	t.Parallel()

	// Missing resource is the only hard requirement.
	require.Error(t, Validate(&Config{}))
	require.Error(t, Validate(nil))

	cfg := &Config{Resource: "timebase.local"}
	require.NoError(t, Validate(cfg))

	// Bare hostname gets the raw-socket port appended.
	require.Equal(t, "timebase.local:5025", cfg.Resource)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultBurstLead, cfg.BurstLead)
	require.Equal(t, DefaultPulsePeriod, cfg.PulsePeriod)
	require.Equal(t, DefaultPulseCount, cfg.PulseCount)
	require.Equal(t, DefaultGuardMargin, cfg.GuardMargin)
	require.Equal(t, DefaultDebounceInterval, cfg.DebounceInterval)
	require.Equal(t, DefaultLogClearEvery, cfg.LogClearEvery)
	require.Equal(t, DefaultOutputChannel, cfg.OutputChannel)

	// Input channel outside {0, 1} is rejected.
	bad := &Config{Resource: "timebase.local", InputChannel: 2}
	require.Error(t, Validate(bad))
}

// TestSaveLoad_RoundTrip verifies settings survive a save/load cycle.
func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	want := Default()
	want.Resource = "192.168.7.40:5025"
	want.PulseCount = 64
	want.DebounceInterval = 3 * time.Millisecond

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want.Resource, got.Resource)
	require.Equal(t, 64, got.PulseCount)
	require.Equal(t, 3*time.Millisecond, got.DebounceInterval)
}

// TestLoad_MissingFile verifies a readable error for an absent settings file.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
