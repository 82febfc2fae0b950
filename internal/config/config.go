package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the connection and timing parameters shared by the trigsync binaries.
// Timing fields act as current defaults; individual calls may override them.
type Config struct {
	// Resource is the raw-socket address of the time-base instrument (host:port).
	Resource string `yaml:"resource"`
	// OutputChannel is the 1-based index of the trigger output driven by the alarm.
	OutputChannel int `yaml:"output_channel"`
	// InputChannel is the external input index (0 or 1) whose edges pace the handshake.
	InputChannel int `yaml:"input_channel"`
	// Timeout bounds every command/query round trip on the wire.
	Timeout time.Duration `yaml:"timeout"`
	// BurstLead is the default offset from "now" at which a burst is scheduled.
	BurstLead time.Duration `yaml:"burst_lead"`
	// PulsePeriod is the default spacing between pulses within a burst.
	PulsePeriod time.Duration `yaml:"pulse_period"`
	// PulseCount is the default number of pulses per burst.
	PulseCount int `yaml:"pulse_count"`
	// GuardMargin is the minimum offset added to "now" when a requested
	// start would already be in the past.
	GuardMargin time.Duration `yaml:"guard_margin"`
	// DebounceInterval is the minimum hardware-time spacing between two
	// accepted edges on one input channel.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
	// LogClearEvery is the number of countable device operations after which
	// both on-device logs are cleared to bound FIFO depth.
	LogClearEvery int `yaml:"log_clear_every"`
	// LogLevel selects the minimum severity written to the console.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for controller settings.
	DefaultConfigFilename = "trigsync-settings.yaml"

	// DefaultPort is the LXI raw-socket port used when the resource omits one.
	DefaultPort = "5025"

	// DefaultTimeout is the default duration for command/query round trips.
	DefaultTimeout = 5 * time.Second

	// DefaultBurstLead is the default scheduling offset from "now".
	DefaultBurstLead = 200 * time.Millisecond

	// DefaultPulsePeriod is the default pulse spacing within a burst.
	DefaultPulsePeriod = time.Millisecond

	// DefaultPulseCount is the default number of pulses per burst.
	DefaultPulseCount = 1

	// DefaultGuardMargin is the default past-schedule correction offset.
	DefaultGuardMargin = 50 * time.Millisecond

	// DefaultDebounceInterval is the default edge de-duplication window.
	DefaultDebounceInterval = time.Millisecond

	// DefaultLogClearEvery is the default operation count between log clears.
	DefaultLogClearEvery = 100

	// DefaultOutputChannel is the default trigger output index.
	DefaultOutputChannel = 1

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errResourceRequired is returned when the instrument address is missing.
	errResourceRequired = errors.New("instrument resource address must be provided")
	// errBadInputChannel is returned when the external input index is not 0 or 1.
	errBadInputChannel = errors.New("input channel must be 0 or 1")
)

// Default returns a Config populated with every default value.
// The resource address still has to be filled in by the caller.
func Default() *Config {
	return &Config{
		OutputChannel:    DefaultOutputChannel,
		InputChannel:     0,
		Timeout:          DefaultTimeout,
		BurstLead:        DefaultBurstLead,
		PulsePeriod:      DefaultPulsePeriod,
		PulseCount:       DefaultPulseCount,
		GuardMargin:      DefaultGuardMargin,
		DebounceInterval: DefaultDebounceInterval,
		LogClearEvery:    DefaultLogClearEvery,
		LogLevel:         "info",
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields
// and fills in defaults for everything left unset.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Resource == "" {
		return errResourceRequired
	}

	// Bare hostnames get the standard raw-socket port appended.
	if _, _, err := net.SplitHostPort(cfg.Resource); err != nil {
		cfg.Resource = net.JoinHostPort(cfg.Resource, DefaultPort)
	}

	host, _, err := net.SplitHostPort(cfg.Resource)
	if err != nil || host == "" {
		return fmt.Errorf("invalid resource address %q", cfg.Resource)
	}

	if cfg.InputChannel != 0 && cfg.InputChannel != 1 {
		return errBadInputChannel
	}

	if cfg.OutputChannel <= 0 {
		cfg.OutputChannel = DefaultOutputChannel
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.BurstLead <= 0 {
		cfg.BurstLead = DefaultBurstLead
	}

	if cfg.PulsePeriod <= 0 {
		cfg.PulsePeriod = DefaultPulsePeriod
	}

	if cfg.PulseCount <= 0 {
		cfg.PulseCount = DefaultPulseCount
	}

	if cfg.GuardMargin <= 0 {
		cfg.GuardMargin = DefaultGuardMargin
	}

	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}

	if cfg.LogClearEvery <= 0 {
		cfg.LogClearEvery = DefaultLogClearEvery
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return nil
}
