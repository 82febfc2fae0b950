package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/logger"
	"github.com/strella111/trigsync/internal/trigger"
	"github.com/strella111/trigsync/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// resource overrides the instrument address from the settings file.
	resource string
	// logLevel overrides the log level from the settings file.
	logLevel string

	// rootCmd is the base command for the trigsync controller CLI.
	rootCmd = &cobra.Command{
		Use:   "trigsync",
		Short: "Control a time-base instrument's trigger outputs.",
		Long: `Command-line front end for the trigger-synchronization controller.

Programs precisely timed pulse bursts on a remote time-base instrument and
runs the closed-loop handshake that paces successive bursts off externally
detected trigger edges. Connection and timing defaults come from a YAML
settings file; the resource address can be overridden per invocation.`,
	}
)

// Execute runs the trigsync CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&resource, "resource", "r", "",
		"instrument address override (host[:port])")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")
}

// signalContext returns a context cancelled by SIGTERM/SIGINT.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// loadConfig reads the settings file and applies command-line overrides.
// A missing settings file is tolerated when --resource is given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if resource == "" {
			return nil, err
		}

		cfg = config.Default()
	}

	if resource != "" {
		cfg.Resource = resource
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if lvl, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(lvl)
	}

	return cfg, nil
}

// withController connects to the instrument, runs fn and always releases
// the session, even when the surrounding context was cancelled.
func withController(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, ctl *trigger.Controller) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctl := trigger.New(cfg)

	if _, err := ctl.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	defer ctl.Close(context.WithoutCancel(ctx))

	return fn(ctx, cfg, ctl)
}
