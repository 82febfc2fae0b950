package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/logger"
	"github.com/strella111/trigsync/internal/trigger"
)

// disarmCmd drops every programmed alarm on the instrument.
var disarmCmd = &cobra.Command{
	Use:   "disarm",
	Short: "Drop all programmed alarms.",
	Long: `Issue the instrument's drop-all-alarms command. Pulses already emitted
are unaffected; programs that have not fired yet are discarded. Safe to run
at any time, including with nothing armed.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return withController(ctx, func(ctx context.Context, _ *config.Config, ctl *trigger.Controller) error {
			ctl.Disarm(ctx)
			logger.Info(ctx, "Disarmed")

			return nil
		})
	},
}

// clearCmd empties both on-device logs.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear both on-device logs.",
	Long: `Empty the external-edge log and the trigger-output log and reset the
controller's debounce history. Useful before a long run to discard stale
edges.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return withController(ctx, func(ctx context.Context, _ *config.Config, ctl *trigger.Controller) error {
			if err := ctl.ClearLogs(ctx); err != nil {
				return err
			}

			logger.Info(ctx, "Logs cleared")

			return nil
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(disarmCmd)
	rootCmd.AddCommand(clearCmd)
}
