package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/logger"
	"github.com/strella111/trigsync/internal/trigger"
)

var (
	// pulseLead is the offset from "now" for the scheduled pulse.
	pulseLead time.Duration

	// pulseCmd schedules one pulse on the configured output.
	pulseCmd = &cobra.Command{
		Use:   "pulse",
		Short: "Schedule a single trigger pulse.",
		Long: `Schedule one pulse on the configured trigger output, offset from the
instrument's clock by the lead time. A lead that would land in the past is
silently corrected by the guard margin.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withController(ctx, func(ctx context.Context, _ *config.Config, ctl *trigger.Controller) error {
				start, err := ctl.SinglePulse(ctx, pulseLead)
				if err != nil {
					return err
				}

				logger.InfoKV(ctx, "Pulse scheduled", "start", start.String())

				return nil
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pulseCmd.Flags().DurationVar(&pulseLead, "lead", 0,
		"offset from now (default from settings)")

	rootCmd.AddCommand(pulseCmd)
}
