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
	// burstCount is the number of pulses; 0 falls back to the settings value.
	burstCount int
	// burstPeriod is the pulse spacing; 0 falls back to the settings value.
	burstPeriod time.Duration
	// burstLead is the offset from "now"; 0 falls back to the settings value.
	burstLead time.Duration

	// burstCmd schedules one periodic pulse burst.
	burstCmd = &cobra.Command{
		Use:   "burst",
		Short: "Schedule a periodic pulse burst.",
		Long: `Schedule one burst of N pulses at a fixed period on the configured
trigger output. Once scheduled, the instrument emits the burst autonomously;
use "disarm" to drop a not-yet-fired program.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return withController(ctx, func(ctx context.Context, cfg *config.Config, ctl *trigger.Controller) error {
				count := burstCount
				if count == 0 {
					count = cfg.PulseCount
				}

				start, err := ctl.Burst(ctx, count, burstPeriod, burstLead)
				if err != nil {
					return err
				}

				logger.InfoKV(ctx, "Burst scheduled",
					"start", start.String(), "count", count)

				return nil
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	burstCmd.Flags().IntVarP(&burstCount, "count", "n", 0,
		"pulses per burst (default from settings)")
	burstCmd.Flags().DurationVarP(&burstPeriod, "period", "p", 0,
		"pulse period (default from settings)")
	burstCmd.Flags().DurationVar(&burstLead, "lead", 0,
		"offset from now (default from settings)")

	rootCmd.AddCommand(burstCmd)
}
