package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/logger"
	"github.com/strella111/trigsync/internal/trigger"
)

var (
	// primeLead is the lead time for the prime burst.
	primeLead time.Duration

	// handshakeCmd runs the closed-loop handshake for a batch budget.
	handshakeCmd = &cobra.Command{
		Use:   "handshake <batches>",
		Short: "Run the closed-loop handshake for N batches.",
		Long: `Fire one prime burst by time, then schedule one follow-up burst per
validated external trigger edge until the batch budget is spent. The command
blocks until the handshake completes; interrupting it disarms any pending
program before exiting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			batches, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("batch count %q is not a number: %w", args[0], err)
			}

			ctx, stop := signalContext()
			defer stop()

			return withController(ctx, func(ctx context.Context, _ *config.Config, ctl *trigger.Controller) error {
				if err := ctl.ArmHandshake(ctx, batches, primeLead); err != nil {
					return err
				}

				if err := ctl.Wait(ctx); err != nil {
					// Interrupted: drop not-yet-fired programs before exiting.
					logger.Info(ctx, "Interrupted, disarming")
					ctl.Disarm(context.WithoutCancel(ctx))

					return nil
				}

				logger.Info(ctx, "Handshake finished")

				return nil
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	handshakeCmd.Flags().DurationVar(&primeLead, "prime-lead", 0,
		"lead time of the prime burst (default from settings)")

	rootCmd.AddCommand(handshakeCmd)
}
