package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/logger"
	"github.com/strella111/trigsync/internal/trigger"
)

// extArmCmd runs the continuous EXT-to-burst mode until interrupted.
var extArmCmd = &cobra.Command{
	Use:   "ext-arm",
	Short: "Fire one burst per external edge until interrupted.",
	Long: `Arm the continuous EXT-to-burst mode: every validated external trigger
edge schedules one burst, indefinitely. The command blocks until interrupted,
then disarms.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return withController(ctx, func(ctx context.Context, _ *config.Config, ctl *trigger.Controller) error {
			if err := ctl.ArmExtToBurst(ctx); err != nil {
				return err
			}

			_ = ctl.Wait(ctx)

			logger.Info(ctx, "Interrupted, disarming")
			ctl.Disarm(context.WithoutCancel(ctx))

			return nil
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(extArmCmd)
}
