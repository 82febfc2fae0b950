package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/config"
	"github.com/strella111/trigsync/internal/trigger"
)

// timeCmd prints the instrument's TAI clock, a quick link-health check.
var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Print the instrument's TAI clock.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		return withController(ctx, func(ctx context.Context, _ *config.Config, ctl *trigger.Controller) error {
			sample, err := ctl.Time(ctx)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sample.String())

			return nil
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(timeCmd)
}
