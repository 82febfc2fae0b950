package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/strella111/trigsync/internal/discovery"
)

var (
	// discoverTimeout bounds the mDNS browse.
	discoverTimeout time.Duration

	// discoverCmd lists raw-socket instruments found on the local network.
	discoverCmd = &cobra.Command{
		Use:   "discover",
		Short: "Find time-base instruments on the local network.",
		Long: `Browse the local network via mDNS for instruments advertising a raw
SCPI socket and print their addresses, usable as the --resource value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			browseCtx, cancel := context.WithTimeout(ctx, discoverTimeout)
			defer cancel()

			instruments, err := discovery.Browse(browseCtx)
			if err != nil {
				return err
			}

			if len(instruments) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no instruments found")

				return nil
			}

			for _, inst := range instruments {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-30s %s\n", inst.Instance, inst.Resource())
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 3*time.Second,
		"how long to browse for instruments")

	rootCmd.AddCommand(discoverCmd)
}
