package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/stackctl/cmd/stackctl/handlers"
)

// Reap returns the reap command.
func Reap(g *handlers.Globals) *cobra.Command {
	var opts handlers.ReapOptions

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Destroy expired pull request environments",
		Long: `Reap sweeps the account for pull request environments past their expiry
and destroys them. Without --once it sweeps on an interval until interrupted
and serves Prometheus metrics when a metrics address is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reap(cmd.Context(), *g, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "Time between sweeps (default: reaper.interval from config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Address serving /metrics (default: metrics_addr from config)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Run a single sweep and exit")

	return cmd
}
