package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skulwise/skulwise/internal/ui/dashboard"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of the queue, connectivity and level progress",
	Long:  "Runs the daemon's sync loop behind a terminal dashboard. Press s to sync now and q to quit.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		bgCtx, stop := context.WithCancel(ctx)
		if e.prober != nil {
			g.Go(func() error { return e.prober.Run(bgCtx) })
		}
		g.Go(func() error { return e.manager.Run(bgCtx) })
		g.Go(func() error {
			defer stop()
			return dashboard.Run(ctx, e.manager, e.study)
		})
		return g.Wait()
	},
}
