package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Hold the queue and sync whenever the remote is reachable",
	Long: "Runs until interrupted. Probes the remote, syncs shortly after every reconnect " +
		"and retries periodically while actions remain queued.\n\n" +
		"The daemon holds the queue lock for as long as it runs, so study, sync and queue " +
		"commands fail with a lock error meanwhile. Record activity before starting it, " +
		"or use watch for an interactive session that syncs in the foreground.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		e.logger.Info("daemon started",
			slog.String("remote", e.cfg.Remote.Kind),
			slog.Int("queued", e.manager.Len()))

		g, ctx := errgroup.WithContext(cmd.Context())
		if e.prober != nil {
			g.Go(func() error { return e.prober.Run(ctx) })
		}
		g.Go(func() error { return e.manager.Run(ctx) })

		err = g.Wait()
		e.logger.Info("daemon stopped", slog.Int("queued", e.manager.Len()))
		return err
	},
}
