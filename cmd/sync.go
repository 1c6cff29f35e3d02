package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply queued actions to the remote store now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		if e.manager.Len() == 0 {
			fmt.Fprintln(out, "Queue is empty.")
			return nil
		}
		if !e.manager.Online() {
			fmt.Fprintf(out, "Remote unreachable; %d action(s) stay queued.\n", e.manager.Len())
			return nil
		}

		res := e.manager.Sync(cmd.Context())
		fmt.Fprintf(out, "Applied %d of %d; %d failed, %d remaining.\n",
			res.Applied, res.Attempted, res.Failed, res.Remaining)
		return nil
	},
}
