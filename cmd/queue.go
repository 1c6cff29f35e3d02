package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skulwise/skulwise/internal/offline"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the offline queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List actions waiting to sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		pending := e.manager.Pending()
		out := cmd.OutOrStdout()
		if len(pending) == 0 {
			fmt.Fprintln(out, "No queued actions.")
			return nil
		}
		if at, ok, err := e.store.KV().UpdatedAt(cmd.Context(), e.cfg.Offline().Key); err != nil {
			return err
		} else if ok {
			fmt.Fprintf(out, "Last written: %s\n", at.Local().Format("2006-01-02 15:04:05"))
		}

		rows := make([][]string, 0, len(pending))
		for i, rec := range pending {
			rows = append(rows, []string{
				fmt.Sprintf("%d", i+1),
				rec.ID,
				string(rec.Action.Kind()),
				describeAction(rec.Action),
				rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "ID", "Type", "Details", "Queued"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

var queuePurgeRejectedCmd = &cobra.Command{
	Use:   "purge-rejected",
	Short: "Discard queue entries that could not be decoded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		kv := e.store.KV()
		key := offline.RejectedKey(e.cfg.Offline().Key)
		raw, ok, err := kv.Get(ctx, key)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintln(out, "No rejected entries.")
			return nil
		}
		var entries []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			entries = []json.RawMessage{json.RawMessage(raw)}
		}
		if err := kv.Delete(ctx, key); err != nil {
			return err
		}
		e.logger.Info("rejected entries purged", slog.Int("count", len(entries)), slog.String("key", key))
		fmt.Fprintf(out, "Removed %d rejected entries.\n", len(entries))
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd, queuePurgeRejectedCmd)
}

func describeAction(a offline.Action) string {
	switch v := a.(type) {
	case offline.StudySession:
		parts := []string{v.Subject}
		if v.Topic != "" {
			parts = append(parts, v.Topic)
		}
		return fmt.Sprintf("%s, %d min, +%d XP", strings.Join(parts, " / "), v.DurationMinutes, v.XPEarned)
	case offline.FlashcardReview:
		return fmt.Sprintf("card %s: %s", v.CardID, v.Outcome)
	case offline.XPUpdate:
		return fmt.Sprintf("total XP %d", v.TotalXP)
	default:
		return ""
	}
}
