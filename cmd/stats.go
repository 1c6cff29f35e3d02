package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skulwise/skulwise/internal/progression"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, streak and achievements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		snap, err := e.study.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		p := snap.State.Progress()

		fmt.Fprintf(out, "Level %d  (%d/%d XP, %.0f%%)\n",
			p.Level, p.CurrentLevelXP, p.CurrentLevelXP+p.XPToNextLevel, p.Percentage)
		fmt.Fprintf(out, "Total XP: %d\n", snap.State.TotalXP)
		fmt.Fprintf(out, "Streak:   %d day(s)", snap.State.Streak)
		if !snap.State.LastActivity.IsZero() {
			fmt.Fprintf(out, ", last active %s", snap.State.LastActivity)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Notes %d  Flashcards %d  Sessions %d  Audio %d\n",
			snap.Counters.NotesProcessed, snap.Counters.FlashcardsCompleted,
			snap.Counters.StudySessions, snap.Counters.AudioGenerated)
		fmt.Fprintf(out, "Queued actions: %d\n\n", e.manager.Len())

		unlocked := make(map[string]progression.AchievementStatus, len(snap.Achievements))
		for _, st := range snap.Achievements {
			unlocked[st.ID] = st
		}
		var rows [][]string
		for _, def := range progression.Achievements() {
			status := ""
			if st, ok := unlocked[def.ID]; ok && st.Unlocked && st.UnlockedAt != nil {
				status = st.UnlockedAt.Local().Format("2006-01-02")
			}
			rows = append(rows, []string{def.Icon + " " + def.Title, def.Description, fmt.Sprintf("%d", def.XPReward), status})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Achievement", "Goal", "XP", "Unlocked"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
		))
		return nil
	},
}
