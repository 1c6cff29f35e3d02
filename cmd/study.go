package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/study"
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Record study activity",
}

var studySessionCmd = &cobra.Command{
	Use:   "session <subject>",
	Short: "Record a completed study session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		minutes, _ := cmd.Flags().GetInt("minutes")
		kind, _ := cmd.Flags().GetString("type")
		return recordActivity(cmd, func(e *env) (study.Result, error) {
			return e.study.CompleteStudySession(cmd.Context(), study.SessionInput{
				Subject:         args[0],
				Topic:           topic,
				DurationMinutes: minutes,
				SessionType:     kind,
			})
		})
	},
}

var studyFlashcardCmd = &cobra.Command{
	Use:   "flashcard <card-id> <got-it|review>",
	Short: "Record a flashcard review",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordActivity(cmd, func(e *env) (study.Result, error) {
			return e.study.ReviewFlashcard(cmd.Context(), args[0], offline.ReviewOutcome(args[1]))
		})
	},
}

var studyUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Record a processed set of notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordActivity(cmd, func(e *env) (study.Result, error) {
			return e.study.UploadNotes(cmd.Context())
		})
	},
}

var studyLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Claim today's login bonus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordActivity(cmd, func(e *env) (study.Result, error) {
			return e.study.DailyLogin(cmd.Context())
		})
	},
}

func init() {
	studySessionCmd.Flags().String("topic", "", "Topic studied")
	studySessionCmd.Flags().Int("minutes", 0, "Session length in minutes")
	studySessionCmd.Flags().String("type", "study", "Session type, e.g. study, review, quiz")

	studyCmd.AddCommand(studySessionCmd)
	studyCmd.AddCommand(studyFlashcardCmd)
	studyCmd.AddCommand(studyUploadCmd)
	studyCmd.AddCommand(studyLoginCmd)
}

// recordActivity opens the environment with a fresh connectivity probe,
// runs op and prints its result. A sync started by the enqueue is allowed
// to finish before returning.
func recordActivity(cmd *cobra.Command, op func(*env) (study.Result, error)) error {
	e, err := openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := op(e)
	if err != nil {
		return err
	}
	e.settle()
	printResult(cmd.OutOrStdout(), res, e.manager.Len(), e.manager.Online())
	return nil
}

func printResult(w io.Writer, res study.Result, queued int, online bool) {
	if res.Skipped {
		fmt.Fprintln(w, "Already claimed today.")
		return
	}
	fmt.Fprintf(w, "+%d XP", res.XPGained)
	if res.StreakBonus > 0 {
		fmt.Fprintf(w, " (includes %d streak bonus)", res.StreakBonus)
	}
	fmt.Fprintf(w, "  total %d  level %d  streak %d\n", res.TotalXP, res.Level, res.Streak)
	if res.LeveledUp {
		fmt.Fprintf(w, "Level up! You reached level %d.\n", res.Level)
	}
	for _, a := range res.Unlocked {
		fmt.Fprintf(w, "%s Achievement unlocked: %s (+%d XP)\n", a.Icon, a.Title, a.XPReward)
	}
	switch {
	case queued == 0:
		fmt.Fprintln(w, "Synced.")
	case online:
		fmt.Fprintf(w, "%d action(s) waiting to sync.\n", queued)
	default:
		fmt.Fprintf(w, "Offline: %d action(s) queued and will sync when you reconnect.\n", queued)
	}
}
