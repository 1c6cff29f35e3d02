package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skulwise/skulwise/internal/config"
	"github.com/skulwise/skulwise/internal/llm"
	"github.com/skulwise/skulwise/internal/study"
	"github.com/skulwise/skulwise/internal/summarize"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize study notes into key points and flashcards",
	Long:  "Summarizes a notes file (use - for stdin), awards upload XP and optionally narrates the summary to an MP3 file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		audioPath, _ := cmd.Flags().GetString("audio")

		text, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, true)
		if err != nil {
			return err
		}
		defer e.Close()

		llmCfg := e.cfg.LLMConfig()
		if err := llmCfg.Validate(); err != nil {
			return fmt.Errorf("LLM provider not configured: %w", err)
		}
		provider, err := llm.New(ctx, llmCfg, e.logger)
		if err != nil {
			return fmt.Errorf("create LLM provider: %w", err)
		}

		summary, err := summarize.New(provider, summarize.DefaultConfig(), e.logger).Summarize(ctx, text)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printSummary(out, summary)

		res, err := e.study.UploadNotes(ctx)
		if err != nil {
			return err
		}

		if audioPath != "" {
			if err := narrate(cmd, e.cfg, summary, audioPath); err != nil {
				return err
			}
			audioRes, err := e.study.RecordAudioGenerated(ctx)
			if err != nil {
				return err
			}
			res = mergeResults(res, audioRes)
			fmt.Fprintf(out, "Audio written to %s\n", audioPath)
		}

		e.settle()
		fmt.Fprintln(out)
		printResult(out, res, e.manager.Len(), e.manager.Online())
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("audio", "", "Write an MP3 narration of the summary to this path")
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read notes: %w", err)
	}
	return string(b), nil
}

func newSpeech(cfg *config.Config) (*summarize.Speech, error) {
	return summarize.NewSpeech(summarize.SpeechConfig{
		APIKey:             cfg.OpenAIKey(),
		BaseURL:            cfg.LLMConfig().OpenAI.BaseURL,
		TTSModel:           cfg.Speech.TTSModel,
		Voice:              cfg.Speech.Voice,
		TranscriptionModel: cfg.Speech.TranscriptionModel,
	})
}

func narrate(cmd *cobra.Command, cfg *config.Config, s *summarize.Summary, path string) (err error) {
	speech, err := newSpeech(cfg)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close audio file: %w", cerr)
		}
	}()
	_, err = speech.TextToSpeech(cmd.Context(), s.Narration(), f)
	return err
}

func printSummary(w io.Writer, s *summarize.Summary) {
	fmt.Fprintln(w, s.Summary)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Key points:")
	for _, p := range s.KeyPoints {
		fmt.Fprintf(w, "  • %s\n", p)
	}
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(s.Flashcards))
	for _, c := range s.Flashcards {
		rows = append(rows, []string{study.NewCardID(), c.Question, c.Answer})
	}
	fmt.Fprintln(w, renderTable([]string{"Card", "Question", "Answer"}, rows, nil))
}

// mergeResults folds a follow-up result into the first so one summary is
// printed.
func mergeResults(a, b study.Result) study.Result {
	a.XPGained += b.XPGained
	a.AchievementXP += b.AchievementXP
	a.TotalXP = b.TotalXP
	a.LeveledUp = a.LeveledUp || b.LeveledUp
	a.Level = b.Level
	a.Streak = b.Streak
	a.Unlocked = append(a.Unlocked, b.Unlocked...)
	a.Records = append(a.Records, b.Records...)
	return a
}
