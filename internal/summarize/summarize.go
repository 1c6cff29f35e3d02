// Package summarize turns study notes into a summary, key points and
// flashcards, and converts between text and speech.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/skulwise/skulwise/internal/llm"
	"github.com/skulwise/skulwise/internal/logging"
)

// MaxTextLength is the longest input accepted, in characters.
const MaxTextLength = 50_000

var (
	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("text content is required")
	// ErrTextTooLong is returned for input over MaxTextLength characters.
	ErrTextTooLong = fmt.Errorf("text content is too long (max %d characters)", MaxTextLength)
)

// Flashcard is one generated question and answer.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Summary is the generated study material.
type Summary struct {
	Summary    string      `json:"summary"`
	KeyPoints  []string    `json:"keyPoints"`
	Flashcards []Flashcard `json:"flashcards"`
}

// Config tunes generation.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 1500, Temperature: 0.7}
}

// Service summarizes notes with an LLM provider.
type Service struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// New creates a Service. A nil logger discards output.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		config:   cfg,
		logger:   logging.NewComponentLogger(logger, "summarize"),
	}
}

// Summarize generates study material from text.
func (s *Service) Summarize(ctx context.Context, text string) (*Summary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, ErrTextTooLong
	}

	ctx = llm.WithPurpose(ctx, "summarize")
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserMessage("Please summarize these notes and create study materials:\n\n" + text),
		Schema:      SummarySchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize notes: %w", err)
	}

	var out Summary
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	s.logger.Debug("notes summarized",
		slog.Int("input_chars", len(text)),
		slog.Int("key_points", len(out.KeyPoints)),
		slog.Int("flashcards", len(out.Flashcards)),
	)
	return &out, nil
}

// Narration returns the text read aloud for s: the summary followed by
// its key points.
func (s *Summary) Narration() string {
	var b strings.Builder
	b.WriteString(s.Summary)
	if len(s.KeyPoints) > 0 {
		b.WriteString("\n\nKey points.\n")
		for _, p := range s.KeyPoints {
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
