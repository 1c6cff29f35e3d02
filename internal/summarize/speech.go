package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SpeechConfig selects the OpenAI audio models.
type SpeechConfig struct {
	APIKey             string
	BaseURL            string
	TTSModel           string
	Voice              string
	TranscriptionModel string
}

// Speech converts text to audio and audio to text through OpenAI.
type Speech struct {
	client *openai.Client
	cfg    SpeechConfig
}

// NewSpeech creates a Speech client. Empty models fall back to tts-1,
// alloy and whisper-1.
func NewSpeech(cfg SpeechConfig) (*Speech, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required for speech")
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = string(openai.TTSModel1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.VoiceAlloy)
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = openai.Whisper1
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Speech{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// TextToSpeech synthesizes text as MP3 and copies the audio to w.
func (s *Speech) TextToSpeech(ctx context.Context, text string, w io.Writer) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyText
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(s.cfg.Voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return 0, fmt.Errorf("text to speech: %w", err)
	}
	defer resp.Close()

	n, err := io.Copy(w, resp)
	if err != nil {
		return n, fmt.Errorf("write audio: %w", err)
	}
	return n, nil
}

// Transcribe converts the audio file at path to text.
func (s *Speech) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.TranscriptionModel,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("speech to text: %w", err)
	}
	return resp.Text, nil
}
