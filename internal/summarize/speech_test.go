package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpeechRequiresKey(t *testing.T) {
	_, err := NewSpeech(SpeechConfig{})
	assert.Error(t, err)
}

func TestTextToSpeech(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-fake-mp3"))
	}))
	defer srv.Close()

	sp, err := NewSpeech(SpeechConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := sp.TextToSpeech(context.Background(), "Read me aloud", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len("ID3-fake-mp3")), n)
	assert.Equal(t, "ID3-fake-mp3", buf.String())
	assert.Equal(t, "tts-1", got["model"])
	assert.Equal(t, "alloy", got["voice"])
	assert.Equal(t, "mp3", got["response_format"])
	assert.Equal(t, "Read me aloud", got["input"])
}

func TestTextToSpeechRejectsEmpty(t *testing.T) {
	sp, err := NewSpeech(SpeechConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	_, err = sp.TextToSpeech(context.Background(), "  ", io.Discard)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "lecture.mp3", hdr.Filename)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"mitochondria is the powerhouse of the cell"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "lecture.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o600))

	sp, err := NewSpeech(SpeechConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	text, err := sp.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "mitochondria is the powerhouse of the cell", text)
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad audio","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	sp, err := NewSpeech(SpeechConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	_, err = sp.Transcribe(context.Background(), path)
	assert.ErrorContains(t, err, "speech to text")
}
