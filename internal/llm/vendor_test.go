package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := NewOpenAIProvider(VendorConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return p
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1704880800,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		jsonHandler(http.StatusOK, chatCompletion(`{"summary":"s","keyPoints":["k"]}`, "stop"))(w, r)
	})

	resp, err := p.Generate(context.Background(), Request{
		System:    "You summarize study notes.",
		Messages:  UserMessage("Mitochondria make ATP."),
		Schema:    noteSchema(),
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 25, resp.Usage.OutputTokens)
	assert.Equal(t, "end", resp.StopReason)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAIErrors(t *testing.T) {
	apiErr := map[string]any{"error": map[string]any{"message": "nope", "type": "x"}}
	tests := []struct {
		name string
		h    http.HandlerFunc
		kind string
	}{
		{"rate limit", jsonHandler(http.StatusTooManyRequests, apiErr), KindTransient},
		{"server error", jsonHandler(http.StatusInternalServerError, apiErr), KindTransient},
		{"unauthorized", jsonHandler(http.StatusUnauthorized, apiErr), KindRejected},
		{"truncated", jsonHandler(http.StatusOK, chatCompletion(`{"summ`, "length")), KindRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestOpenAI(t, tt.h)
			_, err := p.Generate(context.Background(), Request{Messages: UserMessage("x")})
			require.Error(t, err)
			assert.Equal(t, tt.kind, ErrorKind(err))
		})
	}

	p := newTestOpenAI(t, jsonHandler(http.StatusTooManyRequests, apiErr))
	_, err := p.Generate(context.Background(), Request{Messages: UserMessage("x")})
	var rl *RateLimitError
	assert.ErrorAs(t, err, &rl)
}

func TestOpenRouterProvider(t *testing.T) {
	p, err := NewOpenRouterProvider(VendorConfig{APIKey: "sk-or", Model: "anthropic/claude-3-haiku"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-3-haiku", p.ModelID())

	_, err = NewOpenRouterProvider(VendorConfig{Model: "x"})
	assert.Error(t, err)

	// Friendly names are not mapped on OpenRouter.
	p, err = NewOpenRouterProvider(VendorConfig{APIKey: "sk-or", Model: "gpt-4o-mini", BaseURL: "https://router.example/v1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
}

func newTestAnthropic(t *testing.T, h http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := NewAnthropicProvider(VendorConfig{APIKey: "test-key", Model: "claude-haiku"},
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)
	return p
}

func TestAnthropicGenerate(t *testing.T) {
	p := newTestAnthropic(t, jsonHandler(http.StatusOK, map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": `{"summary":"s","keyPoints":["k"]}`}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}))
	assert.Equal(t, "claude-haiku-4-5-20251001", p.ModelID())

	resp, err := p.Generate(context.Background(), Request{
		System:    "You summarize study notes.",
		Messages:  UserMessage("Photosynthesis."),
		Schema:    noteSchema(),
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, resp.Usage.InputTokens)
	assert.Equal(t, 80, resp.Usage.TotalTokens)
}

func TestAnthropicErrors(t *testing.T) {
	body := map[string]any{"type": "error", "error": map[string]any{"type": "overloaded_error", "message": "busy"}}

	p := newTestAnthropic(t, jsonHandler(http.StatusTooManyRequests, body))
	_, err := p.Generate(context.Background(), Request{Messages: UserMessage("x"), MaxTokens: 10})
	var rl *RateLimitError
	assert.ErrorAs(t, err, &rl)

	p = newTestAnthropic(t, jsonHandler(http.StatusServiceUnavailable, body))
	_, err = p.Generate(context.Background(), Request{Messages: UserMessage("x"), MaxTokens: 10})
	var unavailable *UnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestModelMapping(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-20250514", resolveModel("claude-sonnet", anthropicModels))
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiModels))
	assert.Equal(t, "custom-model", resolveModel("custom-model", openaiModels))
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(noteSchema().Definition)

	assert.EqualValues(t, "OBJECT", s.Type)
	require.Len(t, s.Properties, 3)
	assert.EqualValues(t, "STRING", s.Properties["summary"].Type)
	assert.EqualValues(t, "ARRAY", s.Properties["keyPoints"].Type)
	assert.EqualValues(t, "STRING", s.Properties["keyPoints"].Items.Type)
	require.NotNil(t, s.Properties["keyPoints"].MinItems)
	assert.EqualValues(t, 1, *s.Properties["keyPoints"].MinItems)
	assert.Equal(t, []string{"easy", "hard"}, s.Properties["level"].Enum)
	assert.ElementsMatch(t, []string{"summary", "keyPoints"}, s.Required)
}
