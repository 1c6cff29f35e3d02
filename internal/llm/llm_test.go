package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noteSchema() *Schema {
	return &Schema{
		Name: "test-note",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
				"keyPoints": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 1,
				},
				"level": map[string]any{"type": "string", "enum": []any{"easy", "hard"}},
			},
			"required": []any{"summary", "keyPoints"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"summary":"cells","keyPoints":["nucleus"],"level":"easy"}`, false},
		{"optional omitted", `{"summary":"cells","keyPoints":["nucleus"]}`, false},
		{"missing required", `{"summary":"cells"}`, true},
		{"wrong type", `{"summary":3,"keyPoints":["x"]}`, true},
		{"bad enum", `{"summary":"s","keyPoints":["x"],"level":"medium"}`, true},
		{"too few items", `{"summary":"s","keyPoints":[]}`, true},
		{"malformed", `{"summary":`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(noteSchema(), json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidResponseError
			assert.ErrorAs(t, err, &invalid)
		})
	}

	assert.NoError(t, validateResponse(nil, json.RawMessage(`anything`)))
}

func TestMockProvider(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"summary":"a","keyPoints":["b"]}`), Usage: Usage{InputTokens: 3}},
		MockResponse{Err: boom},
	)
	ctx := context.Background()

	resp, err := m.Generate(ctx, Request{Messages: UserMessage("notes"), Schema: noteSchema()})
	require.NoError(t, err)
	assert.Equal(t, "mock", resp.Model)
	assert.Equal(t, 3, resp.Usage.InputTokens)

	_, err = m.Generate(ctx, Request{})
	assert.ErrorIs(t, err, boom)

	_, err = m.Generate(ctx, Request{})
	var unavailable *UnavailableError
	assert.ErrorAs(t, err, &unavailable)

	m.Push(MockResponse{Content: json.RawMessage(`{"summary":1}`)})
	_, err = m.Generate(ctx, Request{Schema: noteSchema()})
	var invalid *InvalidResponseError
	assert.ErrorAs(t, err, &invalid)

	require.Len(t, m.Calls(), 4)
	assert.Equal(t, "notes", m.Calls()[0].Messages[0].Content)
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", PurposeFrom(ctx))
	assert.Equal(t, "summarize", PurposeFrom(WithPurpose(ctx, "summarize")))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, KindTransient, ErrorKind(&RateLimitError{}))
	assert.Equal(t, KindTransient, ErrorKind(&UnavailableError{}))
	assert.Equal(t, KindRejected, ErrorKind(&TruncatedError{}))
	assert.Equal(t, KindRejected, ErrorKind(classifyStatus(400, errors.New("bad request"))))
	assert.Equal(t, KindTransient, ErrorKind(classifyStatus(503, errors.New("down"))))
	assert.Equal(t, KindTransient, ErrorKind(errors.New("dial tcp")))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: VendorConfig{APIKey: "sk"}}, false},
		{"openai without key", Config{Provider: "openai"}, true},
		{"openrouter with key", Config{Provider: "openrouter", OpenRouter: VendorConfig{APIKey: "sk-or"}}, false},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"unknown provider", Config{Provider: "llama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyEnvAndDiscover(t *testing.T) {
	t.Setenv("SKULWISE_LLM_PROVIDER", "anthropic")
	t.Setenv("SKULWISE_ANTHROPIC_MODEL", "claude-sonnet")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg := ApplyEnv(DefaultConfig())
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-sonnet", cfg.Anthropic.Model)
	require.Error(t, cfg.Validate())

	cfg, ok := Discover(cfg)
	require.True(t, ok)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gm-key", cfg.Gemini.APIKey)

	t.Setenv("GEMINI_API_KEY", "")
	_, ok = Discover(Config{Provider: "openai"})
	assert.False(t, ok)
}

func TestNewBuildsWrappedProvider(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "mock", Retry: RetryConfig{MaxAttempts: 1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	_, err = New(context.Background(), Config{Provider: "openai"}, nil)
	assert.Error(t, err)
}

func TestModelCost(t *testing.T) {
	c, ok := LookupCost("gpt-4o-mini")
	require.True(t, ok)
	assert.InDelta(t, 0.15+0.6, c.Cost(Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000}), 1e-9)

	_, ok = LookupCost("unknown-model")
	assert.False(t, ok)
}

func TestLoggingProviderPassesThrough(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`"ok"`)})
	p := WithLogging(m, nil)
	resp, err := p.Generate(WithPurpose(context.Background(), "summarize"), Request{})
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(resp.Content))

	_, err = p.Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetry(t *testing.T) {
	ok := MockResponse{Content: json.RawMessage(`{"ok":true}`)}
	down := MockResponse{Err: &UnavailableError{Err: errors.New("down")}}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{ok}, false, 1},
		{"transient then success", []MockResponse{down, down, ok}, false, 3},
		{"all attempts fail", []MockResponse{down, down, down, ok}, true, 3},
		{"truncation not retried", []MockResponse{{Err: &TruncatedError{}}, ok}, true, 1},
		{"rejection not retried", []MockResponse{{Err: classifyStatus(401, errors.New("auth"))}, ok}, true, 1},
		{"invalid retried once", []MockResponse{
			{Err: &InvalidResponseError{Err: errors.New("x")}},
			{Err: &InvalidResponseError{Err: errors.New("y")}},
			ok,
		}, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMockProvider(tt.responses...)
			_, err := WithRetry(m, fastRetry(), nil).Generate(context.Background(), Request{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, m.Calls(), tt.wantCalls)
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	m := NewMockProvider(MockResponse{Err: &RateLimitError{RetryAfter: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(m, fastRetry(), nil).Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryHonoursRetryAfter(t *testing.T) {
	r := &retryProvider{cfg: fastRetry()}
	assert.Equal(t, 2*time.Second, r.backoff(0, &RateLimitError{RetryAfter: 2 * time.Second}))

	wait := r.backoff(10, errors.New("x"))
	assert.LessOrEqual(t, wait, time.Duration(float64(5*time.Millisecond)*1.2))
}
