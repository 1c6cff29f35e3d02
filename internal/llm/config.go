package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter", "mock".
	Provider string

	Anthropic  VendorConfig
	OpenAI     VendorConfig
	Gemini     VendorConfig
	OpenRouter VendorConfig
	Retry      RetryConfig

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
}

// VendorConfig holds credentials and model for one vendor. BaseURL is only
// honoured by OpenAI-compatible vendors.
type VendorConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig tunes exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the defaults. Summaries follow the original web
// app and use OpenAI unless told otherwise.
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		Anthropic:  VendorConfig{Model: "claude-haiku"},
		OpenAI:     VendorConfig{Model: "gpt-4o-mini"},
		Gemini:     VendorConfig{Model: "gemini-flash"},
		OpenRouter: VendorConfig{Model: "google/gemini-2.0-flash-exp", BaseURL: defaultOpenRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 60 * time.Second,
	}
}

// ApplyEnv overrides cfg with SKULWISE_* variables that are set.
func ApplyEnv(cfg Config) Config {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Provider, "SKULWISE_LLM_PROVIDER")
	set(&cfg.Anthropic.APIKey, "SKULWISE_ANTHROPIC_API_KEY")
	set(&cfg.Anthropic.Model, "SKULWISE_ANTHROPIC_MODEL")
	set(&cfg.OpenAI.APIKey, "SKULWISE_OPENAI_API_KEY")
	set(&cfg.OpenAI.Model, "SKULWISE_OPENAI_MODEL")
	set(&cfg.OpenAI.BaseURL, "SKULWISE_OPENAI_BASE_URL")
	set(&cfg.Gemini.APIKey, "SKULWISE_GEMINI_API_KEY")
	set(&cfg.Gemini.Model, "SKULWISE_GEMINI_MODEL")
	set(&cfg.OpenRouter.APIKey, "SKULWISE_OPENROUTER_API_KEY")
	set(&cfg.OpenRouter.Model, "SKULWISE_OPENROUTER_MODEL")
	return cfg
}

// Discover fills in the first vendor key found among the vendors' own
// environment variables when cfg has no key for its provider. It reports
// whether cfg is usable afterwards.
func Discover(cfg Config) (Config, bool) {
	if cfg.Validate() == nil {
		return cfg, true
	}
	candidates := []struct {
		provider string
		env      string
		dst      *string
	}{
		{"openai", "OPENAI_API_KEY", &cfg.OpenAI.APIKey},
		{"anthropic", "ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey},
		{"gemini", "GEMINI_API_KEY", &cfg.Gemini.APIKey},
		{"openrouter", "OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey},
	}
	for _, c := range candidates {
		if k := os.Getenv(c.env); k != "" {
			cfg.Provider = c.provider
			*c.dst = k
			return cfg, true
		}
	}
	return cfg, false
}

// Validate checks that the selected provider has an API key.
func (c Config) Validate() error {
	var key, env string
	switch c.Provider {
	case "anthropic":
		key, env = c.Anthropic.APIKey, "SKULWISE_ANTHROPIC_API_KEY"
	case "openai":
		key, env = c.OpenAI.APIKey, "SKULWISE_OPENAI_API_KEY"
	case "gemini":
		key, env = c.Gemini.APIKey, "SKULWISE_GEMINI_API_KEY"
	case "openrouter":
		key, env = c.OpenRouter.APIKey, "SKULWISE_OPENROUTER_API_KEY"
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	return nil
}
