// Package config loads skulwise settings from TOML, the environment and
// built-in defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/skulwise/skulwise/internal/llm"
	"github.com/skulwise/skulwise/internal/logging"
	"github.com/skulwise/skulwise/internal/offline"
)

//go:embed sample_config.toml
var sampleConfig string

// User identifies the learner.
type User struct {
	ID string `toml:"id"`
}

// Storage locates the local database.
type Storage struct {
	Path string `toml:"path"`
}

// Remote configures the store queued actions are applied to.
type Remote struct {
	Kind           string  `toml:"kind"`
	URL            string  `toml:"url"`
	APIKey         string  `toml:"api_key"`
	AccessToken    string  `toml:"access_token"`
	Path           string  `toml:"path"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Connectivity configures reachability probing.
type Connectivity struct {
	ProbeURL             string `toml:"probe_url"`
	ProbeIntervalSeconds int    `toml:"probe_interval_seconds"`
	SettleDelayMS        int    `toml:"settle_delay_ms"`
}

// Sync tunes the offline queue.
type Sync struct {
	ApplyTimeoutSeconds  int `toml:"apply_timeout_seconds"`
	RetryIntervalSeconds int `toml:"retry_interval_seconds"`
}

// Log configures logging output.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// LLM configures the summarizer's provider. APIKey and Model apply to the
// selected provider.
type LLM struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Speech configures text-to-speech and transcription.
type Speech struct {
	TTSModel           string `toml:"tts_model"`
	Voice              string `toml:"voice"`
	TranscriptionModel string `toml:"transcription_model"`
}

// Config is the full configuration.
type Config struct {
	User         User         `toml:"user"`
	Storage      Storage      `toml:"storage"`
	Remote       Remote       `toml:"remote"`
	Connectivity Connectivity `toml:"connectivity"`
	Sync         Sync         `toml:"sync"`
	Log          Log          `toml:"log"`
	LLM          LLM          `toml:"llm"`
	Speech       Speech       `toml:"speech"`
}

// Remote kinds.
const (
	RemoteREST   = "rest"
	RemoteSQLite = "sqlite"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Remote: Remote{
			Kind:           RemoteREST,
			RatePerSecond:  5,
			TimeoutSeconds: 15,
		},
		Connectivity: Connectivity{
			ProbeIntervalSeconds: 15,
			SettleDelayMS:        1000,
		},
		Sync: Sync{
			ApplyTimeoutSeconds:  30,
			RetryIntervalSeconds: 60,
		},
		Log: Log{
			Level:  "info",
			Format: "auto",
		},
		LLM: LLM{
			Provider:       "openai",
			TimeoutSeconds: 60,
		},
		Speech: Speech{
			TTSModel:           "tts-1",
			Voice:              "alloy",
			TranscriptionModel: "whisper-1",
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/skulwise/config.toml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "skulwise", "config.toml")
}

// Load reads path (or the default location when empty), applies
// environment overrides and validates the result. It returns the resolved
// path and whether the file existed; a missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, "", false, err
	}

	exists := true
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		exists = false
	case err != nil:
		return nil, "", false, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.User.ID, "SKULWISE_USER_ID")
	set(&c.Storage.Path, "SKULWISE_DB")
	set(&c.Remote.Kind, "SKULWISE_REMOTE_KIND")
	set(&c.Remote.URL, "SKULWISE_REMOTE_URL")
	set(&c.Remote.APIKey, "SKULWISE_REMOTE_API_KEY")
	set(&c.Remote.AccessToken, "SKULWISE_ACCESS_TOKEN")
	set(&c.Log.Level, "SKULWISE_LOG_LEVEL")
	set(&c.Log.Format, "SKULWISE_LOG_FORMAT")
}

func (c *Config) normalize() error {
	c.Remote.Kind = strings.ToLower(strings.TrimSpace(c.Remote.Kind))
	c.Remote.URL = strings.TrimRight(strings.TrimSpace(c.Remote.URL), "/")
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.Connectivity.ProbeURL == "" {
		c.Connectivity.ProbeURL = c.Remote.URL
	}

	var err error
	for _, p := range []*string{&c.Storage.Path, &c.Remote.Path, &c.Log.File} {
		if *p, err = expandPath(*p); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first setting that makes the config unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.User.ID) == "" {
		return fmt.Errorf("user.id is required. Set SKULWISE_USER_ID or edit %s", DefaultConfigPath())
	}
	switch c.Remote.Kind {
	case RemoteREST:
		if c.Remote.URL == "" {
			return errors.New("remote.url is required for the rest remote")
		}
	case RemoteSQLite:
		if c.Remote.Path == "" {
			return errors.New("remote.path is required for the sqlite remote")
		}
	default:
		return fmt.Errorf("remote.kind %q is not one of %q, %q", c.Remote.Kind, RemoteREST, RemoteSQLite)
	}
	nonNegative := map[string]int{
		"remote.timeout_seconds":              c.Remote.TimeoutSeconds,
		"connectivity.probe_interval_seconds": c.Connectivity.ProbeIntervalSeconds,
		"connectivity.settle_delay_ms":        c.Connectivity.SettleDelayMS,
		"sync.apply_timeout_seconds":          c.Sync.ApplyTimeoutSeconds,
		"sync.retry_interval_seconds":         c.Sync.RetryIntervalSeconds,
		"llm.timeout_seconds":                 c.LLM.TimeoutSeconds,
	}
	for name, v := range nonNegative {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Remote.RatePerSecond < 0 {
		return errors.New("remote.rate_per_second must not be negative")
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("log.format %q is not one of auto, console, json", c.Log.Format)
	}
	return nil
}

// Offline returns the queue manager settings.
func (c *Config) Offline() offline.Config {
	cfg := offline.DefaultConfig()
	cfg.SettleDelay = time.Duration(c.Connectivity.SettleDelayMS) * time.Millisecond
	cfg.ApplyTimeout = time.Duration(c.Sync.ApplyTimeoutSeconds) * time.Second
	cfg.RetryInterval = time.Duration(c.Sync.RetryIntervalSeconds) * time.Second
	return cfg
}

// ProbeInterval returns the connectivity probe period.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Connectivity.ProbeIntervalSeconds) * time.Second
}

// RemoteTimeout returns the per-request timeout of the REST remote.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// Logging returns logger options.
func (c *Config) Logging() logging.Options {
	opts := logging.Options{Level: c.Log.Level, Format: c.Log.Format, OutputPaths: []string{"stderr"}}
	if c.Log.File != "" {
		opts.OutputPaths = append(opts.OutputPaths, c.Log.File)
	}
	return opts
}

// LLMConfig returns provider settings: defaults, then the [llm] section,
// then SKULWISE_* variables, then vendor key discovery.
func (c *Config) LLMConfig() llm.Config {
	cfg := llm.DefaultConfig()
	if c.LLM.Provider != "" {
		cfg.Provider = c.LLM.Provider
	}
	if c.LLM.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.LLM.TimeoutSeconds) * time.Second
	}
	var vendor *llm.VendorConfig
	switch cfg.Provider {
	case "anthropic":
		vendor = &cfg.Anthropic
	case "openai":
		vendor = &cfg.OpenAI
	case "gemini":
		vendor = &cfg.Gemini
	case "openrouter":
		vendor = &cfg.OpenRouter
	}
	if vendor != nil {
		if c.LLM.APIKey != "" {
			vendor.APIKey = c.LLM.APIKey
		}
		if c.LLM.Model != "" {
			vendor.Model = c.LLM.Model
		}
		if c.LLM.BaseURL != "" {
			vendor.BaseURL = c.LLM.BaseURL
		}
	}
	cfg = llm.ApplyEnv(cfg)
	cfg, _ = llm.Discover(cfg)
	return cfg
}

// OpenAIKey returns the key used for speech endpoints.
func (c *Config) OpenAIKey() string {
	return c.LLMConfig().OpenAI.APIKey
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
