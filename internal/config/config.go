package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Companion CompanionConfig
	Matching  MatchingConfig
	Ollama    OllamaConfig
	Proxy     ProxyConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type CompanionConfig struct {
	// Backend is "ollama" or "openrouter".
	Backend string
	// Timeout bounds each companion call, as a Go duration string.
	Timeout string
}

type MatchingConfig struct {
	TopK int
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type ProxyConfig struct {
	OpenRouterAPIKey string
	Model            string
}

// CompanionTimeout parses Companion.Timeout. Malformed values fall back to
// the default.
func (c Config) CompanionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Companion.Timeout)
	if err != nil || d <= 0 {
		return defaultCompanionTimeout
	}
	return d
}

// CompanionModel is the model name for the configured backend.
func (c Config) CompanionModel() string {
	if c.Companion.Backend == "openrouter" {
		return c.Proxy.Model
	}
	return c.Ollama.Model
}

const defaultCompanionTimeout = 20 * time.Second

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Companion: CompanionConfig{
			Backend: "ollama",
			Timeout: defaultCompanionTimeout.String(),
		},
		Matching: MatchingConfig{
			TopK: 4,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "phi3.5",
		},
		Proxy: ProxyConfig{
			Model: "meta-llama/llama-3.1-8b-instruct",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/soulsync/config.json, then applies SOULSYNC_* environment
// overrides. The OpenRouter API key falls back to the secrets file.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), secretsReader{})
}

// secretStore abstracts secret lookup for testing.
type secretStore interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Proxy.OpenRouterAPIKey == "" {
		if key, err := secrets.Get("soulsync", "openrouter_api_key"); err == nil && key != "" {
			cfg.Proxy.OpenRouterAPIKey = key
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Companion.Backend {
	case "ollama":
	case "openrouter":
		if cfg.Proxy.OpenRouterAPIKey == "" {
			return fmt.Errorf("missing required config: OpenRouter API key. " +
				"Set it via environment variable SOULSYNC_OPENROUTER_API_KEY " +
				"or `soulsync config set proxy.openrouter_api_key <key>`")
		}
	default:
		return fmt.Errorf("invalid companion.backend %q: want ollama or openrouter", cfg.Companion.Backend)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Matching.TopK < 0 {
		return fmt.Errorf("invalid matching.top_k %d: must not be negative", cfg.Matching.TopK)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", cfg.Log.Level)
	}
	return nil
}

// secretsReader reads from the local secrets file.
type secretsReader struct{}

func (secretsReader) Get(service, account string) (string, error) {
	out, err := secretGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
