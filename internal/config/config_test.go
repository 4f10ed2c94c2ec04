package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockSecrets is a test double for the secretStore interface.
type mockSecrets struct {
	value string
	err   error
}

func (m mockSecrets) Get(service, account string) (string, error) {
	return m.value, m.err
}

var errNoSecret = errors.New("not found")

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	b := newFileBackend(filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Companion.Backend != "ollama" {
		t.Errorf("Companion.Backend = %q, want ollama", cfg.Companion.Backend)
	}
	if cfg.Matching.TopK != 4 {
		t.Errorf("Matching.TopK = %d, want 4", cfg.Matching.TopK)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "phi3.5" {
		t.Errorf("Ollama.Model = %q, want phi3.5", cfg.Ollama.Model)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.CompanionTimeout() != 20*time.Second {
		t.Errorf("CompanionTimeout = %v", cfg.CompanionTimeout())
	}
	if cfg.CompanionModel() != "phi3.5" {
		t.Errorf("CompanionModel = %q", cfg.CompanionModel())
	}
}

func TestFileValues(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{
  "server.port": 5000,
  "matching.top_k": "6",
  "ollama.model": "llama3.2",
  "companion.timeout": "5s"
}`)

	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Matching.TopK != 6 {
		t.Errorf("Matching.TopK = %d, want 6", cfg.Matching.TopK)
	}
	if cfg.Ollama.Model != "llama3.2" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
	if cfg.CompanionTimeout() != 5*time.Second {
		t.Errorf("CompanionTimeout = %v", cfg.CompanionTimeout())
	}
}

func TestInvalidIntInFile(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"server.port": 4.5}`)
	if _, err := loadWith(b, mockSecrets{err: errNoSecret}); err == nil {
		t.Fatal("expected error for non-integer port")
	}
}

func TestUnparseableFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{not json`)
	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want default", cfg.Server.Port)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"server.port": 5000, "ollama.model": "file-model"}`)

	t.Setenv("SOULSYNC_SERVER_PORT", "6000")
	t.Setenv("SOULSYNC_OLLAMA_MODEL", "env-model")
	t.Setenv("SOULSYNC_MATCHING_TOP_K", "not-a-number")

	cfg, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Ollama.Model != "env-model" {
		t.Errorf("Ollama.Model = %q, want env-model", cfg.Ollama.Model)
	}
	if cfg.Matching.TopK != 4 {
		t.Errorf("Matching.TopK = %d, want default after bad env value", cfg.Matching.TopK)
	}
}

func TestOpenRouterRequiresKey(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"companion.backend": "openrouter"}`)

	_, err := loadWith(b, mockSecrets{err: errNoSecret})
	if err == nil {
		t.Fatal("expected error when OpenRouter API key is missing")
	}
	if !strings.Contains(err.Error(), "SOULSYNC_OPENROUTER_API_KEY") {
		t.Errorf("error should name the env var: %v", err)
	}
}

func TestSecretFallback(t *testing.T) {
	clearEnv(t)
	b := writeTempConfig(t, `{"companion.backend": "openrouter", "proxy.model": "m/x"}`)

	cfg, err := loadWith(b, mockSecrets{value: "stored-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Proxy.OpenRouterAPIKey != "stored-key" {
		t.Errorf("OpenRouterAPIKey = %q, want stored-key", cfg.Proxy.OpenRouterAPIKey)
	}
	if cfg.CompanionModel() != "m/x" {
		t.Errorf("CompanionModel = %q", cfg.CompanionModel())
	}

	t.Setenv("SOULSYNC_OPENROUTER_API_KEY", "env-key")
	cfg, err = loadWith(b, mockSecrets{value: "stored-key"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Proxy.OpenRouterAPIKey != "env-key" {
		t.Errorf("env should win over secrets file, got %q", cfg.Proxy.OpenRouterAPIKey)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"unknown backend", `{"companion.backend": "mlx"}`},
		{"bad port", `{"server.port": 70000}`},
		{"negative top_k", `{"matching.top_k": -1}`},
		{"bad log level", `{"log.level": "verbose"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := loadWith(writeTempConfig(t, tt.file), mockSecrets{err: errNoSecret}); err == nil {
				t.Errorf("expected validation error for %s", tt.file)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "sub", "config.json"))
	var secret string
	setSecret := func(service, account, value string) error {
		secret = service + "/" + account + "=" + value
		return nil
	}

	if err := setKeyWith(b, setSecret, "matching.top_k", "7"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := setKeyWith(b, setSecret, "ollama.model", "llama3.2"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := setKeyWith(b, setSecret, "matching.top_k", "many"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := setKeyWith(b, setSecret, "nope.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKeyWith(b, setSecret, "proxy.openrouter_api_key", "sk-1"); err != nil {
		t.Fatalf("SetKey secret: %v", err)
	}
	if secret != "soulsync/openrouter_api_key=sk-1" {
		t.Errorf("secret write = %q", secret)
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		t.Fatal(err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatal(err)
	}
	if data["matching.top_k"] != float64(7) || data["ollama.model"] != "llama3.2" {
		t.Errorf("file contents = %v", data)
	}
	if _, ok := data["proxy.openrouter_api_key"]; ok {
		t.Error("secret leaked into config file")
	}
}

func TestSecretsFileRoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if _, err := (secretsReader{}).Get("soulsync", "openrouter_api_key"); err == nil {
		t.Error("expected error before secrets file exists")
	}
	if err := secretSet("soulsync", "openrouter_api_key", "sk-test\n"); err != nil {
		t.Fatalf("secretSet: %v", err)
	}
	got, err := (secretsReader{}).Get("soulsync", "openrouter_api_key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sk-test" {
		t.Errorf("secret = %q, want trimmed value", got)
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Proxy.OpenRouterAPIKey = "sk-secret"

	infos := ShowAll(cfg)
	if len(infos) != len(ValidKeys()) {
		t.Errorf("ShowAll returned %d keys, want %d", len(infos), len(ValidKeys()))
	}
	for _, ki := range infos {
		if strings.Contains(ki.Value, "sk-secret") {
			t.Errorf("secret value exposed for %s", ki.Key)
		}
		if ki.Key == "proxy.openrouter_api_key" && ki.Value != "(set)" {
			t.Errorf("secret shown as %q, want (set)", ki.Value)
		}
	}
}
