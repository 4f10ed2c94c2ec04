package engine

import "fmt"

const (
	BackendOllama     = "ollama"
	BackendOpenRouter = "openrouter"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Backend          string
	OllamaBaseURL    string
	OpenRouterAPIKey string
}

// Detect returns the Engine named by cfg.Backend. An empty backend selects
// Ollama.
func Detect(cfg DetectConfig) (Engine, error) {
	switch cfg.Backend {
	case "", BackendOllama:
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	case BackendOpenRouter:
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter backend requires proxy.openrouter_api_key")
		}
		return NewOpenRouterEngine(cfg.OpenRouterAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown companion backend %q", cfg.Backend)
	}
}
