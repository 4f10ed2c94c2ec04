package engine

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DetectConfig
		want    string
		wantErr bool
	}{
		{"default", DetectConfig{OllamaBaseURL: "http://localhost:11434"}, "ollama", false},
		{"ollama", DetectConfig{Backend: "ollama", OllamaBaseURL: "http://localhost:11434"}, "ollama", false},
		{"openrouter", DetectConfig{Backend: "openrouter", OpenRouterAPIKey: "sk-or-test"}, "openrouter", false},
		{"openrouter without key", DetectConfig{Backend: "openrouter"}, "", true},
		{"unknown", DetectConfig{Backend: "mlx"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Detect(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Detect(%+v) expected error", tt.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			switch tt.want {
			case "ollama":
				if _, ok := e.(*OllamaEngine); !ok {
					t.Errorf("Detect returned %T, want *OllamaEngine", e)
				}
			case "openrouter":
				if _, ok := e.(*OpenRouterEngine); !ok {
					t.Errorf("Detect returned %T, want *OpenRouterEngine", e)
				}
			}
		})
	}
}
