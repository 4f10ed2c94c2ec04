package engine

import (
	"context"
	"time"

	"github.com/soulsync/soulsync/internal/proxy"
)

// OpenRouterEngine adapts the internal/proxy.Client to the Engine interface.
type OpenRouterEngine struct {
	client *proxy.Client
}

func NewOpenRouterEngine(apiKey string) *OpenRouterEngine {
	return &OpenRouterEngine{client: proxy.NewClient(apiKey)}
}

// NewOpenRouterEngineWithBaseURL points the engine at a custom endpoint (for testing).
func NewOpenRouterEngineWithBaseURL(apiKey, baseURL string) *OpenRouterEngine {
	return &OpenRouterEngine{client: proxy.NewClientWithBaseURL(apiKey, baseURL)}
}

func (e *OpenRouterEngine) Chat(ctx context.Context, model string, messages []Message, opts *Options) (string, error) {
	req := proxy.ChatRequest{
		Model:    model,
		Messages: make([]proxy.Message, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	if opts != nil {
		if opts.Temperature != 0 {
			t := opts.Temperature
			req.Temperature = &t
		}
		if opts.TopP != 0 {
			p := opts.TopP
			req.TopP = &p
		}
	}
	return e.client.Complete(ctx, req)
}

func (e *OpenRouterEngine) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.client.ListModels(ctx)
	return err == nil
}

func (e *OpenRouterEngine) HasModel(ctx context.Context, name string) bool {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m.ID == name {
			return true
		}
	}
	return false
}
