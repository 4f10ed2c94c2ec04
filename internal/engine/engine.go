package engine

import "context"

// Engine abstracts a chat-completion backend (local Ollama or the
// OpenRouter API). The companion uses this interface instead of depending
// on a concrete client.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's
	// response. opts may be nil.
	Chat(ctx context.Context, model string, messages []Message, opts *Options) (string, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// HasModel reports whether the given model name is available.
	HasModel(ctx context.Context, name string) bool
}

// Puller is implemented by backends that can download missing models.
type Puller interface {
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
