package engine

import "context"

// Engine abstracts a text-generation backend (local Ollama, OpenRouter or
// Gemini). Intent extraction depends on this interface instead of a
// concrete client.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's response.
	// When jsonSchema is non-nil, structured JSON output is requested.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// Name identifies the provider in logs and status output.
	Name() string

	// DefaultModel is used when no model is configured.
	DefaultModel() string
}

// ModelManager is implemented by backends that host models locally and can
// download missing ones.
type ModelManager interface {
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
