package engine

import (
	"context"

	"github.com/kalambet/popcorn/internal/proxy"
)

const defaultOpenRouterModel = "openai/gpt-4o-mini"

// OpenRouterEngine runs chat through the OpenRouter completions API.
// Schemas are not forwarded; JSON mode is requested instead.
type OpenRouterEngine struct {
	client *proxy.Client
}

func NewOpenRouterEngine(client *proxy.Client) *OpenRouterEngine {
	return &OpenRouterEngine{client: client}
}

func (e *OpenRouterEngine) Name() string         { return "openrouter" }
func (e *OpenRouterEngine) DefaultModel() string { return defaultOpenRouterModel }

func (e *OpenRouterEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	req := proxy.ChatRequest{Model: model, Messages: make([]proxy.Message, len(messages))}
	for i, m := range messages {
		req.Messages[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	if jsonSchema != nil {
		zero := 0.0
		req.Temperature = &zero
		req.ResponseFormat = &proxy.ResponseFormat{Type: "json_object"}
	}
	return e.client.Complete(ctx, req)
}

func (e *OpenRouterEngine) IsRunning(ctx context.Context) bool {
	_, err := e.client.ListModels(ctx)
	return err == nil
}
