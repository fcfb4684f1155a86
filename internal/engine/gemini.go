package engine

import (
	"context"

	"github.com/kalambet/popcorn/internal/gemini"
)

// GeminiEngine runs chat through Google's generateContent API. System
// messages become the system instruction; assistant turns use the "model" role.
type GeminiEngine struct {
	client *gemini.Client
}

func NewGeminiEngine(client *gemini.Client) *GeminiEngine {
	return &GeminiEngine{client: client}
}

func (e *GeminiEngine) Name() string         { return "gemini" }
func (e *GeminiEngine) DefaultModel() string { return gemini.DefaultModel }

func (e *GeminiEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	var req gemini.Request
	for _, m := range messages {
		part := gemini.Part{Text: m.Content}
		switch m.Role {
		case "system":
			if req.SystemInstruction == nil {
				req.SystemInstruction = &gemini.Content{}
			}
			req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, part)
		case "assistant":
			req.Contents = append(req.Contents, gemini.Content{Role: "model", Parts: []gemini.Part{part}})
		default:
			req.Contents = append(req.Contents, gemini.Content{Role: "user", Parts: []gemini.Part{part}})
		}
	}
	if jsonSchema != nil {
		zero := 0.0
		req.GenerationConfig = &gemini.GenerationConfig{Temperature: &zero, ResponseMimeType: "application/json"}
	}
	return e.client.Generate(ctx, model, req)
}

func (e *GeminiEngine) IsRunning(ctx context.Context) bool {
	return e.client.Ping(ctx) == nil
}
