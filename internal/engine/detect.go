package engine

import (
	"fmt"

	"github.com/kalambet/popcorn/internal/gemini"
	"github.com/kalambet/popcorn/internal/proxy"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Provider         string
	OllamaBaseURL    string
	OpenRouterAPIKey string
	GeminiAPIKey     string
	GeminiBaseURL    string
}

// Detect returns the Engine for the configured provider. Provider "none"
// (or empty) disables model extraction and returns a nil Engine.
func Detect(cfg DetectConfig) (Engine, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "ollama":
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter provider selected but openrouter.api_key is not set")
		}
		return NewOpenRouterEngine(proxy.NewClient(cfg.OpenRouterAPIKey)), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but gemini.api_key is not set")
		}
		return NewGeminiEngine(gemini.New(cfg.GeminiAPIKey, cfg.GeminiBaseURL)), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
