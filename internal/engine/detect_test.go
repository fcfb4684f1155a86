package engine

import "testing"

func TestDetect_Ollama(t *testing.T) {
	e, err := Detect(DetectConfig{Provider: "ollama", OllamaBaseURL: "http://localhost:11434"})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if _, ok := e.(*OllamaEngine); !ok {
		t.Errorf("Detect returned %T, want *OllamaEngine", e)
	}
}

func TestDetect_None(t *testing.T) {
	for _, p := range []string{"", "none"} {
		e, err := Detect(DetectConfig{Provider: p})
		if err != nil || e != nil {
			t.Errorf("Detect(%q) = %v, %v; want nil, nil", p, e, err)
		}
	}
}

func TestDetect_HostedNeedKey(t *testing.T) {
	if _, err := Detect(DetectConfig{Provider: "openrouter"}); err == nil {
		t.Error("openrouter without key: expected error")
	}
	if _, err := Detect(DetectConfig{Provider: "gemini"}); err == nil {
		t.Error("gemini without key: expected error")
	}

	e, err := Detect(DetectConfig{Provider: "openrouter", OpenRouterAPIKey: "k"})
	if err != nil {
		t.Fatalf("Detect(openrouter): %v", err)
	}
	if _, ok := e.(*OpenRouterEngine); !ok {
		t.Errorf("Detect returned %T, want *OpenRouterEngine", e)
	}

	e, err = Detect(DetectConfig{Provider: "gemini", GeminiAPIKey: "k"})
	if err != nil {
		t.Fatalf("Detect(gemini): %v", err)
	}
	if _, ok := e.(*GeminiEngine); !ok {
		t.Errorf("Detect returned %T, want *GeminiEngine", e)
	}
}

func TestDetect_Unknown(t *testing.T) {
	if _, err := Detect(DetectConfig{Provider: "mlx"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
