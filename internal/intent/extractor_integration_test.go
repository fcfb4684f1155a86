//go:build integration

package intent

import (
	"context"
	"testing"
	"time"

	"github.com/kalambet/popcorn/internal/engine"
)

func TestExtract_RealOllama(t *testing.T) {
	eng := engine.NewOllamaEngine("http://localhost:11434")
	if !eng.IsRunning(context.Background()) {
		t.Skip("Ollama is not running, skipping integration test")
	}
	if !eng.HasModel(context.Background(), "llama3.2") {
		t.Skip("llama3.2 model not available, skipping integration test")
	}

	e := NewExtractor(NewModelStrategy(eng, "llama3.2", 0, nil))

	start := time.Now()
	res := e.Extract(context.Background(), "top 5 sci-fi movies from the 90s with Keanu Reeves", nil)
	elapsed := time.Since(start)

	if res.Source != "model" {
		t.Errorf("Source = %q, want model", res.Source)
	}
	if res.Filter.Limit != 5 {
		t.Errorf("Limit = %d, want 5", res.Filter.Limit)
	}

	t.Logf("filter: %+v (took %v)", res.Filter, elapsed)
}
