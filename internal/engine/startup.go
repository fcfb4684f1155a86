package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const warmupTimeout = 30 * time.Second

// EnsureReady checks that the Engine is reachable and, for local backends,
// pulls the model if it is missing. Progress is written to w. A final
// warm-up request loads the model; its failure is only logged.
func EnsureReady(ctx context.Context, e Engine, model string, w io.Writer) error {
	if model == "" {
		model = e.DefaultModel()
	}
	if !e.IsRunning(ctx) {
		return fmt.Errorf("%s backend is not reachable", e.Name())
	}

	if mm, ok := e.(ModelManager); ok {
		if mm.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
		} else {
			fmt.Fprintf(w, "model %s: pulling...\n", model)
			err := mm.PullModel(ctx, model, func(p PullProgress) {
				if p.Total > 0 {
					pct := float64(p.Completed) / float64(p.Total) * 100
					fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
				} else {
					fmt.Fprintf(w, "  %s\n", p.Status)
				}
			})
			if err != nil {
				return fmt.Errorf("pulling model %s: %w", model, err)
			}
			fmt.Fprintf(w, "model %s: ready\n", model)
		}
	}

	wctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	if _, err := e.Chat(wctx, model, []Message{{Role: "user", Content: "ping"}}, nil); err != nil {
		slog.Warn("model warm-up failed", "provider", e.Name(), "model", model, "error", err)
	}
	return nil
}
