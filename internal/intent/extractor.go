package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/popcorn/internal/filter"
)

// Strategy turns an utterance into a raw, unvalidated filter.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, utterance string, previous *filter.Filter) (filter.Raw, error)
}

// Result is the normalized outcome of one extraction.
type Result struct {
	Filter filter.Filter
	// Source names the strategy whose output was used.
	Source string
	// Degraded is set when an earlier strategy failed and a fallback ran.
	Degraded bool
}

// Extractor runs strategies in order until one succeeds. The rule strategy
// is always appended last, so extraction itself never fails.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an Extractor trying the given strategies, then rules.
func NewExtractor(strategies ...Strategy) *Extractor {
	chain := make([]Strategy, 0, len(strategies)+1)
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if _, ok := s.(RuleStrategy); ok {
			continue
		}
		chain = append(chain, s)
	}
	chain = append(chain, RuleStrategy{})
	return &Extractor{strategies: chain}
}

// Extract interprets utterance in the context of previous (nil for a fresh
// conversation) and returns the merged, validated filter.
func (e *Extractor) Extract(ctx context.Context, utterance string, previous *filter.Filter) Result {
	if strings.TrimSpace(utterance) == "" {
		return Result{Filter: filter.Normalize(filter.Raw{}, previous), Source: "none"}
	}

	degraded := false
	for _, s := range e.strategies {
		raw, err := safeExtract(ctx, s, utterance, previous)
		if err != nil {
			slog.Warn("filter extraction failed, falling back", "strategy", s.Name(), "error", err)
			degraded = true
			continue
		}
		return Result{
			Filter:   filter.Normalize(raw, previous),
			Source:   s.Name(),
			Degraded: degraded,
		}
	}

	// Unreachable while RuleStrategy terminates the chain.
	return Result{Filter: filter.Normalize(filter.Raw{}, previous), Source: "none", Degraded: true}
}

func safeExtract(ctx context.Context, s Strategy, utterance string, previous *filter.Filter) (raw filter.Raw, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Extract(ctx, utterance, previous)
}

// Names lists the strategies in the order they are tried.
func (e *Extractor) Names() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name()
	}
	return names
}
