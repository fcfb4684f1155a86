package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/popcorn/internal/engine"
	"github.com/kalambet/popcorn/internal/filter"
)

const defaultModelTimeout = 10 * time.Second

// ErrBreakerOpen is returned while the model is being skipped after
// repeated failures.
var ErrBreakerOpen = errors.New("model circuit breaker open")

// Chatter is the interface for chat completion against a text-generation backend.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// ModelStrategy asks a language model to produce the filter as JSON.
type ModelStrategy struct {
	client  Chatter
	model   string
	timeout time.Duration
	breaker *Breaker
}

// NewModelStrategy creates a ModelStrategy. A zero timeout selects the
// default; breaker may be nil.
func NewModelStrategy(client Chatter, model string, timeout time.Duration, breaker *Breaker) *ModelStrategy {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	return &ModelStrategy{client: client, model: model, timeout: timeout, breaker: breaker}
}

func (m *ModelStrategy) Name() string { return "model" }

func (m *ModelStrategy) Extract(ctx context.Context, utterance string, previous *filter.Filter) (filter.Raw, error) {
	if m.breaker != nil && !m.breaker.Allow() {
		return filter.Raw{}, ErrBreakerOpen
	}
	// A panicking client still counts against the breaker so a half-open
	// call always finishes.
	defer func() {
		if r := recover(); r != nil {
			m.failed()
			panic(r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	reply, err := m.client.Chat(ctx, m.model, BuildPrompt(utterance, previous), filterSchema())
	if err != nil {
		m.failed()
		return filter.Raw{}, fmt.Errorf("model chat: %w", err)
	}

	fields, err := decodeObject(reply)
	if err != nil {
		m.failed()
		return filter.Raw{}, err
	}

	if m.breaker != nil {
		m.breaker.Success()
	}
	return filter.Raw{Fields: fields, Utterance: utterance}, nil
}

func (m *ModelStrategy) failed() {
	if m.breaker != nil {
		m.breaker.Failure()
	}
}

// decodeObject pulls the first JSON object out of a model reply, tolerating
// markdown fences and surrounding prose.
func decodeObject(reply string) (map[string]any, error) {
	s := strings.TrimSpace(reply)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal model reply: %w", err)
	}
	if !filter.KnownKeys(fields) {
		return nil, fmt.Errorf("model reply has no filter fields")
	}
	return fields, nil
}
