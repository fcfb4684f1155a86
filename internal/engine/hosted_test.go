package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kalambet/popcorn/internal/gemini"
	"github.com/kalambet/popcorn/internal/proxy"
)

func TestOpenRouterEngine_Chat(t *testing.T) {
	var got proxy.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"id":"x","choices":[{"message":{"role":"assistant","content":"{\"genre\":\"horror\"}"}}]}`)
	}))
	defer srv.Close()

	e := NewOpenRouterEngine(proxy.NewClientWithBaseURL("k", srv.URL))
	out, err := e.Chat(context.Background(), "openai/gpt-4o-mini", []Message{
		{Role: "system", Content: "extract"},
		{Role: "user", Content: "scary films"},
	}, &Schema{Type: "object"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != `{"genre":"horror"}` {
		t.Errorf("out = %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", got.ResponseFormat)
	}
}

func TestOpenRouterEngine_IsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	defer srv.Close()

	if !NewOpenRouterEngine(proxy.NewClientWithBaseURL("k", srv.URL)).IsRunning(context.Background()) {
		t.Error("IsRunning() = false, want true")
	}
}

func TestGeminiEngine_Chat(t *testing.T) {
	var got gemini.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"{\"type\":\"movie\"}"}]}}]}`)
	}))
	defer srv.Close()

	e := NewGeminiEngine(gemini.New("k", srv.URL))
	out, err := e.Chat(context.Background(), "", []Message{
		{Role: "system", Content: "extract"},
		{Role: "user", Content: "films"},
		{Role: "assistant", Content: "{}"},
		{Role: "user", Content: "newer ones"},
	}, &Schema{Type: "object"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != `{"type":"movie"}` {
		t.Errorf("out = %q", out)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "extract" {
		t.Errorf("systemInstruction = %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 3 || got.Contents[1].Role != "model" {
		t.Errorf("contents = %+v", got.Contents)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("generationConfig = %+v", got.GenerationConfig)
	}
}
