package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	var got Request
	var gotPath, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"type\":"},{"text":"\"movie\"}"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c := New("secret", srv.URL)
	out, err := c.Generate(context.Background(), "gemini-1.5-flash", Request{
		SystemInstruction: &Content{Parts: []Part{{Text: "extract"}}},
		Contents:          []Content{{Role: "user", Parts: []Part{{Text: "films"}}}},
		GenerationConfig:  &GenerationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if out != `{"type":"movie"}` {
		t.Errorf("out = %q", out)
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q, want secret", gotKey)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("generationConfig = %+v", got.GenerationConfig)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "extract" {
		t.Errorf("systemInstruction = %+v", got.SystemInstruction)
	}
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	_, err := New("bad", srv.URL).Generate(context.Background(), "", Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error = %q", err)
	}
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := New("k", srv.URL).Generate(context.Background(), "", Request{})
	if err == nil || !strings.Contains(err.Error(), "empty reply") {
		t.Errorf("err = %v, want empty reply", err)
	}
}

func TestGenerate_DefaultModel(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"x"}]}}]}`)
	}))
	defer srv.Close()

	if _, err := New("k", srv.URL).Generate(context.Background(), "", Request{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gotPath, DefaultModel) {
		t.Errorf("path = %q, want default model", gotPath)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "good" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	if err := New("good", srv.URL).Ping(context.Background()); err != nil {
		t.Errorf("Ping(good) = %v", err)
	}
	if err := New("bad", srv.URL).Ping(context.Background()); err == nil {
		t.Error("Ping(bad) = nil, want error")
	}
}

func TestTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := New("SECRETKEY123", srv.URL)
	srv.Close()

	_, err := c.Generate(context.Background(), "", Request{})
	if err == nil {
		t.Fatal("Generate against closed server = nil, want error")
	}
	if strings.Contains(err.Error(), "SECRETKEY123") {
		t.Errorf("error leaks key: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil || strings.Contains(err.Error(), "SECRETKEY123") {
		t.Errorf("Ping error = %v, want error without key", err)
	}
}
