package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kalambet/popcorn/internal/config"
	"github.com/kalambet/popcorn/internal/pipeline"
	"github.com/kalambet/popcorn/internal/session"
	"github.com/kalambet/popcorn/internal/storage"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      cfg.Server.APIToken,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is popcorn running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) ask(ctx context.Context, sessionID, message string) (pipeline.Response, error) {
	var out pipeline.Response
	resp, err := c.do(ctx, http.MethodPost, "/v1/ask", map[string]string{
		"session_id": sessionID,
		"message":    message,
	})
	if err != nil {
		return out, err
	}
	return out, decodeJSON(resp, &out)
}

func (c *apiClient) createSession(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/sessions", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *apiClient) getSession(ctx context.Context, id string) (session.Snapshot, error) {
	var out session.Snapshot
	resp, err := c.do(ctx, http.MethodGet, "/v1/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return out, err
	}
	return out, decodeJSON(resp, &out)
}

func (c *apiClient) resetSession(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(id)+"/reset", nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, &struct{}{})
}

func (c *apiClient) deleteSession(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, &struct{}{})
}

type interactionPage struct {
	Total        int                   `json:"total"`
	Interactions []storage.Interaction `json:"interactions"`
}

func (c *apiClient) listInteractions(ctx context.Context, sessionID string, limit, offset int) (interactionPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}

	var out interactionPage
	resp, err := c.do(ctx, http.MethodGet, "/v1/interactions?"+q.Encode(), nil)
	if err != nil {
		return out, err
	}
	return out, decodeJSON(resp, &out)
}

func (c *apiClient) getInteraction(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	resp, err := c.do(ctx, http.MethodGet, "/v1/interactions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return out, decodeJSON(resp, &out)
}

func (c *apiClient) deleteInteraction(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/interactions/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, &struct{}{})
}

func (c *apiClient) health(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		Sessions int `json:"sessions"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return 0, err
	}
	return out.Sessions, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
