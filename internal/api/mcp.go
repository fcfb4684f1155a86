package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/popcorn/internal/pipeline"
	"github.com/kalambet/popcorn/internal/session"
)

const recentURI = "popcorn://interactions/recent"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Assistant Asker
	Sessions  *session.Manager
	Store     InteractionStore
}

// NewMCPServer creates an MCP server exposing movie discovery tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"popcorn",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("popcorn finds movies and TV shows from natural-language requests. Reuse the returned session_id to refine a previous request."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("find_movies",
			mcp.WithDescription("Find movies or TV shows matching a natural-language request such as \"top 5 90s sci-fi with Keanu Reeves\". Follow-ups with the same session_id refine the previous filter."),
			mcp.WithString("message", mcp.Description("What the user wants to watch"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session to continue; omit to start a new one")),
		),
		mcpFindMovies(deps),
	)

	s.AddTool(
		mcp.NewTool("reset_session",
			mcp.WithDescription("Forget the filters accumulated in a session."),
			mcp.WithString("session_id", mcp.Description("Session to reset"), mcp.Required()),
		),
		mcpResetSession(deps),
	)

	s.AddResource(
		mcp.NewResource(
			recentURI,
			"Recent Requests",
			mcp.WithResourceDescription("Last 10 assistant requests with their outcome"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpFindMovies(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || strings.TrimSpace(message) == "" {
			return mcpError("message is required"), nil
		}

		sessionID := req.GetString("session_id", "")
		if sessionID != "" {
			if _, ok := deps.Sessions.Get(sessionID); !ok {
				return mcpError(fmt.Sprintf("unknown session %s", sessionID)), nil
			}
		}

		resp := deps.Assistant.Ask(ctx, sessionID, message)
		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		if resp.Status == pipeline.StatusError {
			return mcpError(string(b)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResetSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		if !deps.Sessions.Reset(id) {
			return mcpError(fmt.Sprintf("unknown session %s", id)), nil
		}
		return mcpText(fmt.Sprintf("Session %s reset", id)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.ListInteractions("", 10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Utterance string `json:"utterance"`
			Status    string `json:"status"`
			Results   int    `json:"results"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			utterance := ix.Utterance
			if utf8.RuneCountInString(utterance) > 200 {
				runes := []rune(utterance)
				utterance = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Utterance: utterance,
				Status:    ix.Status,
				Results:   ix.ResultCount,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
