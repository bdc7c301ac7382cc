package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/memoraxx/internal/dispatch"
	"github.com/kalambet/memoraxx/internal/storage"
)

const memoryResourceURI = "memoraxx://memory"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session *Session
	Archive InteractionStore // optional; history tool reports the archive as disabled when nil
	Version string
}

// NewMCPServer creates an MCP server exposing the session as tools and its
// memory as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"memoraxx",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("memoraxx: a local assistant with short-term conversation memory and an archive of past exchanges."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a prompt to the local model with the current conversation memory and return its reply."),
			mcp.WithString("prompt", mcp.Description("The prompt to send"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("history",
			mcp.WithDescription("List archived exchanges, newest first, optionally filtered by search terms."),
			mcp.WithString("query", mcp.Description("Search terms; all must match")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_memory",
			mcp.WithDescription("Forget the current conversation memory. The archive is left untouched."),
		),
		mcpClearMemory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			memoryResourceURI,
			"Conversation Memory",
			mcp.WithResourceDescription("Interactions currently held in memory, oldest first, with the token budget"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceMemory(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil || strings.TrimSpace(prompt) == "" {
			return mcpError("prompt is required"), nil
		}

		out, err := deps.Session.Dispatch(ctx, prompt)
		if err != nil {
			return mcpError(fmt.Sprintf("session unavailable: %v", err)), nil
		}

		switch out.Kind {
		case dispatch.KindQuery:
			if out.Result.Failed() {
				return mcpError(out.Result.Text), nil
			}
			return mcpText(out.Result.Text), nil
		default:
			return mcpText(out.Message), nil
		}
	}
}

func mcpHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Archive == nil {
			return mcpError("interaction archive is disabled"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		var (
			items []storage.Interaction
			err   error
		)
		if q := req.GetString("query", ""); q != "" {
			items, err = deps.Archive.SearchInteractions(q, limit, 0)
		} else {
			items, err = deps.Archive.ListInteractions(limit, 0)
		}
		if err != nil {
			return mcpError(fmt.Sprintf("history lookup failed: %v", err)), nil
		}
		if len(items) == 0 {
			return mcpText("No archived interactions."), nil
		}

		var sb strings.Builder
		for i, it := range items {
			if i > 0 {
				sb.WriteString("\n---\n")
			}
			fmt.Fprintf(&sb, "[%s] %s (%s)\nUser: %s\nAssistant: %s",
				it.CreatedAt.Format("2006-01-02 15:04:05"), it.ID, it.Status, it.Prompt, it.Response)
		}
		return mcpText(sb.String()), nil
	}
}

func mcpClearMemory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := deps.Session.ClearMemory(ctx); err != nil {
			return mcpError(fmt.Sprintf("session unavailable: %v", err)), nil
		}
		return mcpText("Memory cleared."), nil
	}
}

func mcpResourceMemory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(snapshot(deps.Session.Memory()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal memory: %w", err)
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
