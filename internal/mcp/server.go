// Package mcp exposes document search as an MCP tool over streamable
// HTTP, so agent runtimes can call the knowledge base directly.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"docsearch/internal/search"
)

// Searcher is the slice of the search layer the MCP tool needs.
type Searcher interface {
	SearchForAgent(ctx context.Context, query string, opts search.Options) (search.AgentResponse, error)
}

// NewHandler builds an MCP server with the search_documents tool and
// returns it as an http.Handler for mounting under the API router.
func NewHandler(searcher Searcher, version string, log *slog.Logger) http.Handler {
	s := server.NewMCPServer("docsearch", version,
		server.WithToolCapabilities(false),
	)

	tool := mcp.NewTool("search_documents",
		mcp.WithDescription("Search the knowledge base for relevant information"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp, err := searcher.SearchForAgent(ctx, query, search.Options{})
		if err != nil {
			log.Error("mcp search failed", "query", query, "error", err)
			return mcp.NewToolResultError("search failed: " + err.Error()), nil
		}

		payload, err := json.Marshal(resp.Results)
		if err != nil {
			return mcp.NewToolResultError("failed to encode results: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})

	return server.NewStreamableHTTPServer(s,
		server.WithEndpointPath("/api/mcp"),
	)
}
