// Package tool exposes the retrieval engine as MCP tools so agents can
// search the index.
package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyperjump/tansaku/internal/engine"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// searchInput is the search_documents tool input.
type searchInput struct {
	Query string `json:"query" jsonschema_description:"Natural-language search query"`
	TopK  int    `json:"top_k,omitempty" jsonschema_description:"Maximum number of results (default 5)"`
}

// snippetLen caps document content in tool output.
const snippetLen = 500

// NewServer builds an MCP server exposing search over eng.
func NewServer(eng *engine.Engine, version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "tansaku", Version: version},
		nil,
	)
	Register(server, eng)
	return server
}

// Register adds the engine's tools to an existing MCP server.
func Register(server *mcp.Server, eng *engine.Engine) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the indexed document collection by semantic similarity and return the most relevant passages",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, struct{}, error) {
		resp, err := eng.Search(ctx, models.SearchQuery{Query: in.Query, TopK: in.TopK})
		if err != nil {
			return nil, struct{}{}, fmt.Errorf("search: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: formatHits(resp)},
			},
		}, struct{}{}, nil
	})
}

// formatHits renders search results as readable text for the model.
func formatHits(resp models.SearchResponse) string {
	if len(resp.Hits) == 0 {
		return fmt.Sprintf("No documents matched %q.", resp.Query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d result(s) for %q:\n", len(resp.Hits), resp.Query)
	for i, h := range resp.Hits {
		fmt.Fprintf(&b, "\n%d. [%s] (score %.3f)\n", i+1, h.Document.ID, h.Score)
		if src := h.Document.Metadata["source"]; src != "" {
			fmt.Fprintf(&b, "   source: %s\n", src)
		}
		fmt.Fprintf(&b, "   %s\n", utils.Truncate(h.Document.Content, snippetLen))
	}
	return b.String()
}
