package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/envstamp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the envstamp_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Search query. Plain text for word match on key parts and values, quoted for exact phrase, /regex/ for a key regular expression, PREFIX* for key prefix"`
	Category   string `json:"category,omitempty" jsonschema:"Restrict to keys of one category: timestamp, build or other"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of keys to return (default 50)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	KeyIndex *index.KeyIndex
	Logger   *slog.Logger
}

// Handle processes an envstamp_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("envstamp_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	switch args.Category {
	case "", "timestamp", "build", "other":
	default:
		return errorResult("Error: unknown category %q (must be timestamp, build or other)", args.Category), nil, nil
	}

	results, total, err := h.KeyIndex.Search(index.KeySearchOptions{
		Query:      args.Query,
		Category:   args.Category,
		MaxResults: args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("envstamp_search failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("envstamp_search",
		"query", args.Query,
		"category", args.Category,
		"matches", total,
		"elapsed", time.Since(start),
	)

	return textResult(FormatKeyResults(results, total)), nil, nil
}
