package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/envstamp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FilesArgs defines the input parameters for the envstamp_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern,omitempty" jsonschema:"Glob pattern to match env files (default **/.env*)"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return only file paths without metadata"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Catalog *index.Catalog
	Logger  *slog.Logger
}

// Handle processes an envstamp_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	pattern := args.Pattern
	if pattern == "" {
		pattern = "**/.env*"
	}

	results, err := h.Catalog.SearchByGlob(pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("envstamp_files failed", "pattern", pattern, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("envstamp_files",
		"pattern", pattern,
		"results", len(results),
		"elapsed", time.Since(start),
	)

	return textResult(FormatFileResults(results, args.NameOnly)), nil, nil
}
