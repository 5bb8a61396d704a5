package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lexandro/envstamp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ShowArgs defines the input parameters for the envstamp_show tool.
type ShowArgs struct {
	FilePath string `json:"filePath" jsonschema:"Relative path of a cataloged env file (e.g. services/api/.env)"`
}

// ShowHandler holds the dependencies for the show tool.
type ShowHandler struct {
	Catalog *index.Catalog
	Logger  *slog.Logger
}

// Handle processes an envstamp_show request. Values are resolved the way
// dotenv loaders see them: quotes stripped, export prefixes and inline comments removed.
func (h *ShowHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ShowArgs) (*mcp.CallToolResult, any, error) {
	if args.FilePath == "" {
		h.Logger.Warn("envstamp_show called with empty filePath")
		return errorResult("Error: filePath parameter is required"), nil, nil
	}

	file := h.Catalog.Get(args.FilePath)
	if file == nil {
		h.Logger.Info("envstamp_show file not found", "filePath", args.FilePath)
		return errorResult("Env file not found in catalog: %s", args.FilePath), nil, nil
	}

	values, err := godotenv.Read(file.Path)
	if err != nil {
		h.Logger.Error("envstamp_show failed", "filePath", args.FilePath, "error", err)
		return errorResult("Parse error in %s: %v", args.FilePath, err), nil, nil
	}

	h.Logger.Info("envstamp_show", "filePath", args.FilePath, "keys", len(values))

	return textResult(formatValues(file.RelativePath, values)), nil, nil
}

func formatValues(relativePath string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%d keys) ──\n", relativePath, len(keys)))
	for _, key := range keys {
		builder.WriteString(fmt.Sprintf("%s=%s\n", key, values[key]))
	}
	return builder.String()
}
