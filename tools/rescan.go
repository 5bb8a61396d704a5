package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RescanArgs defines the input parameters for the envstamp_rescan tool.
type RescanArgs struct{}

// RescanFunc rebuilds the catalog and key index from disk.
// It is provided by main.go to avoid circular dependencies.
type RescanFunc func() (fileCount int, keyCount int, elapsed string, err error)

// RescanHandler holds the dependencies for the rescan tool.
type RescanHandler struct {
	DoRescan RescanFunc
	Logger   *slog.Logger
}

// Handle processes an envstamp_rescan request.
func (h *RescanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RescanArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("envstamp_rescan started")

	fileCount, keyCount, elapsed, err := h.DoRescan()
	if err != nil {
		h.Logger.Error("envstamp_rescan failed", "error", err)
		return errorResult("Rescan error: %v", err), nil, nil
	}

	h.Logger.Info("envstamp_rescan complete",
		"files", fileCount,
		"keys", keyCount,
		"elapsed", elapsed,
	)

	return textResult(fmt.Sprintf("Rescan complete: %d env files, %d keys in %s", fileCount, keyCount, elapsed)), nil, nil
}
