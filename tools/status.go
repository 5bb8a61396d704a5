package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/envstamp/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the envstamp_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Catalog    *index.Catalog
	KeyIndex   *index.KeyIndex
	StartTime  time.Time
	RootDir    string
	MarkerMode string
	Logger     *slog.Logger
}

// Handle processes an envstamp_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	fileCount := h.Catalog.Count()
	keyCount := h.Catalog.KeyCount()
	docCount := h.KeyIndex.DocumentCount()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("envstamp_status",
		"files", fileCount,
		"keys", keyCount,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	builder.WriteString("=== envstamp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", h.RootDir))
	builder.WriteString(fmt.Sprintf("Env file match: %s\n", h.MarkerMode))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Env files: %d\n", fileCount))
	builder.WriteString(fmt.Sprintf("Keys: %d (indexed: %d)\n", keyCount, docCount))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	return textResult(builder.String()), nil, nil
}
