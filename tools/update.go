package tools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// UpdateArgs defines the input parameters for the envstamp_update tool.
type UpdateArgs struct {
	DryRun  bool   `json:"dryRun,omitempty" jsonschema:"If true report the changes without writing any file"`
	Pattern string `json:"pattern,omitempty" jsonschema:"Optional glob restricting the run to matching env files (e.g. services/**/.env)"`
}

// UpdateFunc performs one stamping run. It is provided by main.go to avoid
// circular dependencies.
type UpdateFunc func(ctx context.Context, dryRun bool, pattern string) (UpdateReport, error)

// UpdateHandler holds the dependencies for the update tool.
type UpdateHandler struct {
	DoUpdate UpdateFunc
	Logger   *slog.Logger
}

// Handle processes an envstamp_update request.
func (h *UpdateHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args UpdateArgs) (*mcp.CallToolResult, any, error) {
	report, err := h.DoUpdate(ctx, args.DryRun, args.Pattern)
	if err != nil {
		h.Logger.Error("envstamp_update failed", "pattern", args.Pattern, "error", err)
		return errorResult("Update error: %v", err), nil, nil
	}

	h.Logger.Info("envstamp_update",
		"dryRun", args.DryRun,
		"pattern", args.Pattern,
		"files", report.FilesFound,
		"changed", report.FilesChanged,
		"variables", len(report.Updates),
		"elapsed", report.Elapsed,
	)

	return textResult(FormatUpdateReport(report)), nil, nil
}
