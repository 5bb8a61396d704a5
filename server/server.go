package server

import (
	"github.com/lexandro/envstamp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handlers bundles the tool handlers registered on the server.
type Handlers struct {
	Update *tools.UpdateHandler
	Files  *tools.FilesHandler
	Search *tools.SearchHandler
	Show   *tools.ShowHandler
	Status *tools.StatusHandler
	Rescan *tools.RescanHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(version string, handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "envstamp",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `This server maintains build metadata in the project's .env files.

- Use envstamp_update to refresh *_MODIFIED dates and increment *_BUILD / BUILD_* counters (dryRun previews the change)
- Use envstamp_files to list env files and envstamp_show to read the parsed values of one
- Use envstamp_search to find keys across all env files
- The catalog updates automatically when env files change (via filesystem watcher)`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "envstamp_update",
		Description: `Stamp env files: variables whose key contains _MODIFIED get today's date (full ISO 8601 timestamp when the key contains _FULL or starts with FULL_), variables whose key contains _BUILD or starts with BUILD_ get their first number incremented. Files without changes are not written.`,
	}, handlers.Update.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "envstamp_files",
		Description: `List env files by glob pattern.

Pattern examples:
  - "**/.env*" - all env files (default)
  - "services/**/.env" - plain .env files under services/
  - ".env.*" - variant files in the root only`,
	}, handlers.Files.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "envstamp_search",
		Description: `Search keys and values across all env files.

Query formats:
  - Plain text: word match on key parts and values (e.g. "build" finds APP_BUILD)
  - "quoted text": exact phrase
  - /regex/: regular expression over the whole key (e.g. "/.*_MODIFIED.*/")
  - PREFIX*: keys starting with PREFIX (e.g. "APP_*")`,
	}, handlers.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "envstamp_show",
		Description: "Show the parsed variables of one env file as a dotenv loader would see them (quotes stripped, export and inline comments removed).",
	}, handlers.Show.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "envstamp_status",
		Description: "Show catalog status: root directory, env file count, key count, memory usage and uptime.",
	}, handlers.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "envstamp_rescan",
		Description: "Rebuild the env file catalog and key index from disk.",
	}, handlers.Rescan.Handle)

	return mcpServer
}
