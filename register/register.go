// Package register writes the envstamp MCP server entry into client config files.
package register

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/natefinch/atomic"
)

// ErrUsage is returned when the register arguments are malformed.
var ErrUsage = errors.New("invalid register arguments")

// Scope selects which client config file receives the entry.
type Scope string

const (
	ScopeProject Scope = "project" // <directory>/.mcp.json
	ScopeUser    Scope = "user"    // ~/.claude.json
)

// Request is a parsed register command line.
type Request struct {
	Scope      Scope
	Directory  string   // project scope only, defaults to "."
	ServerArgs []string // forwarded after "--"
}

type serverEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ParseArgs parses everything after "register":
//
//	project [directory] [-- server args...]
//	user [-- server args...]
func ParseArgs(args []string) (Request, error) {
	if len(args) == 0 {
		return Request{}, fmt.Errorf("%w: missing scope", ErrUsage)
	}

	req := Request{Scope: Scope(args[0])}
	rest := args[1:]
	if sep := slices.Index(rest, "--"); sep >= 0 {
		req.ServerArgs = rest[sep+1:]
		rest = rest[:sep]
	}

	switch req.Scope {
	case ScopeProject:
		if len(rest) > 1 {
			return Request{}, fmt.Errorf("%w: expected at most one directory, got %d", ErrUsage, len(rest))
		}
		req.Directory = "."
		if len(rest) == 1 {
			req.Directory = rest[0]
		}
	case ScopeUser:
		if len(rest) > 0 {
			return Request{}, fmt.Errorf("%w: user scope takes no directory", ErrUsage)
		}
	default:
		return Request{}, fmt.Errorf("%w: unknown scope %q (must be \"project\" or \"user\")", ErrUsage, args[0])
	}
	return req, nil
}

// Run executes the register subcommand for serverName (e.g. "envstamp").
func Run(serverName string, args []string, out io.Writer) error {
	req, err := ParseArgs(args)
	if err != nil {
		PrintUsage(out)
		return err
	}

	configPath, err := configPathFor(req)
	if err != nil {
		return err
	}

	binaryPath, err := executablePath()
	if err != nil {
		return err
	}

	entry := newServerEntry(binaryPath, serverArgsFor(req, configPath))
	if err := mergeServer(configPath, serverName, entry); err != nil {
		return err
	}

	fmt.Fprintf(out, "Registered %q in %s\n", serverName, configPath)
	return nil
}

// PrintUsage writes the register subcommand usage.
func PrintUsage(out io.Writer) {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(out, "Usage:\n")
	fmt.Fprintf(out, "  %s register project [directory] [-- flags]  # <directory>/.mcp.json\n", name)
	fmt.Fprintf(out, "  %s register user [-- flags]                 # ~/.claude.json\n", name)
	fmt.Fprintf(out, "\nFlags after -- are passed to the server, e.g. -- --exact --local\n")
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := strings.TrimSuffix(filepath.Base(binaryPath), ".exe")
	return strings.TrimSuffix(name, "-mcp")
}

func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving executable %s: %w", exe, err)
	}
	return resolved, nil
}

func configPathFor(req Request) (string, error) {
	if req.Scope == ScopeUser {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		return filepath.Join(home, ".claude.json"), nil
	}

	dir, err := filepath.Abs(req.Directory)
	if err != nil {
		return "", fmt.Errorf("resolving directory %s: %w", req.Directory, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory %s is not a directory", dir)
	}
	return filepath.Join(dir, ".mcp.json"), nil
}

// serverArgsFor returns the envstamp flags for the entry. A project entry
// stamps the directory it was registered for.
func serverArgsFor(req Request, configPath string) []string {
	args := []string{"--mcp"}
	if req.Scope == ScopeProject {
		args = append(args, filepath.Dir(configPath))
	}
	return append(args, req.ServerArgs...)
}

// newServerEntry wraps the binary in cmd /C on Windows.
func newServerEntry(binaryPath string, args []string) serverEntry {
	if runtime.GOOS == "windows" {
		return serverEntry{Command: "cmd", Args: append([]string{"/C", binaryPath}, args...)}
	}
	return serverEntry{Command: binaryPath, Args: args}
}

// mergeServer sets mcpServers[serverName] in the JSON file at configPath,
// keeping every other key untouched, and writes the file atomically.
func mergeServer(configPath string, serverName string, entry serverEntry) error {
	config := map[string]json.RawMessage{}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parsing %s: %w", configPath, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading %s: %w", configPath, err)
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := config["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil || servers == nil {
			return fmt.Errorf("mcpServers in %s is not an object", configPath)
		}
	}

	encodedEntry, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	servers[serverName] = encodedEntry

	encodedServers, err := json.Marshal(servers)
	if err != nil {
		return fmt.Errorf("encoding mcpServers: %w", err)
	}
	config["mcpServers"] = encodedServers

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", configPath, err)
	}
	output = append(output, '\n')

	if err := atomic.WriteFile(configPath, bytes.NewReader(output)); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	return nil
}
