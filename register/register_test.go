package register

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func Test_ParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Request
	}{
		{"project defaults to cwd", []string{"project"}, Request{Scope: ScopeProject, Directory: "."}},
		{"project directory", []string{"project", "services/api"}, Request{Scope: ScopeProject, Directory: "services/api"}},
		{
			"project with forwarded flags",
			[]string{"project", "app", "--", "--exact", "--exclude", "legacy/**"},
			Request{Scope: ScopeProject, Directory: "app", ServerArgs: []string{"--exact", "--exclude", "legacy/**"}},
		},
		{"project flags only", []string{"project", "--", "--local"}, Request{Scope: ScopeProject, Directory: ".", ServerArgs: []string{"--local"}}},
		{"user", []string{"user"}, Request{Scope: ScopeUser}},
		{"user with forwarded flags", []string{"user", "--", "--log-level", "debug"}, Request{Scope: ScopeUser, ServerArgs: []string{"--log-level", "debug"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs(%v) error: %v", tt.args, err)
			}
			if got.Scope != tt.want.Scope || got.Directory != tt.want.Directory || !slices.Equal(got.ServerArgs, tt.want.ServerArgs) {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func Test_ParseArgs_Errors(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"global"},
		{"project", "a", "b"},
		{"user", "somewhere"},
	} {
		if _, err := ParseArgs(args); !errors.Is(err, ErrUsage) {
			t.Errorf("ParseArgs(%v) error = %v, want ErrUsage", args, err)
		}
	}
}

func Test_DeriveServerName(t *testing.T) {
	for input, want := range map[string]string{
		"envstamp":                  "envstamp",
		"envstamp-mcp.exe":          "envstamp",
		"/home/dev/go/bin/envstamp": "envstamp",
	} {
		if got := DeriveServerName(input); got != want {
			t.Errorf("DeriveServerName(%q) = %q, want %q", input, got, want)
		}
	}
}

func Test_serverArgsFor(t *testing.T) {
	configPath := filepath.Join(string(filepath.Separator), "projects", "api", ".mcp.json")

	project := serverArgsFor(Request{Scope: ScopeProject, ServerArgs: []string{"--exact"}}, configPath)
	wantProject := []string{"--mcp", filepath.Dir(configPath), "--exact"}
	if !slices.Equal(project, wantProject) {
		t.Errorf("project args = %v, want %v", project, wantProject)
	}

	user := serverArgsFor(Request{Scope: ScopeUser}, "/home/dev/.claude.json")
	if !slices.Equal(user, []string{"--mcp"}) {
		t.Errorf("user args = %v, want [--mcp]", user)
	}
}

func Test_newServerEntry(t *testing.T) {
	entry := newServerEntry("/usr/local/bin/envstamp", []string{"--mcp"})

	if runtime.GOOS == "windows" {
		if entry.Command != "cmd" || !slices.Equal(entry.Args, []string{"/C", "/usr/local/bin/envstamp", "--mcp"}) {
			t.Errorf("unexpected windows entry: %+v", entry)
		}
		return
	}
	if entry.Command != "/usr/local/bin/envstamp" || !slices.Equal(entry.Args, []string{"--mcp"}) {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func readConfig(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	var config map[string]json.RawMessage
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	return config
}

func readServers(t *testing.T, path string) map[string]serverEntry {
	t.Helper()
	var servers map[string]serverEntry
	if err := json.Unmarshal(readConfig(t, path)["mcpServers"], &servers); err != nil {
		t.Fatalf("parsing mcpServers: %v", err)
	}
	return servers
}

func Test_mergeServer_NewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")

	entry := serverEntry{Command: "/usr/bin/envstamp", Args: []string{"--mcp"}}
	if err := mergeServer(configPath, "envstamp", entry); err != nil {
		t.Fatalf("mergeServer() error: %v", err)
	}

	got := readServers(t, configPath)["envstamp"]
	if got.Command != entry.Command || !slices.Equal(got.Args, entry.Args) {
		t.Errorf("entry = %+v, want %+v", got, entry)
	}
}

func Test_mergeServer_KeepsOtherSettings(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".claude.json")
	existing := `{
  "theme": "dark",
  "mcpServers": {
    "codeindex": {"command": "/usr/bin/codeindex"},
    "envstamp": {"command": "/old/envstamp"}
  }
}`
	if err := os.WriteFile(configPath, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	if err := mergeServer(configPath, "envstamp", serverEntry{Command: "/new/envstamp", Args: []string{"--mcp"}}); err != nil {
		t.Fatalf("mergeServer() error: %v", err)
	}

	if theme := string(readConfig(t, configPath)["theme"]); theme != `"dark"` {
		t.Errorf("theme = %s, want \"dark\"", theme)
	}
	servers := readServers(t, configPath)
	if servers["envstamp"].Command != "/new/envstamp" {
		t.Errorf("envstamp command = %q, want /new/envstamp", servers["envstamp"].Command)
	}
	if servers["codeindex"].Command != "/usr/bin/codeindex" {
		t.Errorf("codeindex entry changed: %+v", servers["codeindex"])
	}
}

func Test_mergeServer_RejectsMalformedConfig(t *testing.T) {
	for name, content := range map[string]string{
		"invalid json":        "{ not json",
		"servers not object":  `{"mcpServers": ["envstamp"]}`,
		"servers set to null": `{"mcpServers": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), ".mcp.json")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			if err := mergeServer(configPath, "envstamp", serverEntry{Command: "/usr/bin/envstamp"}); err == nil {
				t.Fatal("expected an error")
			}
			data, _ := os.ReadFile(configPath)
			if string(data) != content {
				t.Errorf("malformed config must be left alone, got %s", data)
			}
		})
	}
}

func Test_Run_Project(t *testing.T) {
	projectDir := t.TempDir()
	var out bytes.Buffer

	if err := Run("envstamp", []string{"project", projectDir, "--", "--exact"}, &out); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	configPath := filepath.Join(projectDir, ".mcp.json")
	entry, ok := readServers(t, configPath)["envstamp"]
	if !ok {
		t.Fatal("envstamp entry missing")
	}
	if !strings.HasSuffix(strings.Join(entry.Args, " "), "--mcp "+projectDir+" --exact") {
		t.Errorf("unexpected args: %v", entry.Args)
	}
	if !strings.Contains(out.String(), configPath) {
		t.Errorf("expected confirmation naming %s, got %q", configPath, out.String())
	}
}

func Test_Run_MissingProjectDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	if err := Run("envstamp", []string{"project", missing}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for a missing project directory")
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("missing directory must not be created")
	}
}

func Test_Run_UsageErrors(t *testing.T) {
	var out bytes.Buffer

	if err := Run("envstamp", []string{"global"}, &out); !errors.Is(err, ErrUsage) {
		t.Errorf("expected ErrUsage, got %v", err)
	}
	if !strings.Contains(out.String(), "register project") {
		t.Errorf("expected usage output, got: %s", out.String())
	}
}
