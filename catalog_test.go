package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/envstamp/index"
	"github.com/lexandro/envstamp/watcher"
)

func Test_envCatalog_Rebuild(t *testing.T) {
	tmpDir := t.TempDir()
	c := testCatalog(t, tmpDir)

	writeFile(t, filepath.Join(tmpDir, ".env"), "APP_BUILD=1\nAPP_MODIFIED=2026-01-01\n# comment\n")
	writeFile(t, filepath.Join(tmpDir, "api", ".env.local"), "API_BUILD=7\n")
	writeFile(t, filepath.Join(tmpDir, "README.md"), "APP_BUILD=1\n")

	files, keys, err := c.rebuild()
	if err != nil {
		t.Fatalf("rebuild() error: %v", err)
	}
	if files != 2 {
		t.Errorf("expected 2 files, got %d", files)
	}
	if keys != 3 {
		t.Errorf("expected 3 keys, got %d", keys)
	}

	results, total, err := c.keyIndex.Search(index.KeySearchOptions{Query: "API_BUILD"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if total != 1 || len(results) != 1 || results[0].RelativePath != "api/.env.local" {
		t.Errorf("unexpected search results: %+v (total %d)", results, total)
	}
}

func Test_envCatalog_RebuildClearsPrevious(t *testing.T) {
	tmpDir := t.TempDir()
	c := testCatalog(t, tmpDir)

	envPath := filepath.Join(tmpDir, ".env")
	writeFile(t, envPath, "APP_BUILD=1\n")
	if _, _, err := c.rebuild(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(envPath); err != nil {
		t.Fatal(err)
	}
	files, keys, err := c.rebuild()
	if err != nil {
		t.Fatal(err)
	}
	if files != 0 || keys != 0 {
		t.Errorf("expected empty catalog, got %d files %d keys", files, keys)
	}
	if c.keyIndex.DocumentCount() != 0 {
		t.Errorf("expected empty key index, got %d", c.keyIndex.DocumentCount())
	}
}

func Test_envCatalog_ApplyEvent(t *testing.T) {
	tmpDir := t.TempDir()
	c := testCatalog(t, tmpDir)

	envPath := filepath.Join(tmpDir, ".env")
	writeFile(t, envPath, "APP_BUILD=1\n")

	c.applyEvent(watcher.DebouncedEvent{Path: envPath, Op: watcher.OpCreate})
	if c.catalog.Get(".env") == nil {
		t.Fatal("expected .env to be cataloged after create")
	}

	c.applyEvent(watcher.DebouncedEvent{Path: envPath, Op: watcher.OpRemove})
	if c.catalog.Get(".env") != nil {
		t.Error("expected .env to be removed after remove")
	}
	if c.keyIndex.DocumentCount() != 0 {
		t.Errorf("expected key index to be empty, got %d", c.keyIndex.DocumentCount())
	}
}

func Test_envCatalog_ApplyEventIgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	c := testCatalog(t, tmpDir)

	otherPath := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, otherPath, "APP_BUILD=1\n")

	c.applyEvent(watcher.DebouncedEvent{Path: otherPath, Op: watcher.OpCreate})

	if c.catalog.Count() != 0 {
		t.Errorf("expected non-env file to be ignored, got %d files", c.catalog.Count())
	}
}

func Test_envCatalog_RefreshAfterWrite(t *testing.T) {
	tmpDir := t.TempDir()
	c := testCatalog(t, tmpDir)

	envPath := filepath.Join(tmpDir, ".env")
	writeFile(t, envPath, "APP_BUILD=1\n")
	if _, _, err := c.rebuild(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, envPath, "APP_BUILD=2\nBUILD_NUMBER=3\n")
	c.refresh(envPath)

	file := c.catalog.Get(".env")
	if file == nil || file.KeyCount != 2 {
		t.Errorf("expected refreshed entry with 2 keys, got %+v", file)
	}
}
