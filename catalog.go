package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexandro/envstamp/discovery"
	"github.com/lexandro/envstamp/envfile"
	"github.com/lexandro/envstamp/ignore"
	"github.com/lexandro/envstamp/index"
	"github.com/lexandro/envstamp/watcher"
)

// envCatalog keeps the MCP catalog and key index in step with the env
// files on disk.
type envCatalog struct {
	rootDir  string
	finder   *discovery.Finder
	catalog  *index.Catalog
	keyIndex *index.KeyIndex
	logger   *slog.Logger
}

// relativePath returns absolutePath relative to the root with forward slashes.
func (c *envCatalog) relativePath(absolutePath string) string {
	relPath, err := filepath.Rel(c.rootDir, absolutePath)
	if err != nil {
		return filepath.ToSlash(absolutePath)
	}
	return filepath.ToSlash(relPath)
}

// rebuild clears the catalog and key index and fills them from disk.
// Returns the number of files and keys cataloged.
func (c *envCatalog) rebuild() (int, int, error) {
	c.catalog.Clear()
	if err := c.keyIndex.Clear(); err != nil {
		return 0, 0, fmt.Errorf("clearing key index: %w", err)
	}

	paths, err := c.finder.Find(c.rootDir)
	if err != nil {
		return 0, 0, err
	}

	for _, path := range paths {
		if err := c.add(path); err != nil {
			c.logger.Warn("skipped env file", "path", c.relativePath(path), "error", err)
		}
	}
	return c.catalog.Count(), c.catalog.KeyCount(), nil
}

// add reads one env file into the catalog and the key index.
func (c *envCatalog) add(absolutePath string) error {
	info, err := os.Stat(absolutePath)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}

	content, err := envfile.ReadFileWithRetry(absolutePath)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if envfile.IsBinaryContent(content) {
		return envfile.ErrBinary
	}

	relPath := c.relativePath(absolutePath)
	keyCount, err := c.keyIndex.IndexFile(relPath, string(content))
	if err != nil {
		return fmt.Errorf("indexing keys: %w", err)
	}

	c.catalog.Add(&index.CandidateFile{
		Path:         absolutePath,
		RelativePath: relPath,
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
		LineCount:    strings.Count(string(content), "\n") + 1,
		KeyCount:     keyCount,
	})
	return nil
}

// remove drops one env file from the catalog and the key index.
func (c *envCatalog) remove(absolutePath string) {
	relPath := c.relativePath(absolutePath)
	c.catalog.Remove(relPath)
	if err := c.keyIndex.RemoveFile(relPath); err != nil {
		c.logger.Warn("failed to remove keys", "path", relPath, "error", err)
	}
}

// refresh re-reads a file after the stamper rewrote it.
func (c *envCatalog) refresh(absolutePath string) {
	if err := c.add(absolutePath); err != nil {
		c.logger.Debug("skipped catalog refresh", "path", c.relativePath(absolutePath), "error", err)
	}
}

// handleEvents processes debounced file system events and updates the catalog.
func (c *envCatalog) handleEvents(ctx context.Context, events <-chan []watcher.DebouncedEvent, ignoreMatcher *ignore.Matcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			if reloadIgnoreRules(batch, ignoreMatcher) {
				c.logger.Info("reloaded ignore rules", "trigger", ".gitignore")
			}
			for _, event := range batch {
				c.applyEvent(event)
			}
		}
	}
}

func (c *envCatalog) applyEvent(event watcher.DebouncedEvent) {
	if !c.finder.IsCandidate(event.Path) {
		return
	}
	relPath := c.relativePath(event.Path)

	switch event.Op {
	case watcher.OpRemove, watcher.OpRename:
		c.remove(event.Path)
		c.logger.Debug("removed from catalog", "path", relPath)

	case watcher.OpCreate, watcher.OpWrite:
		if err := c.add(event.Path); err != nil {
			c.logger.Debug("skipped catalog update", "path", relPath, "error", err)
			return
		}
		c.logger.Debug("updated catalog", "path", relPath)
	}
}
