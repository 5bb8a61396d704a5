package main

import (
	"context"
	"os"
	"time"
)

// SyncResult holds the outcome of a single sync verification run.
type SyncResult struct {
	MissingFiles  int // env files on disk but not in the catalog
	StaleFiles    int // cataloged files no longer on disk
	ModifiedFiles int // files whose ModTime differs
	Duration      time.Duration
}

// runPeriodicSync verifies catalog consistency at the given interval
// until ctx is done. It backs up the watcher, which can miss events.
func (c *envCatalog) runPeriodicSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("periodic sync started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			result := c.verify()
			if result.MissingFiles+result.StaleFiles+result.ModifiedFiles > 0 {
				c.logger.Info("sync verification complete",
					"missing", result.MissingFiles,
					"stale", result.StaleFiles,
					"modified", result.ModifiedFiles,
					"duration", result.Duration,
				)
			} else {
				c.logger.Debug("sync verification complete, catalog is in sync", "duration", result.Duration)
			}
		}
	}
}

// verify compares the env files on disk with the catalog and fixes any drift.
func (c *envCatalog) verify() SyncResult {
	start := time.Now()
	var result SyncResult

	paths, err := c.finder.Find(c.rootDir)
	if err != nil {
		c.logger.Warn("sync: discovery failed", "error", err)
		result.Duration = time.Since(start)
		return result
	}

	onDisk := make(map[string]string, len(paths)) // relative -> absolute
	for _, path := range paths {
		onDisk[c.relativePath(path)] = path
	}

	for relPath, absPath := range onDisk {
		cataloged := c.catalog.Get(relPath)
		if cataloged == nil {
			if err := c.add(absPath); err != nil {
				c.logger.Debug("sync: skipped missing file", "path", relPath, "error", err)
				continue
			}
			c.logger.Info("sync: cataloged missing file", "path", relPath)
			result.MissingFiles++
			continue
		}

		info, err := os.Stat(absPath)
		if err != nil || info.ModTime().Equal(cataloged.ModTime) {
			continue
		}
		if err := c.add(absPath); err != nil {
			c.logger.Debug("sync: skipped modified file", "path", relPath, "error", err)
			continue
		}
		c.logger.Info("sync: re-cataloged modified file", "path", relPath)
		result.ModifiedFiles++
	}

	for _, file := range c.catalog.All() {
		if _, exists := onDisk[file.RelativePath]; !exists {
			c.remove(file.Path)
			c.logger.Info("sync: removed stale file", "path", file.RelativePath)
			result.StaleFiles++
		}
	}

	result.Duration = time.Since(start)
	return result
}
