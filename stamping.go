package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexandro/envstamp/discovery"
	"github.com/lexandro/envstamp/envfile"
	"github.com/lexandro/envstamp/ignore"
	"github.com/lexandro/envstamp/tools"
	"github.com/lexandro/envstamp/watcher"
)

// stamper runs discovery and rewriting over one root directory.
// Runs are serialized so the watcher and MCP tools never overlap.
type stamper struct {
	rootDir  string
	finder   *discovery.Finder
	rewriter *envfile.Rewriter
	logger   *slog.Logger

	// progress receives per-file verbose output; nil disables it.
	progress io.Writer
	// afterWrite is called for every file that was rewritten.
	afterWrite func(path string)
	// ownFiles are files the process itself writes below the root, such as
	// the log file. Changes to them never trigger a watch run.
	ownFiles map[string]bool

	mu sync.Mutex
}

// run discovers env files and stamps each of them in turn. include, when
// non-nil, restricts the run to paths it accepts. Per-file failures are
// logged and counted; only a failed walk of the root returns an error.
func (s *stamper) run(dryRun bool, include func(path string) bool) (tools.UpdateReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := tools.UpdateReport{RootDir: s.rootDir, DryRun: dryRun}

	s.printf("Searching for .env files in: %s\n", s.rootDir)

	scan, err := s.finder.Scan(s.rootDir)
	if err != nil {
		return report, err
	}
	paths := filterPaths(scan.Files, include)
	oversized := filterPaths(scan.Oversized, include)
	report.FilesFound = len(paths) + len(oversized)

	if report.FilesFound > 0 {
		s.printf("Found %d .env file(s):\n", report.FilesFound)
		for _, path := range paths {
			s.printf("  - %s\n", path)
		}
		for _, path := range oversized {
			s.printf("  - %s (too large)\n", path)
		}
		s.printf("\n")
	}

	for _, path := range oversized {
		s.logger.Error("failed to process env file", "path", path, "error", discovery.ErrTooLarge)
		report.FilesFailed++
	}

	for _, path := range paths {
		result, err := s.rewriter.ProcessFile(path, dryRun)
		if err != nil {
			s.logger.Error("failed to process env file", "path", path, "error", err)
			report.FilesFailed++
			continue
		}

		switch {
		case result.Written:
			s.printf("Updated: %s\n", path)
			if s.afterWrite != nil {
				s.afterWrite(path)
			}
		case result.Changed():
			s.printf("Would update: %s\n", path)
		default:
			s.printf("No changes needed: %s\n", path)
		}

		if result.Changed() {
			report.FilesChanged++
			report.Updates = append(report.Updates, result.Updates...)
		}
	}

	report.Elapsed = time.Since(start)
	s.logger.Debug("stamping run complete",
		"files", report.FilesFound,
		"changed", report.FilesChanged,
		"failed", report.FilesFailed,
		"variables", len(report.Updates),
		"dryRun", dryRun,
		"duration", report.Elapsed,
	)
	return report, nil
}

func filterPaths(paths []string, include func(string) bool) []string {
	if include == nil {
		return paths
	}
	filtered := make([]string, 0, len(paths))
	for _, path := range paths {
		if include(path) {
			filtered = append(filtered, path)
		}
	}
	return filtered
}

func (s *stamper) printf(format string, args ...any) {
	if s.progress != nil {
		fmt.Fprintf(s.progress, format, args...)
	}
}

// patternFilter returns a path filter accepting files whose path relative
// to rootDir matches a doublestar pattern. An empty pattern accepts everything.
func patternFilter(rootDir string, pattern string) (func(string) bool, error) {
	if pattern == "" {
		return nil, nil
	}
	pattern = filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	return func(path string) bool {
		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return false
		}
		matched, err := doublestar.Match(pattern, filepath.ToSlash(relPath))
		return err == nil && matched
	}, nil
}

// triggersRun reports whether a batch of changes should cause a new stamping
// run: at least one changed path must be something other than an env file
// or one of the process's own files.
// Any ".env"-prefixed name counts as an env file whatever the marker mode,
// so the tool's own writes and their temp files never retrigger it.
func (s *stamper) triggersRun(batch []watcher.DebouncedEvent) bool {
	for _, event := range batch {
		if s.ownFiles[event.Path] {
			continue
		}
		if !discovery.MarkerPrefix.Matches(filepath.Base(event.Path)) {
			return true
		}
	}
	return false
}

// watchAndStamp re-runs the stamper whenever the project tree changes,
// until ctx is done or the event channel is closed.
func watchAndStamp(
	ctx context.Context,
	events <-chan []watcher.DebouncedEvent,
	s *stamper,
	ignoreMatcher *ignore.Matcher,
	dryRun bool,
	out io.Writer,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			if reloadIgnoreRules(batch, ignoreMatcher) {
				s.logger.Info("reloaded ignore rules", "trigger", ".gitignore")
			}
			if !s.triggersRun(batch) {
				continue
			}

			s.logger.Info("project changed, stamping env files", "events", len(batch))
			report, err := s.run(dryRun, nil)
			if err != nil {
				s.logger.Error("stamping run failed", "error", err)
				continue
			}
			fmt.Fprint(out, tools.FormatUpdateReport(report))
		}
	}
}

// reloadIgnoreRules reloads the matcher when the root .gitignore is part of the batch.
func reloadIgnoreRules(batch []watcher.DebouncedEvent, ignoreMatcher *ignore.Matcher) bool {
	gitignorePath := filepath.Join(ignoreMatcher.RootDir(), ".gitignore")
	for _, event := range batch {
		if event.Path == gitignorePath {
			ignoreMatcher.Reload()
			return true
		}
	}
	return false
}
