package tools

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/envstamp/envfile"
	"github.com/lexandro/envstamp/index"
)

// UpdateReport summarizes one stamping run.
type UpdateReport struct {
	RootDir      string
	FilesFound   int
	FilesChanged int
	FilesFailed  int
	DryRun       bool
	Updates      []envfile.LineUpdate
	Elapsed      time.Duration
}

// FormatUpdateReport renders a run as the human-readable summary printed
// by the CLI and returned by the update tool.
func FormatUpdateReport(report UpdateReport) string {
	if report.FilesFound == 0 {
		return "No .env files found.\n"
	}

	var builder strings.Builder

	if len(report.Updates) == 0 {
		builder.WriteString("No variables with _MODIFIED or _BUILD found to update.\n")
	} else {
		verb := "Updated"
		if report.DryRun {
			verb = "Would update"
		}
		builder.WriteString(fmt.Sprintf("%s %d variable(s) in %d of %d file(s):\n",
			verb, len(report.Updates), report.FilesChanged, report.FilesFound))

		for _, update := range report.Updates {
			builder.WriteString(fmt.Sprintf("  %s:%d\n", relativeTo(report.RootDir, update.File), update.Line))
			builder.WriteString(fmt.Sprintf("    - %s\n", update.Original))
			builder.WriteString(fmt.Sprintf("    + %s\n", update.Updated))
		}
	}

	if report.FilesFailed > 0 {
		builder.WriteString(fmt.Sprintf("%d file(s) could not be processed, see log.\n", report.FilesFailed))
	}
	return builder.String()
}

// FormatFileResults formats catalog search results as human-readable text.
func FormatFileResults(results []*index.CandidateFile, nameOnly bool) string {
	if len(results) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(results)))

	for _, file := range results {
		if nameOnly {
			builder.WriteString(file.RelativePath)
			builder.WriteString("\n")
			continue
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, %d lines, %d keys)\n",
			file.RelativePath,
			formatFileSize(file.SizeBytes),
			file.LineCount,
			file.KeyCount,
		))
	}

	return builder.String()
}

// FormatKeyResults formats key search results grouped by file.
func FormatKeyResults(results []index.KeyEntry, total int) string {
	if len(results) == 0 {
		return "No keys matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d keys", total))
	if total > len(results) {
		builder.WriteString(fmt.Sprintf(" (showing %d)", len(results)))
	}
	builder.WriteString(":\n")

	currentPath := ""
	for _, entry := range results {
		if entry.RelativePath != currentPath {
			currentPath = entry.RelativePath
			builder.WriteString(fmt.Sprintf("\n── %s ──\n", currentPath))
		}
		builder.WriteString(fmt.Sprintf("  %d: %s=%s  [%s]\n", entry.Line, entry.Key, entry.Value, entry.Category))
	}

	return builder.String()
}

// relativeTo returns path relative to rootDir with forward slashes,
// or path itself when it is not below rootDir.
func relativeTo(rootDir string, path string) string {
	if rootDir == "" {
		return path
	}
	rel, err := filepath.Rel(rootDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
