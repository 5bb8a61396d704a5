// Package discovery finds env files below a root directory.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Marker is the file-name prefix that identifies env files.
const Marker = ".env"

// MarkerMode selects how file names are matched against Marker.
type MarkerMode int

const (
	// MarkerPrefix accepts any name starting with ".env" (.env, .env.local, .env.production).
	MarkerPrefix MarkerMode = iota
	// MarkerExact accepts only files named exactly ".env".
	MarkerExact
)

func (m MarkerMode) String() string {
	if m == MarkerExact {
		return "exact"
	}
	return "prefix"
}

// Matches reports whether a file name denotes an env file.
func (m MarkerMode) Matches(name string) bool {
	if m == MarkerExact {
		return name == Marker
	}
	return strings.HasPrefix(name, Marker)
}

// DirFilter is consulted for every directory and candidate file below the root.
type DirFilter interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
	IsFileTooLarge(fileSize int64) bool
}

// Finder walks a directory tree collecting env files.
type Finder struct {
	Filter DirFilter
	Mode   MarkerMode
	Logger *slog.Logger
}

// IsCandidate reports whether a file path would be picked up by Find,
// without touching the filesystem beyond what the filter does.
func (f *Finder) IsCandidate(absolutePath string) bool {
	if !f.Mode.Matches(filepath.Base(absolutePath)) {
		return false
	}
	return f.Filter == nil || !f.Filter.ShouldIgnore(absolutePath)
}

// ErrTooLarge marks an env file rejected by the size limit.
var ErrTooLarge = errors.New("env file exceeds the size limit")

// ScanResult lists what a walk found below the root.
type ScanResult struct {
	Files     []string // env files to process, depth-first
	Oversized []string // env files rejected by the size limit
}

// ResolveRoot makes rootDir absolute and, when rootDir itself is a symbolic
// link, replaces it with the link target so the walk descends into it.
func ResolveRoot(rootDir string) (string, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", rootDir, err)
	}
	info, err := os.Lstat(absRoot)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return absRoot, nil
	}
	target, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving link %s: %w", absRoot, err)
	}
	return target, nil
}

// Find returns the absolute paths of all env files below rootDir, depth-first.
// Oversized env files are left out.
func (f *Finder) Find(rootDir string) ([]string, error) {
	result, err := f.Scan(rootDir)
	if err != nil {
		return nil, err
	}
	for _, path := range result.Oversized {
		f.Logger.Debug("skipping oversized env file", "path", path)
	}
	return result.Files, nil
}

// Scan walks rootDir collecting env files.
// Unreadable directories are logged and skipped; the walk continues in their siblings.
func (f *Finder) Scan(rootDir string) (ScanResult, error) {
	var result ScanResult

	rootDir, err := ResolveRoot(rootDir)
	if err != nil {
		return result, err
	}

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootDir {
				return err
			}
			f.Logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != rootDir && f.Filter != nil && f.Filter.ShouldIgnoreDir(path) {
				f.Logger.Debug("skipping directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !f.IsCandidate(path) {
			return nil
		}

		if f.Filter != nil {
			info, err := d.Info()
			if err != nil {
				f.Logger.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			if f.Filter.IsFileTooLarge(info.Size()) {
				result.Oversized = append(result.Oversized, path)
				return nil
			}
		}

		result.Files = append(result.Files, path)
		return nil
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("walking %s: %w", rootDir, err)
	}
	return result, nil
}
