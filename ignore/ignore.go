package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher decides which directories and files are left out of env file discovery.
// It combines the default skip set, optional .gitignore directory rules and
// user exclude patterns.
// Thread-safe: Reload() acquires a write lock, ShouldIgnore()/ShouldIgnoreDir() acquire a read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	useGitIgnore     bool
	gitIgnore        gitignore.GitIgnore
	excludePatterns  []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir          string
	ExcludePatterns  []string // doublestar patterns, relative to RootDir
	UseGitIgnore     bool     // skip directories ignored by the root .gitignore
	MaxFileSizeBytes int64
}

// NewMatcher creates an ignore matcher. Exclude patterns are normalized to
// forward slashes; call ValidatePatterns first to reject malformed ones.
func NewMatcher(options MatcherOptions) *Matcher {
	patterns := make([]string, 0, len(options.ExcludePatterns))
	for _, pattern := range options.ExcludePatterns {
		patterns = append(patterns, filepath.ToSlash(pattern))
	}

	matcher := &Matcher{
		rootDir:          options.RootDir,
		useGitIgnore:     options.UseGitIgnore,
		excludePatterns:  patterns,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}

	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = 1024 * 1024 // 1MB default
	}

	if matcher.useGitIgnore {
		matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	}

	return matcher
}

// ValidatePatterns returns an error naming the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	return nil
}

// RootDir returns the directory the matcher resolves relative paths against.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	relativePath := m.relative(absolutePath)
	if relativePath == "." {
		return false
	}
	if defaultSkipSet[filepath.Base(absolutePath)] {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.matchesExcludePatterns(relativePath) {
		return true
	}

	if m.gitIgnore != nil {
		match := m.gitIgnore.Relative(relativePath, true)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// ShouldIgnore returns true if the given file is excluded: it lives under a
// skipped directory or matches an exclude pattern. .gitignore rules never
// exclude files, since env files are normally git-ignored themselves.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	relativePath := m.relative(absolutePath)

	parts := strings.Split(relativePath, "/")
	for _, part := range parts[:len(parts)-1] {
		if defaultSkipSet[part] {
			return true
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.matchesExcludePatterns(relativePath)
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

// MaxFileSizeBytes returns the configured maximum file size.
func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxFileSizeBytes
}

// relative returns absolutePath relative to the root with forward slashes.
func (m *Matcher) relative(absolutePath string) string {
	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	return filepath.ToSlash(relativePath)
}

// matchesExcludePatterns checks the relative path and its base name against
// every user exclude pattern. Caller holds the read lock.
func (m *Matcher) matchesExcludePatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.excludePatterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// Reload re-reads the root .gitignore from disk.
// Used when the watcher detects a change to it.
func (m *Matcher) Reload() {
	if !m.useGitIgnore {
		return
	}
	newGitIgnore := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = newGitIgnore
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
