package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// CandidateFile is an env file known to the catalog.
type CandidateFile struct {
	Path         string    // Absolute file path
	RelativePath string    // Path relative to the root (forward slashes)
	SizeBytes    int64     // File size in bytes
	ModTime      time.Time // Last modification time
	LineCount    int       // Number of lines in the file
	KeyCount     int       // Number of KEY=VALUE lines
}

// Catalog is an in-memory list of candidate env files for glob-based lookup.
// It uses a map for O(1) path lookups and a sorted slice for glob iteration.
type Catalog struct {
	mu          sync.RWMutex
	files       map[string]*CandidateFile // key: relative path (forward slashes)
	sortedPaths []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		files:       make(map[string]*CandidateFile),
		sortedPaths: make([]string, 0),
	}
}

// Add adds or replaces a file.
func (c *Catalog) Add(file *CandidateFile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.files[file.RelativePath]
	c.files[file.RelativePath] = file

	if !exists {
		c.sortedPaths = append(c.sortedPaths, file.RelativePath)
		sort.Strings(c.sortedPaths)
	}
}

// Remove drops a file by its relative path.
func (c *Catalog) Remove(relativePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.files[relativePath]; !exists {
		return
	}
	delete(c.files, relativePath)

	idx := sort.SearchStrings(c.sortedPaths, relativePath)
	if idx < len(c.sortedPaths) && c.sortedPaths[idx] == relativePath {
		c.sortedPaths = append(c.sortedPaths[:idx], c.sortedPaths[idx+1:]...)
	}
}

// Get returns the file for a relative path, or nil if not found.
func (c *Catalog) Get(relativePath string) *CandidateFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[strings.ReplaceAll(relativePath, "\\", "/")]
}

// Count returns the number of cataloged files.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

// KeyCount returns the number of KEY=VALUE lines across all files.
func (c *Catalog) KeyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, file := range c.files {
		total += file.KeyCount
	}
	return total
}

// SearchByGlob returns files whose relative path matches a doublestar pattern.
func (c *Catalog) SearchByGlob(pattern string, maxResults int) ([]*CandidateFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if maxResults <= 0 {
		maxResults = 50
	}

	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []*CandidateFile
	for _, path := range c.sortedPaths {
		if len(results) >= maxResults {
			break
		}
		matched, err := doublestar.Match(pattern, path)
		if err != nil || !matched {
			continue
		}
		results = append(results, c.files[path])
	}
	return results, nil
}

// All returns every file in sorted order.
func (c *Catalog) All() []*CandidateFile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*CandidateFile, 0, len(c.sortedPaths))
	for _, path := range c.sortedPaths {
		result = append(result, c.files[path])
	}
	return result
}

// Clear removes all files.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.files = make(map[string]*CandidateFile)
	c.sortedPaths = make([]string, 0)
}
