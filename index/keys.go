package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/lexandro/envstamp/envfile"
)

// KeyEntry is one KEY=VALUE line of a cataloged env file.
type KeyEntry struct {
	RelativePath string
	Line         int
	Key          string
	Value        string
	Category     envfile.Category
}

// KeyIndex provides search over env keys and values using a Bleve in-memory index.
type KeyIndex struct {
	mu      sync.RWMutex
	index   bleve.Index
	entries map[string]KeyEntry // key: document id
	byFile  map[string][]string // relative path -> document ids
}

// NewKeyIndex creates an empty in-memory key index.
func NewKeyIndex() (*KeyIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}

	return &KeyIndex{
		index:   bleveIndex,
		entries: make(map[string]KeyEntry),
		byFile:  make(map[string][]string),
	}, nil
}

// keyDocument is the document structure stored in Bleve.
// Words holds the key split on underscores plus the value, so that
// "build" finds APP_BUILD.
type keyDocument struct {
	Key      string `json:"key"`
	Words    string `json:"words"`
	Path     string `json:"path"`
	Category string `json:"category"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	keyFieldMapping := bleve.NewKeywordFieldMapping()
	keyFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("key", keyFieldMapping)

	wordsFieldMapping := bleve.NewTextFieldMapping()
	wordsFieldMapping.Store = false
	wordsFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("words", wordsFieldMapping)

	pathFieldMapping := bleve.NewKeywordFieldMapping()
	pathFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	categoryFieldMapping := bleve.NewKeywordFieldMapping()
	categoryFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func documentID(relativePath string, line int) string {
	return fmt.Sprintf("%s#%d", relativePath, line)
}

// IndexFile replaces all entries of relativePath with the KEY=VALUE lines of content.
// It returns the number of entries indexed.
func (ki *KeyIndex) IndexFile(relativePath string, content string) (int, error) {
	ki.mu.Lock()
	defer ki.mu.Unlock()

	if err := ki.removeLocked(relativePath); err != nil {
		return 0, err
	}

	lines := envfile.ParseContent(content)
	batch := ki.index.NewBatch()
	pending := make(map[string]KeyEntry, len(lines))
	ids := make([]string, 0, len(lines))

	for _, line := range lines {
		key := envfile.NormalizeKey(line.Key)
		entry := KeyEntry{
			RelativePath: relativePath,
			Line:         line.Num,
			Key:          key,
			Value:        line.Value,
			Category:     envfile.Classify(key),
		}
		id := documentID(relativePath, line.Num)
		doc := keyDocument{
			Key:      key,
			Words:    strings.ReplaceAll(key, "_", " ") + " " + line.Value,
			Path:     relativePath,
			Category: entry.Category.String(),
		}
		if err := batch.Index(id, doc); err != nil {
			return 0, fmt.Errorf("indexing %s: %w", id, err)
		}
		pending[id] = entry
		ids = append(ids, id)
	}

	if err := ki.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("indexing file %s: %w", relativePath, err)
	}
	for id, entry := range pending {
		ki.entries[id] = entry
	}
	ki.byFile[relativePath] = ids
	return len(ids), nil
}

// RemoveFile drops every entry of relativePath.
func (ki *KeyIndex) RemoveFile(relativePath string) error {
	ki.mu.Lock()
	defer ki.mu.Unlock()
	return ki.removeLocked(relativePath)
}

func (ki *KeyIndex) removeLocked(relativePath string) error {
	ids, ok := ki.byFile[relativePath]
	if !ok {
		return nil
	}

	batch := ki.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
		delete(ki.entries, id)
	}
	delete(ki.byFile, relativePath)

	if err := ki.index.Batch(batch); err != nil {
		return fmt.Errorf("removing file %s from index: %w", relativePath, err)
	}
	return nil
}

// KeySearchOptions configures a key search.
type KeySearchOptions struct {
	Query      string
	Category   string // "timestamp", "build", "other" or empty for all
	MaxResults int
}

// Search finds entries by key or value.
// Query format:
//   - Plain text: all words must match key parts or value
//   - "quoted text": phrase match
//   - /regex/: regular expression over the whole key
//   - PREFIX*: keys starting with PREFIX
func (ki *KeyIndex) Search(options KeySearchOptions) ([]KeyEntry, int, error) {
	ki.mu.RLock()
	defer ki.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = 50
	}

	var bleveQuery query.Query = buildQuery(options.Query)
	if options.Category != "" {
		categoryQuery := bleve.NewTermQuery(options.Category)
		categoryQuery.SetField("category")
		bleveQuery = bleve.NewConjunctionQuery(bleveQuery, categoryQuery)
	}

	searchRequest := bleve.NewSearchRequest(bleveQuery)
	searchRequest.Size = options.MaxResults

	searchResults, err := ki.index.Search(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	results := make([]KeyEntry, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		if entry, ok := ki.entries[hit.ID]; ok {
			results = append(results, entry)
		}
	}
	return results, int(searchResults.Total), nil
}

// buildQuery parses the query string into a Bleve query.
func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/") && len(queryString) > 2 {
		q := bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
		q.SetField("key")
		return q
	}

	if strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"") && len(queryString) > 2 {
		q := bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
		q.SetField("words")
		return q
	}

	if strings.HasSuffix(queryString, "*") && len(queryString) > 1 && !strings.ContainsAny(queryString, " \t") {
		q := bleve.NewPrefixQuery(strings.TrimSuffix(queryString, "*"))
		q.SetField("key")
		return q
	}

	// Key parts are indexed as separate words, so APP_BUILD must match both.
	q := bleve.NewMatchQuery(strings.ReplaceAll(queryString, "_", " "))
	q.SetField("words")
	q.SetOperator(query.MatchQueryOperatorAnd)
	return q
}

// DocumentCount returns the number of entries in the Bleve index.
func (ki *KeyIndex) DocumentCount() uint64 {
	ki.mu.RLock()
	defer ki.mu.RUnlock()
	count, _ := ki.index.DocCount()
	return count
}

// Close closes the Bleve index.
func (ki *KeyIndex) Close() error {
	ki.mu.Lock()
	defer ki.mu.Unlock()
	return ki.index.Close()
}

// Clear removes all entries and recreates the index.
func (ki *KeyIndex) Clear() error {
	ki.mu.Lock()
	defer ki.mu.Unlock()

	if err := ki.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}

	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating new index: %w", err)
	}

	ki.index = newIndex
	ki.entries = make(map[string]KeyEntry)
	ki.byFile = make(map[string][]string)
	return nil
}
