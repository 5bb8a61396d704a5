package index

import (
	"testing"

	"github.com/lexandro/envstamp/envfile"
)

const sampleEnv = `# service metadata
APP_NAME=billing
APP_BUILD=42
LAST_MODIFIED=2026-01-01
export BUILD_ID=v7-rc
DATABASE_URL=postgres://localhost/billing
`

func newTestKeyIndex(t *testing.T) *KeyIndex {
	t.Helper()
	ki, err := NewKeyIndex()
	if err != nil {
		t.Fatalf("failed to create key index: %v", err)
	}
	t.Cleanup(func() { ki.Close() })
	return ki
}

func Test_KeyIndex_IndexFile(t *testing.T) {
	ki := newTestKeyIndex(t)

	count, err := ki.IndexFile(".env", sampleEnv)
	if err != nil {
		t.Fatalf("failed to index file: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 entries, got %d", count)
	}
	if ki.DocumentCount() != 5 {
		t.Errorf("expected 5 documents, got %d", ki.DocumentCount())
	}
}

func Test_KeyIndex_WordSearch(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	results, total, err := ki.Search(KeySearchOptions{Query: "billing"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("expected 2 matches for billing, got total=%d len=%d", total, len(results))
	}
}

func Test_KeyIndex_FullKeyWordSearch(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	results, _, err := ki.Search(KeySearchOptions{Query: "APP_BUILD"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Key != "APP_BUILD" {
		t.Fatalf("expected only APP_BUILD, got %+v", results)
	}
}

func Test_KeyIndex_CategoryFilter(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	results, _, err := ki.Search(KeySearchOptions{Query: "build", Category: "build"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 build keys, got %d", len(results))
	}
	for _, entry := range results {
		if entry.Category != envfile.CategoryBuild {
			t.Errorf("expected build category, got %s for %s", entry.Category, entry.Key)
		}
	}
}

func Test_KeyIndex_PrefixSearch(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	results, _, err := ki.Search(KeySearchOptions{Query: "APP_*"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 APP_ keys, got %d", len(results))
	}
}

func Test_KeyIndex_RegexSearch(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	results, _, err := ki.Search(KeySearchOptions{Query: "/.*_MODIFIED/"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	entry := results[0]
	if entry.Key != "LAST_MODIFIED" || entry.Line != 4 || entry.Value != "2026-01-01" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func Test_KeyIndex_ExportPrefixIsNormalized(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	results, _, err := ki.Search(KeySearchOptions{Query: "BUILD_*"})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(results) != 1 || results[0].Key != "BUILD_ID" {
		t.Fatalf("expected BUILD_ID, got %+v", results)
	}
}

func Test_KeyIndex_ReindexReplacesEntries(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)
	ki.IndexFile(".env", "PORT=8080\n")

	if ki.DocumentCount() != 1 {
		t.Fatalf("expected 1 document after reindex, got %d", ki.DocumentCount())
	}
	results, _, _ := ki.Search(KeySearchOptions{Query: "billing"})
	if len(results) != 0 {
		t.Errorf("expected stale entries to be gone, got %d", len(results))
	}
}

func Test_KeyIndex_RemoveFile(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)
	ki.IndexFile("web/.env", "WEB_BUILD=1\n")

	if err := ki.RemoveFile(".env"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if ki.DocumentCount() != 1 {
		t.Errorf("expected 1 document, got %d", ki.DocumentCount())
	}
	if err := ki.RemoveFile("missing/.env"); err != nil {
		t.Errorf("expected removing unknown file to be a no-op, got %v", err)
	}
}

func Test_KeyIndex_Clear(t *testing.T) {
	ki := newTestKeyIndex(t)
	ki.IndexFile(".env", sampleEnv)

	if err := ki.Clear(); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	if ki.DocumentCount() != 0 {
		t.Errorf("expected empty index, got %d", ki.DocumentCount())
	}
}

func Test_KeyIndex_IndexFileFailureKeepsNoEntries(t *testing.T) {
	ki, err := NewKeyIndex()
	if err != nil {
		t.Fatalf("failed to create key index: %v", err)
	}
	ki.Close()

	if _, err := ki.IndexFile(".env", sampleEnv); err == nil {
		t.Fatal("expected an error indexing into a closed index")
	}
	if len(ki.entries) != 0 {
		t.Errorf("expected no entries after a failed batch, got %d", len(ki.entries))
	}
	if _, ok := ki.byFile[".env"]; ok {
		t.Error("expected no file record after a failed batch")
	}
}
