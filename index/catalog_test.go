package index

import (
	"testing"
	"time"
)

func testFile(relativePath string, keys int) *CandidateFile {
	return &CandidateFile{
		Path:         "/project/" + relativePath,
		RelativePath: relativePath,
		SizeBytes:    64,
		ModTime:      time.Now(),
		LineCount:    keys + 1,
		KeyCount:     keys,
	}
}

func Test_Catalog_AddAndGet(t *testing.T) {
	c := NewCatalog()
	c.Add(testFile("api/.env", 3))

	file := c.Get("api/.env")
	if file == nil {
		t.Fatal("expected file to be found")
	}
	if file.KeyCount != 3 {
		t.Errorf("expected 3 keys, got %d", file.KeyCount)
	}
	if c.Get(`api\.env`) == nil {
		t.Error("expected backslash path to be normalized")
	}
}

func Test_Catalog_AddReplacesExisting(t *testing.T) {
	c := NewCatalog()
	c.Add(testFile(".env", 1))
	c.Add(testFile(".env", 5))

	if c.Count() != 1 {
		t.Fatalf("expected 1 file, got %d", c.Count())
	}
	if c.KeyCount() != 5 {
		t.Errorf("expected key count 5, got %d", c.KeyCount())
	}
}

func Test_Catalog_Remove(t *testing.T) {
	c := NewCatalog()
	c.Add(testFile(".env", 1))
	c.Add(testFile("web/.env", 2))

	c.Remove(".env")
	c.Remove("missing/.env")

	if c.Count() != 1 {
		t.Fatalf("expected 1 file after remove, got %d", c.Count())
	}
	all := c.All()
	if len(all) != 1 || all[0].RelativePath != "web/.env" {
		t.Errorf("expected only web/.env to remain, got %v", all)
	}
}

func Test_Catalog_SearchByGlob(t *testing.T) {
	c := NewCatalog()
	c.Add(testFile(".env", 1))
	c.Add(testFile("api/.env.production", 1))
	c.Add(testFile("web/.env", 1))

	results, err := c.SearchByGlob("**/.env", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RelativePath != ".env" || results[1].RelativePath != "web/.env" {
		t.Errorf("unexpected results order: %s, %s", results[0].RelativePath, results[1].RelativePath)
	}

	results, err = c.SearchByGlob("**/.env*", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected maxResults to cap at 1, got %d", len(results))
	}
}

func Test_Catalog_SearchByGlob_InvalidPattern(t *testing.T) {
	c := NewCatalog()
	if _, err := c.SearchByGlob("[", 10); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func Test_Catalog_Clear(t *testing.T) {
	c := NewCatalog()
	c.Add(testFile(".env", 1))
	c.Clear()

	if c.Count() != 0 {
		t.Errorf("expected empty catalog, got %d", c.Count())
	}
}
