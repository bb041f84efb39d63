package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBleveIndex_indexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := []*models.Document{
		{ID: "a", Title: "Meeting notes", Content: "Quarterly planning discussion about the roadmap"},
		{ID: "b", Title: "Recipe", Content: "Flour, eggs, and sugar for the cake"},
	}
	for _, d := range docs {
		if err := idx.Index(ctx, d); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	results, err := idx.Search(ctx, "roadmap", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Errorf("got %v", results)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d", count)
	}
}

func TestBleveIndex_titleBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// "planning" appears in a's title and b's content.
	if err := idx.Index(ctx, &models.Document{ID: "a", Title: "Planning", Content: "Other text entirely"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, &models.Document{ID: "b", Title: "Misc", Content: "Some planning material"}); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(ctx, "planning", 10, &SearchOptions{TitleBoost: 5.0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("title match should rank first, got %s", results[0].ID)
	}
}

func TestBleveIndex_delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, &models.Document{ID: "a", Title: "t", Content: "unique searchable phrase"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := idx.Search(ctx, "searchable", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("deleted doc still returned: %v", results)
	}
}

func TestNewBleveIndex_reopensExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx.Index(ctx, &models.Document{ID: "a", Title: "t", Content: "persisted content"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	results, err := reopened.Search(ctx, "persisted", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen", len(results))
	}
}
