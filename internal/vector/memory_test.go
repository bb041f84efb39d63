package vector

import (
	"math"
	"testing"
)

func TestMemory_addAndSearch(t *testing.T) {
	m, err := NewMemory(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Add("x", []float32{1, 0, 0}, map[string]any{"documentId": "d1"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Add("y", []float32{0, 1, 0}, nil); err != nil {
		t.Fatal(err)
	}

	results, err := m.Search([]float32{1, 0, 0}, 10, 0.0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].ID != "x" {
		t.Errorf("best match: %s", results[0].ID)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-9 {
		t.Errorf("identical vector similarity: %v", results[0].Similarity)
	}
	if results[0].Metadata["documentId"] != "d1" {
		t.Errorf("metadata: %v", results[0].Metadata)
	}
}

func TestMemory_dimensionMismatch(t *testing.T) {
	m, _ := NewMemory(3)
	if err := m.Add("x", []float32{1, 2}, nil); err == nil {
		t.Error("Add with wrong dimension should fail")
	}
	if _, err := m.Search([]float32{1, 2}, 5, 0); err == nil {
		t.Error("Search with wrong dimension should fail")
	}
}

func TestMemory_thresholdFilters(t *testing.T) {
	m, _ := NewMemory(2)
	_ = m.Add("close", []float32{1, 0}, nil)
	_ = m.Add("far", []float32{0, 1}, nil) // orthogonal, similarity 0

	results, err := m.Search([]float32{1, 0}, 10, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "close" {
		t.Errorf("got %v", results)
	}
}

func TestMemory_tieBreakByInsertionOrder(t *testing.T) {
	m, _ := NewMemory(2)
	// Same vector twice: identical similarity, earlier insertion wins.
	_ = m.Add("second", []float32{1, 1}, nil)
	_ = m.Add("first-equal", []float32{1, 1}, nil)

	results, err := m.Search([]float32{1, 1}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d", len(results))
	}
	if results[0].ID != "second" {
		t.Errorf("insertion order tie-break: got %s first", results[0].ID)
	}
}

func TestMemory_overwriteKeepsOrder(t *testing.T) {
	m, _ := NewMemory(2)
	_ = m.Add("a", []float32{1, 0}, nil)
	_ = m.Add("b", []float32{1, 0}, nil)
	// Overwriting a must not push it behind b in tie-breaks.
	_ = m.Add("a", []float32{1, 0}, nil)

	results, err := m.Search([]float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "a" {
		t.Errorf("overwrite changed insertion order: %s first", results[0].ID)
	}
}

func TestMemory_removeAndClear(t *testing.T) {
	m, _ := NewMemory(2)
	_ = m.Add("a", []float32{1, 0}, nil)
	_ = m.Add("b", []float32{0, 1}, nil)

	m.Remove("a")
	m.Remove("a") // missing id is a no-op
	if m.Size() != 1 {
		t.Errorf("size after remove: %d", m.Size())
	}

	m.Clear()
	if m.Size() != 0 {
		t.Errorf("size after clear: %d", m.Size())
	}
	results, err := m.Search([]float32{1, 0}, 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("cleared index returned %v", results)
	}
}

func TestMemory_kLimitsResults(t *testing.T) {
	m, _ := NewMemory(2)
	_ = m.Add("a", []float32{1, 0}, nil)
	_ = m.Add("b", []float32{1, 0.1}, nil)
	_ = m.Add("c", []float32{1, 0.2}, nil)

	results, err := m.Search([]float32{1, 0}, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("k=2 returned %d", len(results))
	}

	results, err = m.Search([]float32{1, 0}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Errorf("k=0 should return nothing, got %v", results)
	}
}

func TestCosineSimilarity_zeroNorm(t *testing.T) {
	zero := []float32{0, 0}
	unit := []float32{1, 0}
	if sim := CosineSimilarity(zero, L2Norm(zero), unit, L2Norm(unit)); sim != 0 {
		t.Errorf("zero vector similarity: %v", sim)
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); math.Abs(got-5) > 1e-9 {
		t.Errorf("got %v", got)
	}
}
