// Package vector provides the in-memory cosine-similarity index over
// embedding vectors. The index is rebuilt from persisted embeddings on
// startup and never persisted itself.
package vector

// Result is a single similarity search hit.
type Result struct {
	ID         string
	Similarity float64
	Metadata   map[string]any
}

// Index holds vectors by identifier and answers top-k cosine-similarity
// queries. Implementations must tolerate concurrent callers.
type Index interface {
	// Add inserts or overwrites the entry for id.
	Add(id string, vec []float32, metadata map[string]any) error
	// Remove deletes the entry for id; absent ids are a no-op.
	Remove(id string)
	// Search returns up to k entries with similarity >= threshold, sorted by
	// similarity descending, ties broken by insertion order.
	Search(query []float32, k int, threshold float64) ([]Result, error)
	// BuildIndex recomputes cached norms; safe to call repeatedly.
	BuildIndex()
	// Clear empties the index.
	Clear()
	// Size returns the number of indexed vectors.
	Size() int
}
