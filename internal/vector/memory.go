package vector

import (
	"fmt"
	"sort"
	"sync"
)

type entry struct {
	id       string
	vec      []float32
	norm     float64
	metadata map[string]any
	order    int
}

// Memory is a brute-force in-memory index with precomputed norms. All
// mutations are guarded by a mutex, so concurrent callers cannot lose
// updates.
type Memory struct {
	dimensions int
	mu         sync.RWMutex
	entries    map[string]*entry
	nextOrder  int
}

// NewMemory creates an index for vectors of the given dimension.
func NewMemory(dimensions int) (*Memory, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Memory{
		dimensions: dimensions,
		entries:    make(map[string]*entry),
	}, nil
}

// Add inserts or overwrites the entry for id. An overwrite keeps the
// original insertion order so tie-breaking stays stable.
func (m *Memory) Add(id string, vec []float32, metadata map[string]any) error {
	if len(vec) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	cp := make([]float32, m.dimensions)
	copy(cp, vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.nextOrder
	if prev, ok := m.entries[id]; ok {
		order = prev.order
	} else {
		m.nextOrder++
	}
	m.entries[id] = &entry{
		id:       id,
		vec:      cp,
		norm:     L2Norm(cp),
		metadata: metadata,
		order:    order,
	}
	return nil
}

// Remove deletes the entry for id; a missing id is a no-op.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// Search scores every entry against query by cosine similarity, keeps those
// at or above threshold, and returns the top k sorted by similarity
// descending with ties broken by insertion order.
func (m *Memory) Search(query []float32, k int, threshold float64) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	queryNorm := L2Norm(query)
	type scored struct {
		e   *entry
		sim float64
	}
	candidates := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		sim := CosineSimilarity(query, queryNorm, e.vec, e.norm)
		if sim >= threshold {
			candidates = append(candidates, scored{e: e, sim: sim})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].e.order < candidates[j].e.order
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{
			ID:         candidates[i].e.id,
			Similarity: candidates[i].sim,
			Metadata:   candidates[i].e.metadata,
		}
	}
	return results, nil
}

// BuildIndex recomputes every cached norm. Idempotent.
func (m *Memory) BuildIndex() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		e.norm = L2Norm(e.vec)
	}
}

// Clear empties the index.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
	m.nextOrder = 0
}

// Size returns the number of indexed vectors.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
