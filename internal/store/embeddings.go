package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
)

// indexMetadata is the opaque per-entry payload kept in the vector index so
// search hits can be grouped without a storage read.
func indexMetadata(e *models.Embedding) map[string]any {
	return map[string]any{
		"documentId": e.DocumentID,
		"chunkIndex": e.ChunkIndex,
	}
}

// CreateEmbedding validates and persists an embedding, then registers it in
// the vector index. The record and the index entry are created together so
// the pairing invariant holds for every live embedding.
func (s *Store) CreateEmbedding(ctx context.Context, e *models.Embedding) error {
	if err := ValidateEmbedding(e); err != nil {
		return err
	}
	adapter, err := s.adapter(CollectionEmbeddings)
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = models.EmbeddingID(e.DocumentID, e.ChunkIndex)
	}
	if e.Norm == 0 {
		e.Norm = vector.L2Norm(e.Vector)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Rev = ""

	rec, err := toRecord(e)
	if err != nil {
		return err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("create embedding: %w", err)
	}
	e.Rev = rev

	if err := s.index.Add(e.ID, e.Vector, indexMetadata(e)); err != nil {
		// Dimension was validated above, so this only fires on programmer
		// error; undo the write to keep the pairing invariant.
		_ = adapter.Remove(ctx, e.ID)
		return fmt.Errorf("index embedding: %w", err)
	}
	return nil
}

// GetEmbeddingsByDocument returns all embeddings for a document ordered by
// chunk index.
func (s *Store) GetEmbeddingsByDocument(ctx context.Context, documentID string) ([]*models.Embedding, error) {
	adapter, err := s.adapter(CollectionEmbeddings)
	if err != nil {
		return nil, err
	}
	recs, err := adapter.Find(ctx, storage.Query{
		Selector: map[string]any{"documentId": documentID},
		Sort:     []storage.SortField{{Field: "chunkIndex"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Embedding, 0, len(recs))
	for _, rec := range recs {
		var e models.Embedding
		if err := fromRecord(rec, &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, nil
}

// GetEmbedding returns a single embedding record.
func (s *Store) GetEmbedding(ctx context.Context, id string) (*models.Embedding, error) {
	adapter, err := s.adapter(CollectionEmbeddings)
	if err != nil {
		return nil, err
	}
	rec, err := adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var e models.Embedding
	if err := fromRecord(rec, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// VectorSearchOptions bounds a similarity query.
type VectorSearchOptions struct {
	Limit     int
	Threshold float64
}

// VectorSearch runs a cosine-similarity query against the in-memory index
// and hydrates the matching embedding records from storage.
func (s *Store) VectorSearch(ctx context.Context, query []float32, opts VectorSearchOptions) ([]*models.Embedding, []float64, error) {
	if len(query) != models.EmbeddingDimensions {
		return nil, nil, invalid(CollectionEmbeddings, "vector", "dimension mismatch: expected 384")
	}
	if _, err := s.adapter(CollectionEmbeddings); err != nil {
		return nil, nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	hits, err := s.index.Search(query, limit, opts.Threshold)
	if err != nil {
		return nil, nil, err
	}
	embeddings := make([]*models.Embedding, 0, len(hits))
	scores := make([]float64, 0, len(hits))
	for _, hit := range hits {
		e, err := s.GetEmbedding(ctx, hit.ID)
		if err != nil {
			// An index entry without a record means a cascade was interrupted;
			// drop the orphan and keep going.
			s.index.Remove(hit.ID)
			continue
		}
		embeddings = append(embeddings, e)
		scores = append(scores, hit.Similarity)
	}
	return embeddings, scores, nil
}

// RawVectorSearch exposes index hits (id, similarity, metadata) without
// hydration, for callers that overfetch and group themselves.
func (s *Store) RawVectorSearch(query []float32, k int, threshold float64) ([]vector.Result, error) {
	if len(query) != models.EmbeddingDimensions {
		return nil, invalid(CollectionEmbeddings, "vector", "dimension mismatch: expected 384")
	}
	return s.index.Search(query, k, threshold)
}
