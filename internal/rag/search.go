package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// SearchOptions bounds a semantic search. Zero values fall back to the
// persisted RAG settings.
type SearchOptions struct {
	Limit     int
	Threshold float64
}

// ChunkMatch is one retrieved chunk of a result document.
type ChunkMatch struct {
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// SearchResult is one source document with its best-scoring chunks.
type SearchResult struct {
	DocumentID string       `json:"documentId"`
	Title      string       `json:"title"`
	Score      float64      `json:"score"`
	Chunks     []ChunkMatch `json:"chunks"`
}

// SemanticSearch retrieves the documents most similar to the query vector.
// It overfetches candidates from the vector index, groups them by owning
// document keeping each document's best chunks, and returns at most limit
// documents ordered by their best score. The query string is carried for
// logging only; similarity is computed against queryVector.
func (s *Service) SemanticSearch(ctx context.Context, query string, queryVector []float32, opts SearchOptions) ([]SearchResult, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = settings.RAG.MaxResults
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = settings.RAG.SimilarityThreshold
	}

	hits, err := s.store.RawVectorSearch(queryVector, limit*candidateFactor, threshold)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("semantic search",
		zap.String("query", query), zap.Int("candidates", len(hits)), zap.Float64("threshold", threshold))

	// Hits arrive sorted by similarity, so the first hit for a document is
	// its best chunk and group order is document rank order.
	grouped := make(map[string]*SearchResult)
	var order []string
	for _, hit := range hits {
		docID, _ := hit.Metadata["documentId"].(string)
		if docID == "" {
			continue
		}
		res, ok := grouped[docID]
		if !ok {
			res = &SearchResult{DocumentID: docID, Score: hit.Similarity}
			grouped[docID] = res
			order = append(order, docID)
		}
		if len(res.Chunks) >= chunksPerDocument {
			continue
		}
		emb, err := s.store.GetEmbedding(ctx, hit.ID)
		if err != nil {
			continue
		}
		res.Chunks = append(res.Chunks, ChunkMatch{
			ChunkIndex: emb.ChunkIndex,
			Text:       emb.Text,
			Similarity: hit.Similarity,
		})
	}

	results := make([]SearchResult, 0, limit)
	for _, docID := range order {
		if len(results) >= limit {
			break
		}
		res := grouped[docID]
		if len(res.Chunks) == 0 {
			continue
		}
		doc, err := s.store.GetDocument(ctx, docID)
		if err != nil {
			// Document deleted between indexing and hydration; skip it.
			continue
		}
		res.Title = doc.Title
		results = append(results, *res)
	}
	return results, nil
}

// Context formats the top search results into a single prompt-ready string:
// a numbered source reference per document followed by its chunk texts.
// Returns "" when nothing clears the threshold.
func (s *Service) Context(ctx context.Context, query string, queryVector []float32, opts SearchOptions) (string, error) {
	results, err := s.SemanticSearch(ctx, query, queryVector, opts)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("Relevant context from your documents:\n\n")
	for i, res := range results {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, res.Title)
		for _, ch := range res.Chunks {
			sb.WriteString(ch.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}
