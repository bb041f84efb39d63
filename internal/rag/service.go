package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/store"
	"go.uber.org/zap"
)

// ErrNoEmbedder is returned by IngestDocument when no embedder is configured;
// callers must then supply vectors through AddEmbeddings themselves.
var ErrNoEmbedder = errors.New("no embedder configured")

// candidateFactor is how many times more index hits than requested documents
// are fetched, so per-document deduplication still fills the result set.
const candidateFactor = 3

// chunksPerDocument caps how many chunks of one document appear in a result.
const chunksPerDocument = 3

// Service orchestrates chunking, embedding association, and retrieval on top
// of the collection manager.
type Service struct {
	store    *store.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEmbedder sets a local embedder used by IngestDocument.
func WithEmbedder(e embedding.Embedder) ServiceOption {
	return func(s *Service) { s.embedder = e }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a RAG service over the given store.
func NewService(st *store.Store, opts ...ServiceOption) *Service {
	s := &Service{store: st, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ContentHash returns the dedup hash for document content. Stable across
// calls for identical input.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// EmbedQuery embeds a search query with the configured embedder.
// Returns ErrNoEmbedder when the service has none.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// AddDocument chunks and stores a document. When a document with the same
// content hash already exists it is returned as-is instead of creating a
// duplicate.
func (s *Service) AddDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	hash := ContentHash(input.Content)
	existing, err := s.store.FindDocumentByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Debug("duplicate document content, returning existing",
			zap.String("id", existing.ID), zap.String("hash", hash))
		return existing, nil
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	chunker := NewChunker(settings.RAG.ChunkSize, settings.RAG.ChunkOverlap)
	chunks := chunker.Chunk(input.Content)

	contentType := input.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	doc := &models.Document{
		Title:       input.Title,
		Content:     input.Content,
		ContentType: contentType,
		Size:        int64(len(input.Content)),
		Chunks:      Texts(chunks),
		ChunkSize:   settings.RAG.ChunkSize,
		Hash:        hash,
		Metadata:    input.Metadata,
		Status:      models.StatusPending,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Debug("document added",
		zap.String("id", doc.ID), zap.Int("chunks", len(doc.Chunks)))
	return doc, nil
}

// AddEmbeddings associates caller-supplied vectors, one per chunk, with a
// stored document: it persists one embedding per chunk with offset and
// token-estimate metadata, then marks the document indexed and completed.
func (s *Service) AddEmbeddings(ctx context.Context, documentID string, vectors [][]float32, modelName string) error {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if len(vectors) != len(doc.Chunks) {
		return &store.ValidationError{
			Collection: "embeddings",
			Field:      "vectors",
			Reason:     fmt.Sprintf("expected %d vectors (one per chunk), got %d", len(doc.Chunks), len(vectors)),
		}
	}

	doc.Status = models.StatusProcessing
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return err
	}

	offset := 0
	for i, chunkText := range doc.Chunks {
		start, end := locateChunk(doc.Content, chunkText, offset)
		emb := &models.Embedding{
			ID:         models.EmbeddingID(doc.ID, i),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       chunkText,
			Vector:     vectors[i],
			Metadata: models.EmbeddingMetadata{
				StartOffset:   start,
				EndOffset:     end,
				TokenEstimate: EstimateTokens(chunkText),
			},
			Model: modelName,
		}
		if err := s.store.CreateEmbedding(ctx, emb); err != nil {
			doc.Status = models.StatusError
			if uerr := s.store.UpdateDocument(ctx, doc); uerr != nil {
				s.logger.Warn("failed to mark document errored", zap.String("id", doc.ID), zap.Error(uerr))
			}
			return fmt.Errorf("embed chunk %d of %s: %w", i, doc.ID, err)
		}
		if start >= 0 {
			offset = start + 1
		}
	}

	doc.Indexed = true
	doc.Status = models.StatusCompleted
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return err
	}
	s.logger.Debug("document indexed",
		zap.String("id", doc.ID), zap.Int("embeddings", len(vectors)), zap.String("model", modelName))
	return nil
}

// locateChunk finds the chunk's character offsets in content, scanning from
// the given position so overlapping chunks resolve in order. Returns (-1, -1)
// when the text cannot be located.
func locateChunk(content, chunk string, from int) (int, int) {
	if from > len(content) {
		from = len(content)
	}
	idx := strings.Index(content[from:], chunk)
	if idx < 0 {
		idx = strings.Index(content, chunk)
		if idx < 0 {
			return -1, -1
		}
		return idx, idx + len(chunk)
	}
	return from + idx, from + idx + len(chunk)
}

// IngestDocument runs the full pipeline: add the document, embed every chunk
// with the configured embedder, and associate the vectors. Without an
// embedder it fails with ErrNoEmbedder after storing the document.
func (s *Service) IngestDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error) {
	doc, err := s.AddDocument(ctx, input)
	if err != nil {
		return nil, err
	}
	if doc.Indexed {
		return doc, nil
	}
	if s.embedder == nil {
		return doc, ErrNoEmbedder
	}
	vectors, err := s.embedder.EmbedBatch(ctx, doc.Chunks)
	if err != nil {
		return doc, fmt.Errorf("embed chunks: %w", err)
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return doc, err
	}
	if err := s.AddEmbeddings(ctx, doc.ID, vectors, settings.RAG.EmbeddingModel); err != nil {
		return doc, err
	}
	return s.store.GetDocument(ctx, doc.ID)
}
