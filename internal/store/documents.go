package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"go.uber.org/zap"
)

// CreateDocument validates and persists a new document. A missing ID is
// assigned; timestamps and a default pending status are set. The stored
// revision is written back into doc.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := ValidateDocument(doc); err != nil {
		return err
	}
	adapter, err := s.adapter(CollectionDocuments)
	if err != nil {
		return err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = models.StatusPending
	}
	if doc.Size == 0 {
		doc.Size = int64(len(doc.Content))
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Rev = ""

	rec, err := toRecord(doc)
	if err != nil {
		return err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	doc.Rev = rev
	return nil
}

// GetDocument returns the document with the given id.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	adapter, err := s.adapter(CollectionDocuments)
	if err != nil {
		return nil, err
	}
	rec, err := adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := fromRecord(rec, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument validates and persists an update. doc.Rev must carry the
// current revision or the write fails with ErrConflict. The new revision is
// written back into doc.
func (s *Store) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if err := ValidateDocument(doc); err != nil {
		return err
	}
	adapter, err := s.adapter(CollectionDocuments)
	if err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	rec, err := toRecord(doc)
	if err != nil {
		return err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("update document %s: %w", doc.ID, err)
	}
	doc.Rev = rev
	return nil
}

// DeleteDocument removes the document and cascades to its embeddings: the
// document record goes first (a missing document aborts with ErrNotFound and
// nothing else is touched), then each embedding is dropped from the vector
// index and removed from storage. A mid-cascade failure propagates; see
// DESIGN.md for the partial-failure decision.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	docs, err := s.adapter(CollectionDocuments)
	if err != nil {
		return err
	}
	embeddings, err := s.adapter(CollectionEmbeddings)
	if err != nil {
		return err
	}

	if err := docs.Remove(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	recs, err := embeddings.Find(ctx, storage.Query{
		Selector: map[string]any{"documentId": id},
		Sort:     []storage.SortField{{Field: "chunkIndex"}},
	})
	if err != nil {
		return fmt.Errorf("find embeddings for %s: %w", id, err)
	}
	for _, rec := range recs {
		embID := rec.ID()
		s.index.Remove(embID)
		if err := embeddings.Remove(ctx, embID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete embedding %s: %w", embID, err)
		}
	}
	s.logger.Debug("document deleted",
		zap.String("id", id), zap.Int("embeddings", len(recs)))
	return nil
}

// SearchDocuments translates a plain filter plus sort/limit/skip straight to
// the storage adapter's find.
func (s *Store) SearchDocuments(ctx context.Context, q storage.Query) ([]*models.Document, error) {
	adapter, err := s.adapter(CollectionDocuments)
	if err != nil {
		return nil, err
	}
	recs, err := adapter.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	docs := make([]*models.Document, 0, len(recs))
	for _, rec := range recs {
		var doc models.Document
		if err := fromRecord(rec, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// FindDocumentByHash returns the document with the given content hash, or
// nil when none exists. Used for deduplication.
func (s *Store) FindDocumentByHash(ctx context.Context, hash string) (*models.Document, error) {
	docs, err := s.SearchDocuments(ctx, storage.Query{
		Selector: map[string]any{"hash": hash},
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}
