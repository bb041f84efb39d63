// Package store implements the collection manager: it owns one storage
// adapter per collection, enforces validation, maintains the vector index,
// and exposes CRUD plus cross-collection cascade logic.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/internal/vector"
	"go.uber.org/zap"
)

// Store is the collection manager. Construct with New and call Initialize
// before any other method.
type Store struct {
	dataDir string
	logger  *zap.Logger
	index   vector.Index

	mu           sync.Mutex
	initializing bool
	initialized  bool
	adapters     map[string]storage.Adapter
	modes        map[string]storage.Mode
	usageProbe   int64
}

// Options configures a Store.
type Options struct {
	// DataDir is the directory holding all collection data.
	DataDir string
	// Logger is optional; a no-op logger is used when nil.
	Logger *zap.Logger
}

// New constructs an uninitialized Store.
func New(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idx, err := vector.NewMemory(models.EmbeddingDimensions)
	if err != nil {
		return nil, err
	}
	return &Store{
		dataDir:  opts.DataDir,
		logger:   logger,
		index:    idx,
		adapters: make(map[string]storage.Adapter),
		modes:    make(map[string]storage.Mode),
	}, nil
}

// Initialize runs the startup sequence: probe storage usage (best-effort),
// open each collection with per-collection fallback, mark the store
// initialized, seed default settings if absent, and rebuild the vector index
// from persisted embeddings. Idempotent: a second call, including one that
// races a call still in flight, is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized || s.initializing {
		s.mu.Unlock()
		return nil
	}
	s.initializing = true
	s.mu.Unlock()

	if err := s.initialize(ctx); err != nil {
		// Release any collections opened before the failure so a retrying
		// Initialize does not reopen on top of live handles.
		s.mu.Lock()
		for collection, adapter := range s.adapters {
			if cerr := adapter.Close(); cerr != nil {
				s.logger.Warn("closing partially opened collection",
					zap.String("collection", collection), zap.Error(cerr))
			}
			delete(s.adapters, collection)
			delete(s.modes, collection)
		}
		s.initializing = false
		s.initialized = false
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	return nil
}

func (s *Store) initialize(ctx context.Context) error {
	// Best-effort quota probe; failure is non-fatal.
	if usage, err := storage.DiskUsageBytes(s.dataDir); err == nil {
		s.usageProbe = usage
	} else {
		s.logger.Warn("storage usage probe failed", zap.Error(err))
	}

	for _, collection := range collections {
		adapter, mode, err := storage.Open(ctx, s.dataDir, collection, s.logger)
		if err != nil {
			return fmt.Errorf("open collection %s: %w", collection, err)
		}
		for _, spec := range indexSpecs[collection] {
			if err := adapter.CreateIndex(ctx, spec); err != nil {
				return fmt.Errorf("create index %s: %w", spec.Name, err)
			}
		}
		s.mu.Lock()
		s.adapters[collection] = adapter
		s.modes[collection] = mode
		s.mu.Unlock()
		s.logger.Debug("collection opened",
			zap.String("collection", collection), zap.String("mode", string(mode)))
	}

	// The rebuild below calls back into the store, so the initialized flag
	// must be set first.
	s.mu.Lock()
	s.initialized = true
	s.initializing = false
	s.mu.Unlock()

	if err := s.seedSettings(ctx); err != nil {
		return err
	}
	if err := s.rebuildVectorIndex(ctx); err != nil {
		return err
	}
	s.logger.Info("store initialized",
		zap.String("data_dir", s.dataDir), zap.Int("vector_index_size", s.index.Size()))
	return nil
}

// adapter returns the adapter for a collection, failing when the store is
// not initialized.
func (s *Store) adapter(collection string) (storage.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, fmt.Errorf("%w: store not initialized, call Initialize first", ErrInitialization)
	}
	a, ok := s.adapters[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
	return a, nil
}

// rebuildVectorIndex clears the index and repopulates it from every persisted
// embedding, skipping records without a vector.
func (s *Store) rebuildVectorIndex(ctx context.Context) error {
	adapter, err := s.adapter(CollectionEmbeddings)
	if err != nil {
		return err
	}
	s.index.Clear()
	recs, err := adapter.AllRecords(ctx, true)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}
	for _, rec := range recs {
		var emb models.Embedding
		if err := fromRecord(rec, &emb); err != nil {
			s.logger.Warn("skipping undecodable embedding", zap.String("id", rec.ID()), zap.Error(err))
			continue
		}
		if len(emb.Vector) == 0 {
			continue
		}
		if err := s.index.Add(emb.ID, emb.Vector, indexMetadata(&emb)); err != nil {
			s.logger.Warn("skipping unindexable embedding", zap.String("id", emb.ID), zap.Error(err))
		}
	}
	s.index.BuildIndex()
	return nil
}

// VectorIndex exposes the owned index to the RAG layer.
func (s *Store) VectorIndex() vector.Index {
	return s.index
}

// Compact compacts every collection.
func (s *Store) Compact(ctx context.Context) error {
	for _, collection := range collections {
		adapter, err := s.adapter(collection)
		if err != nil {
			return err
		}
		if err := adapter.Compact(ctx); err != nil {
			return fmt.Errorf("compact %s: %w", collection, err)
		}
	}
	return nil
}

// Destroy removes all persisted data and empties the vector index. The store
// must be re-created and re-initialized afterwards.
func (s *Store) Destroy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("%w: store not initialized, call Initialize first", ErrInitialization)
	}
	for _, collection := range collections {
		if err := s.adapters[collection].Destroy(ctx); err != nil {
			return fmt.Errorf("destroy %s: %w", collection, err)
		}
	}
	s.index.Clear()
	s.initialized = false
	s.adapters = make(map[string]storage.Adapter)
	s.modes = make(map[string]storage.Mode)
	return nil
}

// Close closes every adapter. The store can be re-initialized afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, collection := range collections {
		if a, ok := s.adapters[collection]; ok {
			if err := a.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	s.initialized = false
	s.adapters = make(map[string]storage.Adapter)
	s.modes = make(map[string]storage.Mode)
	return firstErr
}
