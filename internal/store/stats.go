package store

import (
	"context"
	"fmt"

	"github.com/hyperjump/kioku/internal/storage"
)

// CollectionStats reports one collection's size and the backend it runs on.
type CollectionStats struct {
	Records   int64        `json:"records"`
	SizeBytes int64        `json:"sizeBytes"`
	Mode      storage.Mode `json:"mode"`
}

// StorageStats is the degraded-mode signal plus per-collection sizes.
type StorageStats struct {
	Initialized     bool                       `json:"initialized"`
	Degraded        bool                       `json:"degraded"`
	UsageBytes      int64                      `json:"usageBytes"`
	VectorIndexSize int                        `json:"vectorIndexSize"`
	Collections     map[string]CollectionStats `json:"collections"`
}

// GetStorageStats reports counts, sizes, and backend modes. Degraded is true
// when any collection fell back to the minimal backend.
func (s *Store) GetStorageStats(ctx context.Context) (*StorageStats, error) {
	stats := &StorageStats{
		Collections: make(map[string]CollectionStats, len(collections)),
	}
	s.mu.Lock()
	stats.Initialized = s.initialized
	stats.UsageBytes = s.usageProbe
	s.mu.Unlock()
	if !stats.Initialized {
		return stats, nil
	}
	stats.VectorIndexSize = s.index.Size()

	for _, collection := range collections {
		adapter, err := s.adapter(collection)
		if err != nil {
			return nil, err
		}
		info, err := adapter.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("info for %s: %w", collection, err)
		}
		s.mu.Lock()
		mode := s.modes[collection]
		s.mu.Unlock()
		if mode == storage.ModeDisk {
			stats.Degraded = true
		}
		stats.Collections[collection] = CollectionStats{
			Records:   info.Records,
			SizeBytes: info.SizeBytes,
			Mode:      mode,
		}
	}
	return stats, nil
}
