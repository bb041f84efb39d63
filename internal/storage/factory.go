package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Mode identifies which backend a collection ended up on.
type Mode string

const (
	// ModeSQLite is the capable backend.
	ModeSQLite Mode = "sqlite"
	// ModeDisk is the minimal fallback backend.
	ModeDisk Mode = "disk"
)

// Open selects a backend for one collection. The SQLite backend is attempted
// first and must pass a write/read/remove self-test; on any failure the
// collection falls back to flat files on disk. logger may be nil.
func Open(ctx context.Context, dataDir, collection string, logger *zap.Logger) (Adapter, Mode, error) {
	sqlitePath := filepath.Join(dataDir, collection+".db")
	adapter, err := NewSQLiteAdapter(sqlitePath)
	if err == nil {
		if err = selfTest(ctx, adapter); err == nil {
			return adapter, ModeSQLite, nil
		}
		_ = adapter.Close()
	}
	if logger != nil {
		logger.Warn("sqlite backend unavailable, falling back to disk",
			zap.String("collection", collection), zap.Error(err))
	}

	disk, diskErr := NewDiskAdapter(filepath.Join(dataDir, collection))
	if diskErr != nil {
		return nil, "", fmt.Errorf("open collection %s: sqlite failed (%v) and disk fallback failed: %w", collection, err, diskErr)
	}
	return disk, ModeDisk, nil
}

// selfTest proves the backend can complete a full write/read/remove cycle
// before the collection is trusted to it.
func selfTest(ctx context.Context, a Adapter) error {
	const probeID = "_storage_probe"
	// A stale probe from a crashed run would fail the fresh write below.
	if err := a.Remove(ctx, probeID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("self-test cleanup: %w", err)
	}
	rev, err := a.Put(ctx, Record{"_id": probeID, "probe": true})
	if err != nil {
		return fmt.Errorf("self-test write: %w", err)
	}
	rec, err := a.Get(ctx, probeID)
	if err != nil {
		return fmt.Errorf("self-test read: %w", err)
	}
	if rec.Rev() != rev {
		return fmt.Errorf("self-test read returned rev %q, wrote %q", rec.Rev(), rev)
	}
	if err := a.Remove(ctx, probeID); err != nil {
		return fmt.Errorf("self-test remove: %w", err)
	}
	return nil
}
