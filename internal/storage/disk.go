package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DiskAdapter is the minimal fallback backend: one JSON file per record in a
// flat directory, enumerated and scanned linearly. It has no indexes and
// treats corrupt payloads as not-found, discarding the corrupt entry.
type DiskAdapter struct {
	dir string
	mu  sync.Mutex
}

// NewDiskAdapter creates the collection directory at dir if needed.
func NewDiskAdapter(dir string) (*DiskAdapter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DiskAdapter{dir: dir}, nil
}

const recordExt = ".json"

// recordPath encodes the id so any identifier maps to a safe flat filename.
func (d *DiskAdapter) recordPath(id string) string {
	return filepath.Join(d.dir, base64.RawURLEncoding.EncodeToString([]byte(id))+recordExt)
}

// Get returns the record, discarding and reporting NotFound on corruption.
func (d *DiskAdapter) Get(ctx context.Context, id string) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(id)
}

// read loads a record without locking; callers hold d.mu.
func (d *DiskAdapter) read(id string) (Record, error) {
	path := d.recordPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s: corrupt payload discarded", ErrNotFound, id)
	}
	return rec, nil
}

// Put persists rec after the revision check against the stored copy.
func (d *DiskAdapter) Put(ctx context.Context, rec Record) (string, error) {
	id := rec.ID()
	if id == "" {
		return "", fmt.Errorf("record has no _id")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var storedRev string
	stored, err := d.read(id)
	if err == nil {
		storedRev = stored.Rev()
	}
	exists := err == nil

	callerRev := rec.Rev()
	if exists && callerRev != storedRev {
		return "", fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if !exists && callerRev != "" {
		return "", fmt.Errorf("%w: %s: record was removed", ErrConflict, id)
	}

	newRev, err := nextRevision(storedRev, rec)
	if err != nil {
		return "", err
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	out["_rev"] = newRev
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	// Write-then-rename so a crash never leaves a half-written record.
	path := d.recordPath(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit record: %w", err)
	}
	return newRev, nil
}

// Remove deletes the record file.
func (d *DiskAdapter) Remove(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := os.Remove(d.recordPath(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// Find enumerates every record and filters with the shared matcher.
func (d *DiskAdapter) Find(ctx context.Context, q Query) ([]Record, error) {
	all, err := d.AllRecords(ctx, true)
	if err != nil {
		return nil, err
	}
	matched := make([]Record, 0, len(all))
	for _, rec := range all {
		if matchSelector(rec, q.Selector) {
			matched = append(matched, rec)
		}
	}
	sortRecords(matched, q.Sort)
	return paginate(matched, q.Skip, q.Limit), nil
}

// AllRecords enumerates the collection directory. Corrupt entries are
// discarded and skipped.
func (d *DiskAdapter) AllRecords(ctx context.Context, includeRecords bool) ([]Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var recs []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		idBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		id := string(idBytes)
		if !includeRecords {
			recs = append(recs, Record{"_id": id})
			continue
		}
		rec, err := d.read(id)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// CreateIndex is a no-op: the minimal backend only supports linear scans.
func (d *DiskAdapter) CreateIndex(ctx context.Context, spec IndexSpec) error {
	return nil
}

// Info reports the record count and total byte size of the directory.
func (d *DiskAdapter) Info(ctx context.Context) (Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return Info{}, err
	}
	var info Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		info.Records++
	}
	size, err := DiskUsageBytes(d.dir)
	if err != nil {
		return Info{}, err
	}
	info.SizeBytes = size
	return info, nil
}

// Compact is a no-op: flat files hold no reclaimable space.
func (d *DiskAdapter) Compact(ctx context.Context) error {
	return nil
}

// Destroy removes the collection directory and all records in it.
func (d *DiskAdapter) Destroy(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return os.RemoveAll(d.dir)
}

// Close is a no-op: the adapter holds no open handles between operations.
func (d *DiskAdapter) Close() error {
	return nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing or inaccessible paths are skipped (contribute 0); errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.IsDir() {
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		} else {
			total += info.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info != nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
