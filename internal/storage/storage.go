// Package storage defines the per-collection persistence contract and its two
// interchangeable backends: SQLite (capable, indexable) and flat JSON files on
// disk (minimal fallback, linear scan). Everything above this package is
// backend-agnostic.
package storage

import (
	"context"
	"strings"
)

// Record is a persisted JSON document. Every record carries its identifier
// under "_id" and, once written, its revision token under "_rev".
type Record map[string]any

// ID returns the record identifier, or "" if unset.
func (r Record) ID() string {
	id, _ := r["_id"].(string)
	return id
}

// Rev returns the record revision token, or "" if the record has never been
// written (or the caller stripped it).
func (r Record) Rev() string {
	rev, _ := r["_rev"].(string)
	return rev
}

// Field resolves a dot-separated path ("metadata.tags") against the record.
// Returns false when any segment is missing or not an object.
func (r Record) Field(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SortField names a field path and direction for sorting and indexing.
type SortField struct {
	Field string
	Desc  bool
}

// Query selects records by equality on top-level or dot-path fields, with
// optional sort applied after filtering and skip/limit applied after sort.
// A Limit of 0 means no limit.
type Query struct {
	Selector map[string]any
	Sort     []SortField
	Skip     int
	Limit    int
}

// IndexSpec describes an index the capable backend should create. The minimal
// backend ignores it.
type IndexSpec struct {
	Name   string
	Fields []SortField
}

// Info reports collection size.
type Info struct {
	Records   int64 `json:"records"`
	SizeBytes int64 `json:"sizeBytes"`
}

// Adapter is the uniform storage contract implemented by both backends.
// Revision tokens are the sole concurrency control: Put without the current
// revision fails with ErrConflict instead of overwriting.
type Adapter interface {
	// Get returns the record or ErrNotFound if absent or unreadable.
	Get(ctx context.Context, id string) (Record, error)
	// Put persists the record and returns its new revision token. The new
	// token's numeric prefix strictly increases on each successful write.
	Put(ctx context.Context, rec Record) (string, error)
	// Remove deletes the record or fails with ErrNotFound.
	Remove(ctx context.Context, id string) error
	// Find returns records matching the query selector, sorted and paginated.
	Find(ctx context.Context, q Query) ([]Record, error)
	// AllRecords returns every record; when includeRecords is false only the
	// "_id" field of each record is populated.
	AllRecords(ctx context.Context, includeRecords bool) ([]Record, error)
	// CreateIndex creates a backend index. No-op on the minimal backend.
	CreateIndex(ctx context.Context, spec IndexSpec) error
	// Info reports record count and approximate byte size.
	Info(ctx context.Context) (Info, error)
	// Compact reclaims space where the backend supports it.
	Compact(ctx context.Context) error
	// Destroy removes all data for the collection.
	Destroy(ctx context.Context) error
	Close() error
}

// validFieldPath reports whether a caller-supplied field path is safe to use.
// Paths reach the SQLite backend as json_extract expressions, so only
// identifier characters and dots are allowed.
func validFieldPath(path string) bool {
	if path == "" {
		return false
	}
	for _, c := range path {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(path, ".") && !strings.HasSuffix(path, ".") && !strings.Contains(path, "..")
}
