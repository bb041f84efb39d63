// Package keyword provides full-text (keyword) indexing and search over documents.
package keyword

import (
	"context"

	"github.com/hyperjump/kioku/internal/models"
)

// Result is a single keyword search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the title field.
	// Values > 1 make title matches rank higher. Use 1.0 for no boost.
	TitleBoost float64
}

// Index defines keyword search operations over documents.
type Index interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}
