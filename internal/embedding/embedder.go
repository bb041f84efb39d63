// Package embedding defines the boundary to the external embedding model.
// Real model inference lives outside this repo; the deterministic mock and
// the caching wrapper here serve local development, the watcher, and tests.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
