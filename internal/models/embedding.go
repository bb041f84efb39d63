package models

import (
	"fmt"
	"time"
)

// EmbeddingDimensions is the fixed vector dimension for all embeddings.
const EmbeddingDimensions = 384

// EmbeddingMetadata locates a chunk inside its source document.
type EmbeddingMetadata struct {
	StartOffset   int `json:"startOffset"`
	EndOffset     int `json:"endOffset"`
	TokenEstimate int `json:"tokenEstimate"`
}

// Embedding is one chunk's vector. Its lifecycle is tied to the owning
// document: it exists only while the vector index holds a matching entry.
type Embedding struct {
	ID         string            `json:"_id"`
	Rev        string            `json:"_rev,omitempty"`
	DocumentID string            `json:"documentId"`
	ChunkIndex int               `json:"chunkIndex"`
	Text       string            `json:"text"`
	Vector     []float32         `json:"vector"`
	Norm       float64           `json:"norm"`
	Metadata   EmbeddingMetadata `json:"metadata"`
	Model      string            `json:"model"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// EmbeddingID derives the embedding identifier from the owning document and
// chunk index. Same inputs always yield the same ID.
func EmbeddingID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex)
}
