// Package models defines the persisted entity types for the five collections.
package models

import "time"

// Document statuses as a document moves through the ingestion pipeline.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// DocumentMetadata holds caller-supplied document attributes.
type DocumentMetadata struct {
	Source   string   `json:"source,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Language string   `json:"language,omitempty"`
}

// Document is a stored document plus its derived chunk list.
// Chunks holds the ordered chunk texts; once Indexed is true there is one
// Embedding record per chunk.
type Document struct {
	ID          string           `json:"_id"`
	Rev         string           `json:"_rev,omitempty"`
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	ContentType string           `json:"contentType"`
	Size        int64            `json:"size"`
	Chunks      []string         `json:"chunks,omitempty"`
	ChunkSize   int              `json:"chunkSize,omitempty"`
	Hash        string           `json:"hash"`
	Metadata    DocumentMetadata `json:"metadata"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Indexed     bool             `json:"indexed"`
	Status      string           `json:"status"`
}

// DocumentInput is the caller-facing payload for creating a document.
type DocumentInput struct {
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	ContentType string           `json:"contentType,omitempty"`
	Metadata    DocumentMetadata `json:"metadata,omitempty"`
}
