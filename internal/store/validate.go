package store

import (
	"github.com/hyperjump/kioku/internal/models"
)

// Validation ceilings. Violations fail before any write occurs.
const (
	MaxDocumentBytes      = 50 * 1024 * 1024
	MaxEmbeddingTextChars = 2000
	MaxAgentNameChars     = 50
	MaxSystemPromptChars  = 5000
	MaxConversationMsgs   = 1000
)

// allowedContentTypes is the document content-type allow-list.
var allowedContentTypes = map[string]bool{
	"text/plain":    true,
	"text/markdown": true,
	"text/html":     true,
	"text/csv":      true,
	"application/json": true,
	"application/pdf":  true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

// The validators below are pure and side-effect-free so they can be unit
// tested independently of storage.

// ValidateDocument checks required fields, the size ceiling, and the
// content-type allow-list.
func ValidateDocument(doc *models.Document) error {
	if doc == nil {
		return invalid(CollectionDocuments, "", "document is nil")
	}
	if doc.Title == "" {
		return invalid(CollectionDocuments, "title", "required")
	}
	if doc.Content == "" {
		return invalid(CollectionDocuments, "content", "required")
	}
	if int64(len(doc.Content)) > MaxDocumentBytes {
		return invalid(CollectionDocuments, "content", "exceeds 50 MB size ceiling")
	}
	if doc.ContentType != "" && !allowedContentTypes[doc.ContentType] {
		return invalid(CollectionDocuments, "contentType", "not in allow-list: "+doc.ContentType)
	}
	return nil
}

// ValidateEmbedding checks required fields, the exact vector dimension, and
// the chunk text ceiling.
func ValidateEmbedding(e *models.Embedding) error {
	if e == nil {
		return invalid(CollectionEmbeddings, "", "embedding is nil")
	}
	if e.DocumentID == "" {
		return invalid(CollectionEmbeddings, "documentId", "required")
	}
	if e.ChunkIndex < 0 {
		return invalid(CollectionEmbeddings, "chunkIndex", "must be non-negative")
	}
	if len(e.Vector) != models.EmbeddingDimensions {
		return invalid(CollectionEmbeddings, "vector", "dimension mismatch: expected 384")
	}
	if len(e.Text) > MaxEmbeddingTextChars {
		return invalid(CollectionEmbeddings, "text", "exceeds 2000 character ceiling")
	}
	return nil
}

// ValidateAgent checks required fields and the name/prompt ceilings.
func ValidateAgent(a *models.Agent) error {
	if a == nil {
		return invalid(CollectionAgents, "", "agent is nil")
	}
	if a.Name == "" {
		return invalid(CollectionAgents, "name", "required")
	}
	if len(a.Name) > MaxAgentNameChars {
		return invalid(CollectionAgents, "name", "exceeds 50 character ceiling")
	}
	if len(a.SystemPrompt) > MaxSystemPromptChars {
		return invalid(CollectionAgents, "systemPrompt", "exceeds 5000 character ceiling")
	}
	return nil
}

// ValidateConversation checks required fields and the message-count ceiling.
func ValidateConversation(c *models.Conversation) error {
	if c == nil {
		return invalid(CollectionConversations, "", "conversation is nil")
	}
	if c.Title == "" {
		return invalid(CollectionConversations, "title", "required")
	}
	if len(c.Messages) > MaxConversationMsgs {
		return invalid(CollectionConversations, "messages", "exceeds 1000 message ceiling")
	}
	return nil
}

// ValidateSettings checks the singleton id and RAG tuning sanity.
func ValidateSettings(s *models.Settings) error {
	if s == nil {
		return invalid(CollectionSettings, "", "settings is nil")
	}
	if s.ID != models.SettingsID {
		return invalid(CollectionSettings, "_id", "must be "+models.SettingsID)
	}
	if s.RAG.ChunkSize <= 0 {
		return invalid(CollectionSettings, "rag.chunkSize", "must be positive")
	}
	if s.RAG.ChunkOverlap < 0 || s.RAG.ChunkOverlap >= s.RAG.ChunkSize {
		return invalid(CollectionSettings, "rag.chunkOverlap", "must be in [0, chunkSize)")
	}
	return nil
}
