package store

import "github.com/hyperjump/kioku/internal/storage"

// The five fixed collections.
const (
	CollectionDocuments     = "documents"
	CollectionEmbeddings    = "embeddings"
	CollectionAgents        = "agents"
	CollectionConversations = "conversations"
	CollectionSettings      = "settings"
)

// collections lists every collection in initialization order.
var collections = []string{
	CollectionDocuments,
	CollectionEmbeddings,
	CollectionAgents,
	CollectionConversations,
	CollectionSettings,
}

// indexSpecs are the indexes the capable backend creates per collection.
// The minimal backend ignores them.
var indexSpecs = map[string][]storage.IndexSpec{
	CollectionDocuments: {
		{Name: "documents_hash", Fields: []storage.SortField{{Field: "hash"}}},
		{Name: "documents_status", Fields: []storage.SortField{{Field: "status"}}},
		{Name: "documents_indexed", Fields: []storage.SortField{{Field: "indexed"}}},
		{Name: "documents_created_at", Fields: []storage.SortField{{Field: "createdAt"}}},
		{Name: "documents_tags", Fields: []storage.SortField{{Field: "metadata.tags"}}},
	},
	CollectionEmbeddings: {
		{Name: "embeddings_document_id", Fields: []storage.SortField{{Field: "documentId"}}},
		{Name: "embeddings_document_chunk", Fields: []storage.SortField{{Field: "documentId"}, {Field: "chunkIndex"}}},
	},
	CollectionAgents: {
		{Name: "agents_active", Fields: []storage.SortField{{Field: "active"}}},
		{Name: "agents_category", Fields: []storage.SortField{{Field: "metadata.category"}}},
		{Name: "agents_usage", Fields: []storage.SortField{{Field: "usage", Desc: true}}},
	},
	CollectionConversations: {
		{Name: "conversations_agent_id", Fields: []storage.SortField{{Field: "agentId"}}},
		{Name: "conversations_archived", Fields: []storage.SortField{{Field: "archived"}}},
		{Name: "conversations_updated_at", Fields: []storage.SortField{{Field: "updatedAt", Desc: true}}},
		{Name: "conversations_pinned", Fields: []storage.SortField{{Field: "metadata.pinned"}}},
	},
}
