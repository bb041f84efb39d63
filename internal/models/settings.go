package models

import "time"

// SettingsID is the well-known identifier of the single settings record.
const SettingsID = "app_settings"

// RAGSettings tunes chunking and retrieval.
type RAGSettings struct {
	ChunkSize           int     `json:"chunkSize"`
	ChunkOverlap        int     `json:"chunkOverlap"`
	MaxResults          int     `json:"maxResults"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	EmbeddingModel      string  `json:"embeddingModel"`
}

// UISettings holds preferences owned by the external UI collaborator.
type UISettings struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

// StorageSettings holds quota and retention policy.
type StorageSettings struct {
	QuotaBytes    int64 `json:"quotaBytes"`
	RetentionDays int   `json:"retentionDays"`
}

// Settings is the single per-installation settings record.
type Settings struct {
	ID        string          `json:"_id"`
	Rev       string          `json:"_rev,omitempty"`
	RAG       RAGSettings     `json:"rag"`
	UI        UISettings      `json:"ui"`
	Storage   StorageSettings `json:"storage"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// DefaultSettings returns the settings seeded on first initialization.
func DefaultSettings() *Settings {
	return &Settings{
		ID: SettingsID,
		RAG: RAGSettings{
			ChunkSize:           1000,
			ChunkOverlap:        100,
			MaxResults:          5,
			SimilarityThreshold: 0.5,
			EmbeddingModel:      "all-MiniLM-L6-v2",
		},
		UI: UISettings{
			Theme:    "system",
			Language: "en",
		},
		Storage: StorageSettings{
			QuotaBytes:    500 * 1024 * 1024,
			RetentionDays: 0,
		},
	}
}
