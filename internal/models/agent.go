package models

import "time"

// AgentConfig holds generation parameters for an agent.
type AgentConfig struct {
	Temperature     float64  `json:"temperature"`
	MaxTokens       int      `json:"maxTokens"`
	UseRAG          bool     `json:"useRag"`
	DocumentFilters []string `json:"documentFilters,omitempty"`
	PromptTemplate  string   `json:"promptTemplate,omitempty"`
}

// Agent is a named assistant persona with its system prompt and settings.
type Agent struct {
	ID           string         `json:"_id"`
	Rev          string         `json:"_rev,omitempty"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	SystemPrompt string         `json:"systemPrompt"`
	Config       AgentConfig    `json:"config"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Active       bool           `json:"active"`
	Usage        int64          `json:"usage"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}
