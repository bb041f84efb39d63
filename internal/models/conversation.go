package models

import "time"

// Message is a single conversation turn. Sources lists the document IDs that
// were retrieved as context for the message, if any.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

// ConversationMetadata holds derived conversation attributes.
type ConversationMetadata struct {
	MessageCount int  `json:"messageCount"`
	Pinned       bool `json:"pinned"`
}

// Conversation is an ordered message history bound to an agent.
type Conversation struct {
	ID        string               `json:"_id"`
	Rev       string               `json:"_rev,omitempty"`
	Title     string               `json:"title"`
	AgentID   string               `json:"agentId,omitempty"`
	Messages  []Message            `json:"messages"`
	Metadata  ConversationMetadata `json:"metadata"`
	Archived  bool                 `json:"archived"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}
