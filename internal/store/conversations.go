package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kioku/internal/models"
)

// CreateConversation validates and persists a new conversation.
func (s *Store) CreateConversation(ctx context.Context, c *models.Conversation) error {
	if err := ValidateConversation(c); err != nil {
		return err
	}
	adapter, err := s.adapter(CollectionConversations)
	if err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Metadata.MessageCount = len(c.Messages)
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Rev = ""

	rec, err := toRecord(c)
	if err != nil {
		return err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	c.Rev = rev
	return nil
}

// GetConversation returns the conversation with the given id.
func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	adapter, err := s.adapter(CollectionConversations)
	if err != nil {
		return nil, err
	}
	rec, err := adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var c models.Conversation
	if err := fromRecord(rec, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddMessage appends a message to the conversation, stamps it, bumps the
// message count, and persists under the conversation's current revision.
// The updated conversation is returned.
func (s *Store) AddMessage(ctx context.Context, conversationID string, msg models.Message) (*models.Conversation, error) {
	adapter, err := s.adapter(CollectionConversations)
	if err != nil {
		return nil, err
	}
	c, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(c.Messages) >= MaxConversationMsgs {
		return nil, invalid(CollectionConversations, "messages", "exceeds 1000 message ceiling")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	c.Messages = append(c.Messages, msg)
	c.Metadata.MessageCount = len(c.Messages)
	c.UpdatedAt = time.Now().UTC()

	rec, err := toRecord(c)
	if err != nil {
		return nil, err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("add message to %s: %w", conversationID, err)
	}
	c.Rev = rev
	return c, nil
}
