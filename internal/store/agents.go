package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

// CreateAgent validates and persists a new agent. A missing ID is assigned
// and the agent starts active with a zero usage counter unless set.
func (s *Store) CreateAgent(ctx context.Context, a *models.Agent) error {
	if err := ValidateAgent(a); err != nil {
		return err
	}
	adapter, err := s.adapter(CollectionAgents)
	if err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Rev = ""

	rec, err := toRecord(a)
	if err != nil {
		return err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	a.Rev = rev
	return nil
}

// GetAgent returns the agent with the given id.
func (s *Store) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	adapter, err := s.adapter(CollectionAgents)
	if err != nil {
		return nil, err
	}
	rec, err := adapter.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var a models.Agent
	if err := fromRecord(rec, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActiveAgents returns all active agents, most used first.
func (s *Store) GetActiveAgents(ctx context.Context) ([]*models.Agent, error) {
	adapter, err := s.adapter(CollectionAgents)
	if err != nil {
		return nil, err
	}
	recs, err := adapter.Find(ctx, storage.Query{
		Selector: map[string]any{"active": true},
		Sort:     []storage.SortField{{Field: "usage", Desc: true}},
	})
	if err != nil {
		return nil, err
	}
	agents := make([]*models.Agent, 0, len(recs))
	for _, rec := range recs {
		var a models.Agent
		if err := fromRecord(rec, &a); err != nil {
			return nil, err
		}
		agents = append(agents, &a)
	}
	return agents, nil
}

// IncrementAgentUsage bumps the usage counter by one. A concurrent writer
// surfaces as ErrConflict, which callers may retry.
func (s *Store) IncrementAgentUsage(ctx context.Context, id string) error {
	adapter, err := s.adapter(CollectionAgents)
	if err != nil {
		return err
	}
	a, err := s.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	a.Usage++
	a.UpdatedAt = time.Now().UTC()
	rec, err := toRecord(a)
	if err != nil {
		return err
	}
	if _, err := adapter.Put(ctx, rec); err != nil {
		return fmt.Errorf("increment usage for agent %s: %w", id, err)
	}
	return nil
}
