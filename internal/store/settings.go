package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

// seedSettings writes the default settings record if none exists.
func (s *Store) seedSettings(ctx context.Context) error {
	adapter, err := s.adapter(CollectionSettings)
	if err != nil {
		return err
	}
	_, err = adapter.Get(ctx, models.SettingsID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("probe settings: %w", err)
	}
	defaults := models.DefaultSettings()
	defaults.UpdatedAt = time.Now().UTC()
	rec, err := toRecord(defaults)
	if err != nil {
		return err
	}
	if _, err := adapter.Put(ctx, rec); err != nil {
		// A concurrent seeder winning the race is fine.
		if errors.Is(err, storage.ErrConflict) {
			return nil
		}
		return fmt.Errorf("seed settings: %w", err)
	}
	s.logger.Debug("default settings seeded")
	return nil
}

// GetSettings returns the single settings record.
func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	adapter, err := s.adapter(CollectionSettings)
	if err != nil {
		return nil, err
	}
	rec, err := adapter.Get(ctx, models.SettingsID)
	if err != nil {
		return nil, err
	}
	var settings models.Settings
	if err := fromRecord(rec, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings validates and persists settings under their current
// revision. The new revision is written back.
func (s *Store) UpdateSettings(ctx context.Context, settings *models.Settings) error {
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	adapter, err := s.adapter(CollectionSettings)
	if err != nil {
		return err
	}
	settings.UpdatedAt = time.Now().UTC()
	rec, err := toRecord(settings)
	if err != nil {
		return err
	}
	rev, err := adapter.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	settings.Rev = rev
	return nil
}
