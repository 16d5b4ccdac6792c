package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/explorebd/explorebd-api/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository keeps the site settings as one JSON blob.
type SettingsRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns the stored settings merged over the defaults. Keys missing
// from the blob keep their default value.
func (r *SettingsRepository) Load(ctx context.Context) (models.SiteSettings, error) {
	s := models.DefaultSettings()
	var row models.Setting
	err := r.db.WithContext(ctx).Where(&models.Setting{Key: models.SettingsKey}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := json.Unmarshal(row.Value, &s); err != nil {
		return models.DefaultSettings(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}

// Update merges patch into the current settings and saves the result.
// Unknown keys are dropped; a value of the wrong type fails with ErrValidation.
func (r *SettingsRepository) Update(ctx context.Context, patch map[string]json.RawMessage) (models.SiteSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.Load(ctx)
	if err != nil {
		return current, err
	}
	merged, err := mergeSettings(current, patch)
	if err != nil {
		return current, err
	}
	if err := r.Save(ctx, merged); err != nil {
		return current, err
	}
	return merged, nil
}

func mergeSettings(current models.SiteSettings, patch map[string]json.RawMessage) (models.SiteSettings, error) {
	raw, err := json.Marshal(current)
	if err != nil {
		return current, fmt.Errorf("failed to encode settings: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return current, fmt.Errorf("failed to decode settings: %w", err)
	}
	for k, v := range patch {
		if _, ok := fields[k]; ok {
			fields[k] = v
		}
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return current, fmt.Errorf("failed to encode settings: %w", err)
	}
	var merged models.SiteSettings
	if err := json.Unmarshal(raw, &merged); err != nil {
		return current, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return merged, nil
}

// Save replaces the stored blob with s.
func (r *SettingsRepository) Save(ctx context.Context, s models.SiteSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	row := models.Setting{Key: models.SettingsKey, Value: datatypes.JSON(raw)}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
