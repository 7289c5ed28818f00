package settings

import (
	"context"
	stderrors "errors"

	"jobsnap/common/cache"
	"jobsnap/services/capture/internal/errors"
	"jobsnap/services/capture/internal/models"

	"go.uber.org/zap"
)

// settingsKey holds both fields in one value so a read never mixes two saves.
const settingsKey = "settings:current"

// Store keeps the user settings in the shared cache. The key never expires.
type Store struct {
	cache  cache.Cache
	logger *zap.Logger
}

func NewStore(c cache.Cache, logger *zap.Logger) *Store {
	return &Store{cache: c, logger: logger}
}

// Load returns the current settings. Unset settings come back empty.
func (s *Store) Load(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.cache.Get(ctx, settingsKey, &settings)
	if stderrors.Is(err, cache.ErrNotFound) {
		return models.Settings{}, nil
	}
	if err != nil {
		return models.Settings{}, errors.Unavailable("failed to read settings", err)
	}
	return settings.Normalize(), nil
}

// Save replaces both fields at once. Callers validate completeness first.
func (s *Store) Save(ctx context.Context, settings models.Settings) error {
	settings = settings.Normalize()

	if err := s.cache.Set(ctx, settingsKey, settings, cache.NoExpiration); err != nil {
		return errors.Unavailable("failed to write settings", err)
	}

	s.logger.Info("settings saved", zap.String("api_key", settings.MaskedAPIKey()))
	return nil
}
