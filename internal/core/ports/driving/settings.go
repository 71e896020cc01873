package driving

import "github.com/mitiak/raggy/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings, filling defaults for unset keys.
	Get() (*domain.Settings, error)

	// Set updates a single dotted key (e.g. "chunking.window_tokens") and persists it.
	Set(key, value string) error

	// Keys returns every supported settings key in display order.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
