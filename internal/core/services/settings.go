package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyEmbedProvider   = "embedding.provider"
	KeyEmbedModel      = "embedding.model"
	KeyEmbedBaseURL    = "embedding.base_url"
	KeyEmbedAPIKey     = "embedding.api_key"
	KeyEmbedDimensions = "embedding.dimensions"
	KeyWindowTokens    = "chunking.window_tokens"
	KeyOverlapRatio    = "chunking.overlap_ratio"
	KeyProbes          = "retrieval.probes"
	KeyLists           = "retrieval.lists"
	KeyRateLimitRPS    = "server.rate_limit_rps"
	KeyRateLimitBurst  = "server.rate_limit_burst"
)

// EnvEmbeddingAPIKey overrides embedding.api_key when set.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvEmbeddingAPIKey = "RAGGY_EMBEDDING_API_KEY"

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
)

var settingKeys = []struct {
	key  string
	kind valueKind
}{
	{KeyEmbedProvider, kindString},
	{KeyEmbedModel, kindString},
	{KeyEmbedBaseURL, kindString},
	{KeyEmbedAPIKey, kindString},
	{KeyEmbedDimensions, kindInt},
	{KeyWindowTokens, kindInt},
	{KeyOverlapRatio, kindFloat},
	{KeyProbes, kindInt},
	{KeyLists, kindInt},
	{KeyRateLimitRPS, kindFloat},
	{KeyRateLimitBurst, kindInt},
}

// SettingsService maps the flat config store onto domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current settings, filling defaults for unset keys.
func (s *SettingsService) Get() (*domain.Settings, error) {
	return s.load(s.configStore)
}

func (s *SettingsService) load(store driven.ConfigStore) (*domain.Settings, error) {
	defaults := domain.DefaultSettings()
	getString := func(key, def string) string {
		if v := store.GetString(key); v != "" {
			return v
		}
		return def
	}
	getInt := func(key string, def int) int {
		if _, ok := store.Get(key); !ok {
			return def
		}
		return store.GetInt(key)
	}
	getFloat := func(key string, def float64) float64 {
		if _, ok := store.Get(key); !ok {
			return def
		}
		return store.GetFloat(key)
	}

	provider := defaults.Embedding.Provider
	if raw := store.GetString(KeyEmbedProvider); raw != "" {
		p, err := domain.ParseEmbeddingProvider(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyEmbedProvider, err)
		}
		provider = p
	}

	settings := &domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider:   provider,
			Model:      getString(KeyEmbedModel, provider.DefaultModel()),
			BaseURL:    getString(KeyEmbedBaseURL, provider.DefaultBaseURL()),
			APIKey:     store.GetString(KeyEmbedAPIKey),
			Dimensions: getInt(KeyEmbedDimensions, defaults.Embedding.Dimensions),
		},
		Chunking: domain.ChunkingSettings{
			WindowTokens: getInt(KeyWindowTokens, defaults.Chunking.WindowTokens),
			OverlapRatio: getFloat(KeyOverlapRatio, defaults.Chunking.OverlapRatio),
		},
		Retrieval: domain.RetrievalSettings{
			Probes: getInt(KeyProbes, defaults.Retrieval.Probes),
			Lists:  getInt(KeyLists, defaults.Retrieval.Lists),
		},
		Server: domain.ServerSettings{
			RateLimitRPS:   getFloat(KeyRateLimitRPS, defaults.Server.RateLimitRPS),
			RateLimitBurst: getInt(KeyRateLimitBurst, defaults.Server.RateLimitBurst),
		},
	}
	if key := s.getenv(EnvEmbeddingAPIKey); key != "" {
		settings.Embedding.APIKey = key
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Set parses value for key, checks the resulting settings are valid and
// persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKind(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		parsed = f
	default:
		if key == KeyEmbedProvider {
			p, err := domain.ParseEmbeddingProvider(value)
			if err != nil {
				return err
			}
			value = string(p)
		}
		parsed = value
	}

	if _, err := s.load(overlay{ConfigStore: s.configStore, key: key, value: parsed}); err != nil {
		return err
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every supported settings key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func lookupKind(key string) (valueKind, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.kind, true
		}
	}
	return kindString, false
}

// overlay shows one pending value on top of a config store.
type overlay struct {
	driven.ConfigStore
	key   string
	value any
}

func (o overlay) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.ConfigStore.Get(key)
}

func (o overlay) GetString(key string) string {
	if key == o.key {
		str, _ := o.value.(string)
		return str
	}
	return o.ConfigStore.GetString(key)
}

func (o overlay) GetInt(key string) int {
	if key == o.key {
		n, _ := o.value.(int)
		return n
	}
	return o.ConfigStore.GetInt(key)
}

func (o overlay) GetFloat(key string) float64 {
	if key == o.key {
		switch v := o.value.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
		return 0
	}
	return o.ConfigStore.GetFloat(key)
}
