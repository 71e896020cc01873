package domain

import (
	"fmt"
	"strings"
)

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHash is the deterministic offline provider.
	EmbeddingProviderHash EmbeddingProvider = "hash"

	// EmbeddingProviderOpenAI uses the OpenAI embeddings API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderOllama uses a local Ollama server.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHash, EmbeddingProviderOpenAI, EmbeddingProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if the provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// DefaultModel returns the model used when none is configured.
func (p EmbeddingProvider) DefaultModel() string {
	switch p {
	case EmbeddingProviderOpenAI:
		return "text-embedding-3-small"
	case EmbeddingProviderOllama:
		return "nomic-embed-text"
	default:
		return "sha512"
	}
}

// DefaultBaseURL returns the endpoint used when none is configured.
func (p EmbeddingProvider) DefaultBaseURL() string {
	switch p {
	case EmbeddingProviderOpenAI:
		return "https://api.openai.com/v1"
	case EmbeddingProviderOllama:
		return "http://localhost:11434"
	default:
		return ""
	}
}

// ParseEmbeddingProvider converts user input into an EmbeddingProvider.
func ParseEmbeddingProvider(s string) (EmbeddingProvider, error) {
	p := EmbeddingProvider(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s)
	}
	return p, nil
}

// Default tuning values.
const (
	DefaultDimensions     = 1536
	DefaultWindowTokens   = 200
	DefaultOverlapRatio   = 0.15
	DefaultProbes         = 100
	DefaultLists          = 64
	DefaultRateLimitRPS   = 10.0
	DefaultRateLimitBurst = 20
)

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider   EmbeddingProvider
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// IsConfigured returns true if the provider can be constructed.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings controls the chunker window.
type ChunkingSettings struct {
	WindowTokens int
	OverlapRatio float64
}

// RetrievalSettings tunes the approximate nearest-neighbour index.
// Probes trades recall for latency and is never set per request.
type RetrievalSettings struct {
	Probes int
	Lists  int
}

// ServerSettings holds transport guard configuration.
type ServerSettings struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// Settings holds all application settings.
type Settings struct {
	Embedding EmbeddingSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Server    ServerSettings
}

// DefaultSettings returns settings that work offline out of the box.
func DefaultSettings() Settings {
	return Settings{
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHash,
			Model:      EmbeddingProviderHash.DefaultModel(),
			Dimensions: DefaultDimensions,
		},
		Chunking: ChunkingSettings{
			WindowTokens: DefaultWindowTokens,
			OverlapRatio: DefaultOverlapRatio,
		},
		Retrieval: RetrievalSettings{
			Probes: DefaultProbes,
			Lists:  DefaultLists,
		},
		Server: ServerSettings{
			RateLimitRPS:   DefaultRateLimitRPS,
			RateLimitBurst: DefaultRateLimitBurst,
		},
	}
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidInput)
	}
	if s.Chunking.WindowTokens <= 0 {
		return fmt.Errorf("%w: chunking.window_tokens must be positive", ErrInvalidInput)
	}
	if s.Chunking.OverlapRatio < 0 || s.Chunking.OverlapRatio >= 1 {
		return fmt.Errorf("%w: chunking.overlap_ratio must be in [0,1)", ErrInvalidInput)
	}
	if s.Retrieval.Probes <= 0 || s.Retrieval.Lists <= 0 {
		return fmt.Errorf("%w: retrieval.probes and retrieval.lists must be positive", ErrInvalidInput)
	}
	if s.Server.RateLimitRPS <= 0 || s.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: server rate limits must be positive", ErrInvalidInput)
	}
	return nil
}
