package postprocessors

import (
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/postprocessors/chunker"
	"github.com/mitiak/raggy/internal/postprocessors/identity"
)

// DefaultProcessors is the ingestion pipeline order: split, then stamp ids.
var DefaultProcessors = []string{"chunker", "identity"}

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("identity", buildIdentity)
}

// NewDefaultPipeline builds the ingestion pipeline for the given chunking settings.
func NewDefaultPipeline(cfg domain.ChunkingSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(DefaultProcessors, map[string]map[string]any{
		"chunker": {
			"window_tokens": cfg.WindowTokens,
			"overlap_ratio": cfg.OverlapRatio,
		},
	})
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - window_tokens (int): Tokens per chunk (default: 200)
//   - overlap_ratio (float): Fraction of a window shared with the next (default: 0.15)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "window_tokens"); size > 0 {
			opts = append(opts, chunker.WithWindowTokens(size))
		}
		if ratio, ok := getFloatFromConfig(cfg, "overlap_ratio"); ok {
			opts = append(opts, chunker.WithOverlapRatio(ratio))
		}
	}

	return chunker.New(opts...), nil
}

func buildIdentity(_ map[string]any) (driven.PostProcessor, error) {
	return identity.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getFloatFromConfig(cfg map[string]any, key string) (float64, bool) {
	switch v := cfg[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
