package postprocessors

import (
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/postprocessors/chunker"
)

// ChunkerName is the registry name of the token window chunker.
const ChunkerName = "chunker"

// RegisterDefaults registers all built-in splitters with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, buildChunker)
}

// NewDefaultSplitter builds the token window chunker with the given
// size and overlap.
func NewDefaultSplitter(chunkSize, overlap int) (driven.TextSplitter, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.Build(ChunkerName, map[string]any{
		"chunk_size": chunkSize,
		"overlap":    overlap,
	})
}

// buildChunker creates a chunker from generic config.
// Supported config keys:
//   - chunk_size (int): Tokens per window (default: 1000)
//   - overlap (int): Tokens shared by consecutive windows (default: 150)
func buildChunker(cfg map[string]any) (driven.TextSplitter, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...)
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
