// Package vector builds the configured VectorIndex implementation.
package vector

import (
	"fmt"

	"github.com/custodia-labs/bpa/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/bpa/internal/adapters/driven/vector/pinecone"
	"github.com/custodia-labs/bpa/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Open creates the vector index selected by settings.Backend.
func Open(settings domain.VectorSettings) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendPinecone:
		return pinecone.New(pinecone.Config{
			APIKey:    settings.APIKey,
			IndexName: settings.Index,
			Host:      settings.Host,
		})
	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			Host:       settings.Host,
			Port:       settings.Port,
			APIKey:     settings.APIKey,
			UseTLS:     settings.UseTLS,
			Dimensions: settings.Dimensions,
		})
	case domain.VectorBackendChromem, "":
		return chromem.New(chromem.Config{Path: settings.Path})
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidConfig, settings.Backend)
	}
}
