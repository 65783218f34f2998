package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// DefaultTopK is the number of fragments retrieved per query.
const DefaultTopK = 5

// Retriever embeds a query and searches the vector index for fragments
// visible to a role.
type Retriever struct {
	embedder    driven.EmbeddingService
	vectorIndex driven.VectorIndex
	namespace   string
	topK        int
}

// NewRetriever creates a retriever over one namespace.
func NewRetriever(embedder driven.EmbeddingService, vectorIndex driven.VectorIndex, namespace string, topK int) *Retriever {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder:    embedder,
		vectorIndex: vectorIndex,
		namespace:   namespace,
		topK:        topK,
	}
}

// TopK returns the retrieval limit.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns at most TopK fragments in the index's similarity order.
// Zero matches is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, role domain.AccessRole) ([]domain.Fragment, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingUnavailable, err)
	}

	filter := driven.QueryFilter{AccessRoles: role.VisibleRoles()}
	fragments, err := r.vectorIndex.Query(ctx, r.namespace, vec, r.topK, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrVectorIndexUnavailable, err)
	}

	// Backends apply the filter server side; anything that slips through is dropped.
	visible := fragments[:0]
	for _, f := range fragments {
		if !filter.Allows(f.Metadata) {
			logger.Warn("Dropping fragment %s with role %q not visible to %q", f.ID, f.Metadata.AccessRole, role)
			continue
		}
		visible = append(visible, f)
	}
	if len(visible) > r.topK {
		visible = visible[:r.topK]
	}

	logger.Debug("Retrieved %d fragments for role %s", len(visible), role)
	return visible, nil
}
