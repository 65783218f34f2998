package driven

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// VectorIndex stores chunk vectors in namespaced partitions and answers
// similarity queries filtered on chunk metadata.
//
// Implementations:
//   - Pinecone (hosted)
//   - Qdrant (server)
//   - chromem-go (embedded)
type VectorIndex interface {
	// Upsert writes all chunks in one batched call. Existing IDs are overwritten.
	Upsert(ctx context.Context, namespace string, chunks []domain.Chunk) error

	// Query returns up to topK fragments most similar to vector, restricted to
	// the filter, in the backend's native similarity order.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter QueryFilter) ([]domain.Fragment, error)

	// Delete removes chunks by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, namespace string, ids []string) error

	// Ping validates the index is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// QueryFilter restricts a similarity query on chunk metadata.
type QueryFilter struct {
	// AccessRoles lists the access_role values a fragment may carry.
	// Empty means no role restriction.
	AccessRoles []domain.AccessRole
}

// Allows reports whether chunk metadata passes the filter.
func (f QueryFilter) Allows(meta domain.ChunkMetadata) bool {
	if len(f.AccessRoles) == 0 {
		return true
	}
	for _, r := range f.AccessRoles {
		if r == meta.AccessRole {
			return true
		}
	}
	return false
}
