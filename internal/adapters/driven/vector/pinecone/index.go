// Package pinecone provides a VectorIndex backed by a hosted Pinecone index.
// Namespaces map to Pinecone namespaces within a single index.
package pinecone

import (
	"context"
	"fmt"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/custodia-labs/bpa/internal/adapters/driven/vector/metadata"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// UpsertBatchSize is the number of vectors sent per upsert request.
const UpsertBatchSize = 100

// Config configures the Pinecone adapter.
type Config struct {
	// APIKey is required.
	APIKey string

	// IndexName is resolved to a host when Host is empty.
	IndexName string

	// Host is the index data-plane host.
	Host string
}

// Index talks to one Pinecone index, holding a connection per namespace.
type Index struct {
	client    *pinecone.Client
	indexName string

	mu    sync.Mutex
	host  string
	conns map[string]*pinecone.IndexConnection
}

// New creates a Pinecone index adapter. The index itself must already exist.
func New(cfg Config) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pinecone: API key is required", domain.ErrInvalidConfig)
	}
	if cfg.IndexName == "" && cfg.Host == "" {
		return nil, fmt.Errorf("%w: pinecone: index name or host is required", domain.ErrInvalidConfig)
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("%w: pinecone: create client: %w", domain.ErrVectorIndexUnavailable, err)
	}

	return &Index{
		client:    client,
		indexName: cfg.IndexName,
		host:      cfg.Host,
		conns:     make(map[string]*pinecone.IndexConnection),
	}, nil
}

// connection returns the cached connection for namespace, resolving the
// index host on first use.
func (i *Index) connection(ctx context.Context, namespace string) (*pinecone.IndexConnection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if conn, ok := i.conns[namespace]; ok {
		return conn, nil
	}

	if i.host == "" {
		desc, err := i.client.DescribeIndex(ctx, i.indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone: describe index %s: %w", i.indexName, err)
		}
		i.host = desc.Host
	}

	conn, err := i.client.Index(pinecone.NewIndexConnParams{Host: i.host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("pinecone: connect to %s: %w", i.host, err)
	}
	i.conns[namespace] = conn
	return conn, nil
}

// Upsert writes chunks in batches of UpsertBatchSize.
func (i *Index) Upsert(ctx context.Context, namespace string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	conn, err := i.connection(ctx, namespace)
	if err != nil {
		return err
	}

	vectors, err := toVectors(chunks)
	if err != nil {
		return err
	}

	for start := 0; start < len(vectors); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(vectors))
		if _, err := conn.UpsertVectors(ctx, vectors[start:end]); err != nil {
			return fmt.Errorf("pinecone: upsert vectors %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func toVectors(chunks []domain.Chunk) ([]*pinecone.Vector, error) {
	vectors := make([]*pinecone.Vector, len(chunks))
	for n, c := range chunks {
		meta, err := structpb.NewStruct(metadata.ToMap(c.ID, c.Metadata))
		if err != nil {
			return nil, fmt.Errorf("pinecone: encode metadata for %s: %w", c.ID, err)
		}
		vectors[n] = &pinecone.Vector{
			Id:       c.ID,
			Values:   c.Embedding,
			Metadata: meta,
		}
	}
	return vectors, nil
}

// Query runs a filtered similarity query.
func (i *Index) Query(
	ctx context.Context,
	namespace string,
	vector []float32,
	topK int,
	filter driven.QueryFilter,
) ([]domain.Fragment, error) {
	if topK <= 0 {
		return nil, nil
	}
	conn, err := i.connection(ctx, namespace)
	if err != nil {
		return nil, err
	}

	metaFilter, err := buildFilter(filter)
	if err != nil {
		return nil, err
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		MetadataFilter:  metaFilter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: query: %w", err)
	}

	return toFragments(resp.Matches), nil
}

// buildFilter expresses the role restriction as {"access_role": {"$in": [...]}}.
func buildFilter(filter driven.QueryFilter) (*pinecone.MetadataFilter, error) {
	if len(filter.AccessRoles) == 0 {
		return nil, nil
	}

	roles := make([]any, len(filter.AccessRoles))
	for n, r := range filter.AccessRoles {
		roles[n] = string(r)
	}
	f, err := structpb.NewStruct(map[string]any{
		metadata.KeyAccessRole: map[string]any{"$in": roles},
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: encode filter: %w", err)
	}
	return f, nil
}

func toFragments(matches []*pinecone.ScoredVector) []domain.Fragment {
	fragments := make([]domain.Fragment, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.Vector == nil {
			continue
		}
		var values map[string]any
		if m.Vector.Metadata != nil {
			values = m.Vector.Metadata.AsMap()
		}
		_, meta := metadata.FromMap(values)
		fragments = append(fragments, domain.Fragment{
			ID:       m.Vector.Id,
			Score:    m.Score,
			Metadata: meta,
		})
	}
	return fragments
}

// Delete removes vectors by ID.
func (i *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	conn, err := i.connection(ctx, namespace)
	if err != nil {
		return err
	}
	if err := conn.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("pinecone: delete %d vectors: %w", len(ids), err)
	}
	return nil
}

// Ping resolves the index, which checks the API key and index name.
func (i *Index) Ping(ctx context.Context) error {
	if i.indexName == "" {
		if _, err := i.client.ListIndexes(ctx); err != nil {
			return fmt.Errorf("pinecone: list indexes: %w", err)
		}
		return nil
	}
	if _, err := i.client.DescribeIndex(ctx, i.indexName); err != nil {
		return fmt.Errorf("pinecone: describe index %s: %w", i.indexName, err)
	}
	return nil
}

// Close closes every namespace connection.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var firstErr error
	for ns, conn := range i.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("pinecone: close %s: %w", ns, err)
		}
		delete(i.conns, ns)
	}
	return firstErr
}
