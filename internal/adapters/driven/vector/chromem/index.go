// Package chromem provides an embedded VectorIndex backed by chromem-go.
// Each namespace is a collection. With a path set, collections persist to disk.
package chromem

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/bpa/internal/adapters/driven/vector/metadata"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index stores vectors in chromem-go collections.
type Index struct {
	db          *chromem.DB
	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// Config configures the embedded index.
type Config struct {
	// Path is the persistence directory. Empty keeps vectors in memory only.
	Path string
}

// New opens the index. A persistent directory is created if missing.
func New(cfg Config) (*Index, error) {
	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
		logger.Debug("chromem: in-memory vector index")
	} else {
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", domain.ErrVectorIndexUnavailable, cfg.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrVectorIndexUnavailable, cfg.Path, err)
		}
		logger.Debug("chromem: persistent vector index at %s", cfg.Path)
	}

	return &Index{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// precomputed rejects embedding requests; vectors always arrive computed.
func precomputed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("chromem: embeddings must be precomputed")
}

func (i *Index) collection(namespace string) (*chromem.Collection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if col, ok := i.collections[namespace]; ok {
		return col, nil
	}
	col, err := i.db.GetOrCreateCollection(namespace, nil, precomputed)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", namespace, err)
	}
	i.collections[namespace] = col
	return col, nil
}

// Upsert adds all chunks in one AddDocuments call.
func (i *Index) Upsert(ctx context.Context, namespace string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	col, err := i.collection(namespace)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for n, c := range chunks {
		docs[n] = chromem.Document{
			ID:        c.ID,
			Content:   c.Metadata.Text,
			Metadata:  metadata.ToStrings(c.ID, c.Metadata),
			Embedding: c.Embedding,
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem: upsert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// Query runs one similarity query per allowed role and merges the results
// by similarity, since chromem's where clause only supports equality.
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
	col, err := i.collection(namespace)
	if err != nil {
		return nil, err
	}

	wheres := []map[string]string{nil}
	if len(filter.AccessRoles) > 0 {
		wheres = make([]map[string]string, len(filter.AccessRoles))
		for n, role := range filter.AccessRoles {
			wheres[n] = map[string]string{metadata.KeyAccessRole: string(role)}
		}
	}

	var fragments []domain.Fragment
	for _, where := range wheres {
		results, err := i.query(ctx, col, vector, topK, where)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			_, meta := metadata.FromStrings(r.Metadata)
			meta.Text = r.Content
			fragments = append(fragments, domain.Fragment{ID: r.ID, Score: r.Similarity, Metadata: meta})
		}
	}

	sort.SliceStable(fragments, func(a, b int) bool {
		return fragments[a].Score > fragments[b].Score
	})
	if len(fragments) > topK {
		fragments = fragments[:topK]
	}
	return fragments, nil
}

// query clamps nResults to the collection size, which chromem requires.
func (i *Index) query(
	ctx context.Context,
	col *chromem.Collection,
	vector []float32,
	topK int,
	where map[string]string,
) ([]chromem.Result, error) {
	n := min(topK, col.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query: %w", err)
	}
	return results, nil
}

// Delete removes chunks by ID.
func (i *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := i.collection(namespace)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("chromem: delete %d chunks: %w", len(ids), err)
	}
	return nil
}

// Count returns the number of vectors in a namespace.
func (i *Index) Count(namespace string) (int, error) {
	col, err := i.collection(namespace)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Ping always succeeds for the embedded index.
func (i *Index) Ping(context.Context) error {
	return nil
}

// Close releases resources. Persistent collections are written on every change.
func (i *Index) Close() error {
	return nil
}
