// Package qdrant provides a VectorIndex backed by a Qdrant server over gRPC.
// Each namespace is a collection, created on first upsert.
package qdrant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/custodia-labs/bpa/internal/adapters/driven/vector/metadata"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultPort is the Qdrant gRPC port.
const DefaultPort = 6334

// Config configures the Qdrant adapter.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Dimensions sizes new collections. Zero takes the size of the first
	// upserted vector.
	Dimensions int
}

// Index stores chunks as Qdrant points keyed by a UUID derived from the chunk ID.
type Index struct {
	client     *qdrant.Client
	dimensions int

	mu    sync.Mutex
	ready map[string]bool
}

// New connects to a Qdrant server.
func New(cfg Config) (*Index, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant: connect to %s:%d: %w",
			domain.ErrVectorIndexUnavailable, cfg.Host, cfg.Port, err)
	}

	return &Index{
		client:     client,
		dimensions: cfg.Dimensions,
		ready:      make(map[string]bool),
	}, nil
}

// ensureCollection creates the collection for namespace if it is missing.
func (i *Index) ensureCollection(ctx context.Context, namespace string, size int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ready[namespace] {
		return nil
	}

	exists, err := i.client.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("qdrant: check collection %s: %w", namespace, err)
	}
	if !exists {
		if i.dimensions > 0 {
			size = i.dimensions
		}
		err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: namespace,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(size),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("qdrant: create collection %s: %w", namespace, err)
		}
	}

	i.ready[namespace] = true
	return nil
}

// collectionExists reports whether namespace has been created, without creating it.
func (i *Index) collectionExists(ctx context.Context, namespace string) (bool, error) {
	i.mu.Lock()
	ready := i.ready[namespace]
	i.mu.Unlock()
	if ready {
		return true, nil
	}

	exists, err := i.client.CollectionExists(ctx, namespace)
	if err != nil {
		return false, fmt.Errorf("qdrant: check collection %s: %w", namespace, err)
	}
	return exists, nil
}

// Upsert writes all chunks in one request.
func (i *Index) Upsert(ctx context.Context, namespace string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := i.ensureCollection(ctx, namespace, len(chunks[0].Embedding)); err != nil {
		return err
	}

	points, err := toPoints(chunks)
	if err != nil {
		return err
	}

	wait := true
	_, err = i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	return nil
}

func toPoints(chunks []domain.Chunk) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, len(chunks))
	for n, c := range chunks {
		payload, err := toPayload(metadata.ToMap(c.ID, c.Metadata))
		if err != nil {
			return nil, fmt.Errorf("qdrant: encode payload for %s: %w", c.ID, err)
		}
		points[n] = &qdrant.PointStruct{
			Id:      qdrant.NewID(metadata.PointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: payload,
		}
	}
	return points, nil
}

func toPayload(values map[string]any) (map[string]*qdrant.Value, error) {
	payload := make(map[string]*qdrant.Value, len(values))
	for key, value := range values {
		v, err := qdrant.NewValue(value)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}
		payload[key] = v
	}
	return payload, nil
}

// Query searches the namespace collection. A missing collection yields no results.
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
	exists, err := i.collectionExists(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	resp, err := i.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: namespace,
		Vector:         vector,
		Limit:          uint64(topK),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search %s: %w", namespace, err)
	}

	return toFragments(resp.GetResult()), nil
}

// buildFilter matches access_role against any of the allowed roles.
func buildFilter(filter driven.QueryFilter) *qdrant.Filter {
	if len(filter.AccessRoles) == 0 {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: metadata.KeyAccessRole,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keywords{
							Keywords: &qdrant.RepeatedStrings{Strings: domain.RoleStrings(filter.AccessRoles)},
						},
					},
				},
			},
		}},
	}
}

func toFragments(points []*qdrant.ScoredPoint) []domain.Fragment {
	fragments := make([]domain.Fragment, 0, len(points))
	for _, p := range points {
		if p == nil {
			continue
		}
		chunkID, meta := metadata.FromMap(payloadToMap(p.GetPayload()))
		if chunkID == "" {
			chunkID = pointID(p.GetId())
		}
		fragments = append(fragments, domain.Fragment{
			ID:       chunkID,
			Score:    p.GetScore(),
			Metadata: meta,
		})
	}
	return fragments
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch v := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = v.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = v.DoubleValue
		}
	}
	return out
}

func pointID(id *qdrant.PointId) string {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	}
	return ""
}

// Delete removes chunks by ID. A missing collection is a no-op.
func (i *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	exists, err := i.collectionExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for n, id := range ids {
		pointIDs[n] = &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: metadata.PointID(id)}}
	}

	_, err = i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: namespace,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete %d points: %w", len(ids), err)
	}
	return nil
}

// Ping runs the server health check.
func (i *Index) Ping(ctx context.Context) error {
	if _, err := i.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (i *Index) Close() error {
	return i.client.Close()
}
