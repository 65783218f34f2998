package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/postprocessors/chunker"
)

type ingestFixture struct {
	svc      *IngestionService
	embedder *mockEmbeddingService
	index    *mockVectorIndex
	docs     *memory.DocumentStore
}

func newIngestFixture(t *testing.T, size, overlap int) *ingestFixture {
	t.Helper()
	splitter, err := chunker.New(chunker.WithChunkSize(size), chunker.WithOverlap(overlap))
	require.NoError(t, err)

	f := &ingestFixture{
		embedder: &mockEmbeddingService{},
		index:    &mockVectorIndex{},
		docs:     memory.NewDocumentStore(),
	}
	f.svc = NewIngestionService(splitter, f.embedder, f.index, f.docs, IngestConfig{EmbedConcurrency: 3})
	f.svc.now = fixedClock()
	f.svc.newID = sequentialIDs("doc")
	return f
}

// numberedTokens returns "t0 t1 ... t(n-1)".
func numberedTokens(n int) string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("t%d", i)
	}
	return strings.Join(tokens, " ")
}

func tokenRange(from, to int) string {
	return strings.Join(strings.Fields(numberedTokens(to))[from:to], " ")
}

func TestIngestText_ThreeWindowDocument(t *testing.T) {
	f := newIngestFixture(t, 1000, 150)
	ctx := context.Background()

	record, err := f.svc.IngestText(ctx, numberedTokens(2200), domain.IngestOptions{Title: "Handbook"})
	require.NoError(t, err)

	assert.Equal(t, "doc-1", record.ID)
	assert.Equal(t, 3, record.ChunkCount)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, "Handbook", record.Title)

	chunks := f.index.upserted[domain.DefaultNamespace]
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, f.index.upsertCalls)

	assert.Equal(t, "doc-1_0", chunks[0].ID)
	assert.Equal(t, "doc-1_1", chunks[1].ID)
	assert.Equal(t, "doc-1_2", chunks[2].ID)
	assert.Equal(t, tokenRange(0, 1000), chunks[0].Metadata.Text)
	assert.Equal(t, tokenRange(850, 1850), chunks[1].Metadata.Text)
	assert.Equal(t, tokenRange(1700, 2200), chunks[2].Metadata.Text)

	for i, c := range chunks {
		assert.Equal(t, "doc-1", c.Metadata.DocumentID)
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.NotEmpty(t, c.Embedding)
	}

	stored, err := f.docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, len(chunks), stored.ChunkCount)
}

func TestIngestText_AppliesDefaults(t *testing.T) {
	f := newIngestFixture(t, 10, 2)

	record, err := f.svc.IngestText(context.Background(), "some policy text", domain.IngestOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleStudent, record.AccessRole)
	assert.Equal(t, domain.DefaultDepartment, record.Department)
	assert.Equal(t, domain.DefaultNamespace, record.Namespace)
	assert.Equal(t, domain.SourceKindFile, record.SourceKind)
	assert.Equal(t, domain.DefaultDocumentTitle, record.Title)

	chunk := f.index.upserted[domain.DefaultNamespace][0]
	assert.Equal(t, domain.RoleStudent, chunk.Metadata.AccessRole)
	assert.Equal(t, domain.DefaultDepartment, chunk.Metadata.Department)
	assert.Equal(t, domain.DefaultDocumentTitle, chunk.Metadata.Title)
}

func TestIngestText_TagsChunksWithOptions(t *testing.T) {
	f := newIngestFixture(t, 10, 2)

	record, err := f.svc.IngestText(context.Background(), "staff only procedure", domain.IngestOptions{
		AccessRole: domain.RoleStaff,
		Department: "finance",
		Namespace:  "finance-2025",
		SourceKind: domain.SourceKindURL,
		Origin:     "https://intranet.example.edu/procurement",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://intranet.example.edu/procurement", record.Title)
	chunks := f.index.upserted["finance-2025"]
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.RoleStaff, chunks[0].Metadata.AccessRole)
	assert.Equal(t, "finance", chunks[0].Metadata.Department)
	assert.Equal(t, "https://intranet.example.edu/procurement", chunks[0].Metadata.Source)
}

func TestIngestText_RejectsBadInput(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	ctx := context.Background()

	_, err := f.svc.IngestText(ctx, "   \n\t ", domain.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	_, err = f.svc.IngestText(ctx, "text", domain.IngestOptions{AccessRole: "admin"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.IngestText(ctx, "text", domain.IngestOptions{SourceKind: "EMAIL"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Zero(t, f.embedder.calls.Load())
	assert.Zero(t, f.index.upsertCalls)
}

func TestIngestText_EmbeddingFailureLeavesNothing(t *testing.T) {
	f := newIngestFixture(t, 1000, 150)
	f.embedder.failOn = "t900 "
	ctx := context.Background()

	record, err := f.svc.IngestText(ctx, numberedTokens(2200), domain.IngestOptions{})

	require.Error(t, err)
	assert.Nil(t, record)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.True(t, domain.IsGatewayError(err))
	assert.Zero(t, f.index.upsertCalls)
	assert.Empty(t, f.index.upserted)

	docs, err := f.docs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestText_EmptyVectorIsFailure(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	f.embedder.embedding = []float32{}

	_, err := f.svc.IngestText(context.Background(), "policy", domain.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Zero(t, f.index.upsertCalls)
}

func TestIngestText_UpsertFailure(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	f.index.upsertErr = errBoom
	ctx := context.Background()

	_, err := f.svc.IngestText(ctx, "a b c", domain.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
	assert.Equal(t, []string{"doc-1_0"}, f.index.deleted)
	docs, _ := f.docs.ListDocuments(ctx)
	assert.Empty(t, docs)
}

func TestIngestText_RecordFailureRemovesVectors(t *testing.T) {
	f := newIngestFixture(t, 1000, 150)
	failing := &failingDocStore{DocumentStore: f.docs, err: errBoom}
	f.svc.docStore = failing

	_, err := f.svc.IngestText(context.Background(), numberedTokens(2200), domain.IngestOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, []string{"doc-1_0", "doc-1_1", "doc-1_2"}, f.index.deleted)
}

func TestIngestText_CompensationFailureIsJoined(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	f.svc.docStore = &failingDocStore{DocumentStore: f.docs, err: errBoom}
	f.index.deleteErr = fmt.Errorf("index down")

	_, err := f.svc.IngestText(context.Background(), "a b", domain.IngestOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "remove orphan vectors")
}

func TestIngestText_ReingestCreatesNewRecord(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	ctx := context.Background()
	opts := domain.IngestOptions{Origin: "leave.pdf"}

	first, err := f.svc.IngestText(ctx, "annual leave rules", opts)
	require.NoError(t, err)
	second, err := f.svc.IngestText(ctx, "annual leave rules", opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	docs, err := f.docs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Len(t, f.index.upserted[domain.DefaultNamespace], 2)
}

// stubRegistry normalises by returning fixed pages.
type stubRegistry struct {
	pages []domain.Page
	err   error
	seen  *domain.RawDocument
}

func (r *stubRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	r.seen = raw
	if r.err != nil {
		return nil, r.err
	}
	return &domain.ExtractedText{Pages: r.pages}, nil
}

func (r *stubRegistry) Register(driven.Normaliser) {}

func (r *stubRegistry) SupportedMIMETypes() []string { return nil }

type stubFetcher struct {
	raw *domain.RawDocument
	err error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (*domain.RawDocument, error) {
	return f.raw, f.err
}

func TestIngestFile_AssignsPages(t *testing.T) {
	f := newIngestFixture(t, 4, 0)
	registry := &stubRegistry{pages: []domain.Page{
		{Number: 1, Text: "one two three four five"},
		{Number: 2, Text: "six seven eight"},
	}}
	f.svc.SetNormaliserRegistry(registry)

	path := filepath.Join(t.TempDir(), "Policy Guide.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0600))

	record, err := f.svc.IngestFile(context.Background(), path, domain.IngestOptions{})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", registry.seen.MIMEType)
	assert.Equal(t, "Policy Guide.pdf", record.Title)
	assert.Equal(t, "Policy Guide.pdf", record.Origin)
	assert.Equal(t, domain.SourceKindFile, record.SourceKind)

	chunks := f.index.upserted[domain.DefaultNamespace]
	require.Len(t, chunks, 2)
	assert.Equal(t, "one two three four", chunks[0].Metadata.Text)
	assert.Equal(t, 1, chunks[0].Metadata.Page)
	assert.Equal(t, "five six seven eight", chunks[1].Metadata.Text)
	assert.Equal(t, 1, chunks[1].Metadata.Page, "chunk starts on page 1")
}

func TestIngestFile_WithoutRegistry(t *testing.T) {
	f := newIngestFixture(t, 10, 2)

	_, err := f.svc.IngestFile(context.Background(), "x.pdf", domain.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIngestFile_Missing(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	f.svc.SetNormaliserRegistry(&stubRegistry{})

	_, err := f.svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), domain.IngestOptions{})

	assert.Error(t, err)
}

func TestIngestFile_NormaliserErrorPropagates(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	f.svc.SetNormaliserRegistry(&stubRegistry{err: domain.ErrUnsupportedType})
	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04"), 0600))

	_, err := f.svc.IngestFile(context.Background(), path, domain.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Zero(t, f.embedder.calls.Load())
}

func TestIngestURL(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	url := "https://www.example.edu/registry/enrolment"
	f.svc.SetNormaliserRegistry(&stubRegistry{pages: []domain.Page{{Text: "enrolment closes friday"}}})
	f.svc.SetFetcher(&stubFetcher{raw: &domain.RawDocument{URI: url, MIMEType: "text/html"}})

	record, err := f.svc.IngestURL(context.Background(), url, domain.IngestOptions{AccessRole: domain.RolePublic})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceKindURL, record.SourceKind)
	assert.Equal(t, url, record.Origin)
	assert.Equal(t, url, record.Title)
	assert.Equal(t, domain.RolePublic, record.AccessRole)
	assert.Equal(t, url, f.index.upserted[domain.DefaultNamespace][0].Metadata.Source)
}

func TestIngestURL_FetchFailure(t *testing.T) {
	f := newIngestFixture(t, 10, 2)
	f.svc.SetNormaliserRegistry(&stubRegistry{})
	f.svc.SetFetcher(&stubFetcher{err: errBoom})

	_, err := f.svc.IngestURL(context.Background(), "https://example.edu", domain.IngestOptions{})

	assert.ErrorIs(t, err, errBoom)
}

func TestIngestURL_NotConfigured(t *testing.T) {
	f := newIngestFixture(t, 10, 2)

	_, err := f.svc.IngestURL(context.Background(), "https://example.edu", domain.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		path string
		data []byte
		want string
	}{
		{"guide.md", nil, "text/markdown"},
		{"guide.PDF", nil, "application/pdf"},
		{"notes.txt", nil, "text/plain"},
		{"page.htm", nil, "text/html"},
		{"noext", []byte("<!DOCTYPE html><html></html>"), "text/html"},
		{"noext", []byte("plain words"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIMEType(tt.path, tt.data))
		})
	}
}

func TestPageAt(t *testing.T) {
	starts := []pageStart{{offset: 0, number: 1}, {offset: 5, number: 2}, {offset: 9, number: 3}}

	assert.Equal(t, 1, pageAt(starts, 0))
	assert.Equal(t, 1, pageAt(starts, 4))
	assert.Equal(t, 2, pageAt(starts, 5))
	assert.Equal(t, 3, pageAt(starts, 20))
	assert.Equal(t, 0, pageAt(nil, 3))
}
