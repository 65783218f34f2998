package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestService = (*IngestionService)(nil)

// extensionMIMETypes covers extensions the platform MIME table often lacks.
var extensionMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".pdf":      "application/pdf",
	".html":     "text/html",
	".htm":      "text/html",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".csv":      "text/csv",
}

// IngestConfig holds ingestion parameters.
type IngestConfig struct {
	// Namespace is used when IngestOptions.Namespace is empty.
	Namespace string

	// EmbedConcurrency bounds parallel embedding calls per document.
	EmbedConcurrency int
}

// IngestionService chunks text, embeds every chunk, upserts the batch into
// the vector index and records the document. A document is either fully
// indexed with a matching record, or leaves nothing behind.
type IngestionService struct {
	splitter    driven.TextSplitter
	embedder    driven.EmbeddingService
	vectorIndex driven.VectorIndex
	docStore    driven.DocumentStore
	registry    driven.NormaliserRegistry
	fetcher     driven.Fetcher
	cfg         IngestConfig
	now         func() time.Time
	newID       func() string
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
	vectorIndex driven.VectorIndex,
	docStore driven.DocumentStore,
	cfg IngestConfig,
) *IngestionService {
	if cfg.Namespace == "" {
		cfg.Namespace = domain.DefaultNamespace
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 1
	}
	return &IngestionService{
		splitter:    splitter,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		docStore:    docStore,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.New().String() },
	}
}

// SetNormaliserRegistry enables file and URL ingestion.
func (s *IngestionService) SetNormaliserRegistry(registry driven.NormaliserRegistry) {
	s.registry = registry
}

// SetFetcher enables URL ingestion.
func (s *IngestionService) SetFetcher(fetcher driven.Fetcher) {
	s.fetcher = fetcher
}

// IngestText ingests already extracted text.
func (s *IngestionService) IngestText(
	ctx context.Context, text string, opts domain.IngestOptions,
) (*domain.DocumentRecord, error) {
	return s.ingest(ctx, domain.SinglePage(text), opts)
}

// IngestFile reads and normalises a local file, then ingests it.
func (s *IngestionService) IngestFile(
	ctx context.Context, path string, opts domain.IngestOptions,
) (*domain.DocumentRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: no normalisers configured", domain.ErrUnsupportedType)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	raw := &domain.RawDocument{
		URI:      path,
		MIMEType: DetectMIMEType(path, data),
		Content:  data,
	}
	logger.Debug("File %s detected as %s (%d bytes)", path, raw.MIMEType, len(data))

	extracted, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", path, err)
	}

	opts.SourceKind = domain.SourceKindFile
	if opts.Origin == "" {
		opts.Origin = filepath.Base(path)
	}
	return s.ingest(ctx, extracted, opts)
}

// IngestURL fetches and normalises a web page, then ingests it.
func (s *IngestionService) IngestURL(
	ctx context.Context, url string, opts domain.IngestOptions,
) (*domain.DocumentRecord, error) {
	if s.fetcher == nil || s.registry == nil {
		return nil, fmt.Errorf("%w: URL ingestion is not configured", domain.ErrUnsupportedType)
	}

	raw, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	extracted, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", url, err)
	}

	opts.SourceKind = domain.SourceKindURL
	opts.Origin = url
	return s.ingest(ctx, extracted, opts)
}

// ingest runs the pipeline: chunk, embed all, upsert once, then record.
func (s *IngestionService) ingest(
	ctx context.Context, extracted *domain.ExtractedText, opts domain.IngestOptions,
) (*domain.DocumentRecord, error) {
	logger.Section("Ingestion")

	opts, err := s.normaliseOptions(opts)
	if err != nil {
		return nil, err
	}
	if extracted.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyContent, opts.DocumentTitle())
	}

	docID := s.newID()
	title := opts.DocumentTitle()
	chunks := s.buildChunks(docID, title, extracted, opts)
	logger.Info("Document %s (%q): %d chunks", docID, title, len(chunks))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	ids := chunkIDs(chunks)
	if err := s.vectorIndex.Upsert(ctx, opts.Namespace, chunks); err != nil {
		upsertErr := fmt.Errorf("%w: upsert %d vectors: %w", domain.ErrVectorIndexUnavailable, len(chunks), err)
		return nil, s.compensate(ctx, opts.Namespace, ids, upsertErr)
	}
	logger.Debug("Upserted %d vectors into namespace %q", len(chunks), opts.Namespace)

	now := s.now()
	record := &domain.DocumentRecord{
		ID:            docID,
		Title:         title,
		SourceKind:    opts.SourceKind,
		Origin:        opts.Origin,
		Namespace:     opts.Namespace,
		AccessRole:    opts.AccessRole,
		Department:    opts.Department,
		Version:       1,
		EffectiveDate: opts.EffectiveDate,
		ChunkCount:    len(chunks),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.docStore.CreateDocument(ctx, record); err != nil {
		recordErr := fmt.Errorf("%w: create document record: %w", domain.ErrStoreUnavailable, err)
		return nil, s.compensate(ctx, opts.Namespace, ids, recordErr)
	}

	return record, nil
}

// normaliseOptions applies defaults and validates the options.
func (s *IngestionService) normaliseOptions(opts domain.IngestOptions) (domain.IngestOptions, error) {
	if opts.AccessRole == "" {
		opts.AccessRole = domain.RoleStudent
	}
	if !opts.AccessRole.IsValid() {
		return opts, fmt.Errorf("%w: unknown access role %q", domain.ErrInvalidInput, opts.AccessRole)
	}
	if opts.Department == "" {
		opts.Department = domain.DefaultDepartment
	}
	if opts.Namespace == "" {
		opts.Namespace = s.cfg.Namespace
	}
	if opts.SourceKind == "" {
		opts.SourceKind = domain.SourceKindFile
	}
	if !opts.SourceKind.IsValid() {
		return opts, fmt.Errorf("%w: unknown source kind %q", domain.ErrInvalidInput, opts.SourceKind)
	}
	return opts, nil
}

// pageStart is the token offset at which a page begins.
type pageStart struct {
	offset int
	number int
}

// buildChunks windows the extracted text and attaches chunk metadata.
func (s *IngestionService) buildChunks(
	docID, title string, extracted *domain.ExtractedText, opts domain.IngestOptions,
) []domain.Chunk {
	starts := make([]pageStart, 0, len(extracted.Pages))
	offset := 0
	for _, p := range extracted.Pages {
		starts = append(starts, pageStart{offset: offset, number: p.Number})
		offset += len(strings.Fields(p.Text))
	}

	var chunks []domain.Chunk
	for w := range s.splitter.Windows(extracted.Text()) {
		chunks = append(chunks, domain.Chunk{
			ID: domain.ChunkID(docID, w.Index),
			Metadata: domain.ChunkMetadata{
				DocumentID: docID,
				ChunkIndex: w.Index,
				Text:       w.Text,
				AccessRole: opts.AccessRole,
				Department: opts.Department,
				Title:      title,
				Source:     opts.Origin,
				Page:       pageAt(starts, w.Start),
			},
		})
	}
	return chunks
}

// pageAt returns the number of the page containing token offset.
func pageAt(starts []pageStart, offset int) int {
	page := 0
	for _, p := range starts {
		if p.offset > offset {
			break
		}
		page = p.number
	}
	return page
}

// embedChunks embeds every chunk with bounded concurrency.
// The first failure cancels the remaining calls and fails the document.
func (s *IngestionService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)

	for i := range chunks {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, chunks[i].Metadata.Text)
			if err != nil {
				return fmt.Errorf("%w: embed chunk %d: %w", domain.ErrEmbeddingUnavailable, i, err)
			}
			if len(vec) == 0 {
				return fmt.Errorf("%w: embed chunk %d: empty vector", domain.ErrEmbeddingUnavailable, i)
			}
			chunks[i].Embedding = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("Embedding failed, document not ingested: %v", err)
		return err
	}
	return nil
}

// compensate removes vectors written for a document that could not be completed.
func (s *IngestionService) compensate(ctx context.Context, namespace string, ids []string, cause error) error {
	logger.Warn("Removing %d vectors after failed ingestion: %v", len(ids), cause)
	// The caller's context may already be cancelled; cleanup still runs.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.vectorIndex.Delete(cleanupCtx, namespace, ids); err != nil {
		logger.Error("Failed to remove orphan vectors: %v", err)
		return errors.Join(cause, fmt.Errorf("remove orphan vectors: %w", err))
	}
	return cause
}

func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

// DetectMIMEType guesses the content type from the extension, then the content.
func DetectMIMEType(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}
