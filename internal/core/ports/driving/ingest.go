package driving

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// IngestService turns sources into indexed chunks and DocumentRecords.
// Every method is all-or-nothing: on error no record and no vectors remain.
type IngestService interface {
	// IngestText chunks, embeds and indexes already extracted text.
	IngestText(ctx context.Context, text string, opts domain.IngestOptions) (*domain.DocumentRecord, error)

	// IngestFile reads a local file, extracts its text and ingests it.
	IngestFile(ctx context.Context, path string, opts domain.IngestOptions) (*domain.DocumentRecord, error)

	// IngestURL fetches a web page, strips boilerplate and ingests it.
	IngestURL(ctx context.Context, url string, opts domain.IngestOptions) (*domain.DocumentRecord, error)
}
