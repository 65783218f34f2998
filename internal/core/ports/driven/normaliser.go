package driven

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// Normaliser extracts plain text from raw document bytes.
// Each normaliser handles specific MIME types (e.g., PDF, HTML).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise extracts text. Returns domain.ErrInvalidInput for nil input.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)
}

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches on MIME type.
type NormaliserRegistry interface {
	// Normalise extracts text using the highest-priority matching normaliser.
	// Returns domain.ErrUnsupportedType when none matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}

// Fetcher retrieves a web resource.
type Fetcher interface {
	// Fetch downloads url and returns its bytes and MIME type.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}
