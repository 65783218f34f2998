package normalisers

import (
	"context"
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/normalisers/docx"
	"github.com/custodia-labs/bpa/internal/normalisers/html"
	"github.com/custodia-labs/bpa/internal/normalisers/markdown"
	"github.com/custodia-labs/bpa/internal/normalisers/pdf"
	"github.com/custodia-labs/bpa/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to the highest-priority normaliser for their
// MIME type. Registration order breaks priority ties.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]driven.Normaliser)}
}

// DefaultRegistry returns a registry holding every built-in normaliser.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(docx.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range n.SupportedMIMETypes() {
		key := strings.ToLower(t)
		list := append(r.byType[key], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[key] = list
	}
}

// Normalise extracts text with the best normaliser for raw.MIMEType.
// MIME parameters such as charset are ignored when matching.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mediaType := strings.ToLower(strings.TrimSpace(raw.MIMEType))
	if parsed, _, err := mime.ParseMediaType(raw.MIMEType); err == nil {
		mediaType = parsed
	}

	r.mu.RLock()
	candidates := r.byType[mediaType]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedType, mediaType, raw.URI)
	}

	extracted, err := candidates[0].Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	if extracted.IsEmpty() {
		return nil, fmt.Errorf("%w: no text in %s", domain.ErrEmptyContent, raw.URI)
	}
	return extracted, nil
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
