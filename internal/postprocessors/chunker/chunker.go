// Package chunker splits text into overlapping fixed-size windows of
// whitespace-delimited tokens.
package chunker

import (
	"fmt"
	"iter"
	"strings"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of tokens per window.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of tokens shared by consecutive windows.
const DefaultChunkOverlap = 150

// Ensure Chunker implements the interface.
var _ driven.TextSplitter = (*Chunker)(nil)

// Chunker produces token windows of a fixed size advancing by size-overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the window size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between windows in tokens.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker. It returns domain.ErrInvalidConfig unless
// 0 <= overlap < size, since the window would otherwise never advance.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, c.chunkSize)
	}
	if c.overlap < 0 || c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfig, c.overlap, c.chunkSize)
	}
	return c, nil
}

// ChunkSize returns the window size in tokens.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }

// Stride returns how far each window advances.
func (c *Chunker) Stride() int { return c.chunkSize - c.overlap }

// Windows returns a lazy sequence of windows over text. The sequence may be
// ranged over any number of times; each pass re-tokenises text.
func (c *Chunker) Windows(text string) iter.Seq[domain.TextWindow] {
	return func(yield func(domain.TextWindow) bool) {
		tokens := strings.Fields(text)
		for i, start := 0, 0; start < len(tokens); i, start = i+1, start+c.Stride() {
			end := min(start+c.chunkSize, len(tokens))
			w := domain.TextWindow{
				Index: i,
				Start: start,
				End:   end,
				Text:  strings.Join(tokens[start:end], " "),
			}
			if !yield(w) {
				return
			}
		}
	}
}

// Split collects every window of text.
func (c *Chunker) Split(text string) []domain.TextWindow {
	windows := make([]domain.TextWindow, 0, c.Count(len(strings.Fields(text))))
	for w := range c.Windows(text) {
		windows = append(windows, w)
	}
	return windows
}

// Count returns the number of windows produced for a text of n tokens.
func (c *Chunker) Count(n int) int {
	if n <= 0 {
		return 0
	}
	return (n-1)/c.Stride() + 1
}
