package driven

import (
	"iter"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// TextSplitter splits extracted text into windows for embedding.
type TextSplitter interface {
	// Windows returns a lazy, restartable sequence of windows over text.
	// Empty text yields no windows.
	Windows(text string) iter.Seq[domain.TextWindow]
}
