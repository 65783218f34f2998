// Package pdf provides a Normaliser for PDF documents. Text is extracted page
// by page so chunks can cite the page they came from.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts one page of text per PDF page, numbered from 1.
// Pages that fail to decode are logged and skipped.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (result *domain.ExtractedText, err error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: malformed pdf %s: %v", domain.ErrInvalidInput, raw.URI, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)
	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("pdf %s: page %d extraction failed: %v", raw.URI, num, err)
			continue
		}

		text = cleanPageText(text)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: num, Text: text})
	}

	return &domain.ExtractedText{Pages: pages}, nil
}

var (
	blankLineRuns = regexp.MustCompile(`\n(?:[ \t]*\n)+`)
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
)

// cleanPageText collapses runs of blank lines into one empty line and trims
// trailing whitespace from each line.
func cleanPageText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
