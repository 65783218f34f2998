package domain

import "strings"

// RawDocument represents opaque bytes read from a file or fetched from a URL.
// It is the input of normalisation.
type RawDocument struct {
	// URI is the original location (file path or URL).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// Page is one page of extracted text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// ExtractedText is the output of normalisation.
type ExtractedText struct {
	// Pages holds the text. Sources without pages produce a single page numbered 0.
	Pages []Page
}

// SinglePage wraps unpaginated text.
func SinglePage(text string) *ExtractedText {
	return &ExtractedText{Pages: []Page{{Number: 0, Text: text}}}
}

// Text returns all pages joined by newlines.
func (e *ExtractedText) Text() string {
	if e == nil {
		return ""
	}
	parts := make([]string, len(e.Pages))
	for i, p := range e.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// IsEmpty reports whether no page holds non-whitespace text.
func (e *ExtractedText) IsEmpty() bool {
	return strings.TrimSpace(e.Text()) == ""
}
