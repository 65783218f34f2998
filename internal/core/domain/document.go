package domain

import (
	"fmt"
	"time"
)

// SourceKind identifies where an ingested document came from.
type SourceKind string

// Available source kinds.
const (
	// SourceKindFile is an uploaded or local file (PDF, HTML, Markdown, text).
	SourceKindFile SourceKind = "FILE"

	// SourceKindURL is a web page fetched over HTTP.
	SourceKindURL SourceKind = "URL"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceKindFile || k == SourceKindURL
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// DefaultDocumentTitle is used when neither a file name nor a URL is known.
const DefaultDocumentTitle = "Untitled Document"

// DefaultDepartment is the department assigned when none is given.
const DefaultDepartment = "general"

// DocumentRecord represents one ingested source.
// It is created once per ingestion call and never mutated afterwards.
type DocumentRecord struct {
	// ID is the opaque document identifier. Chunk IDs derive from it.
	ID string `json:"id"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// SourceKind is FILE or URL.
	SourceKind SourceKind `json:"sourceKind"`

	// Origin is the URL or file name the text came from.
	Origin string `json:"origin,omitempty"`

	// Namespace is the vector-index partition holding the chunks.
	Namespace string `json:"namespace"`

	// AccessRole tags every chunk of the document.
	AccessRole AccessRole `json:"accessRole"`

	// Department tags every chunk of the document.
	Department string `json:"department"`

	// Version starts at 1.
	Version int `json:"version"`

	// EffectiveDate is optional.
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`

	// ChunkCount equals the number of vectors written for this document.
	ChunkCount int `json:"chunkCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IngestOptions carries the per-document attributes of an ingestion call.
type IngestOptions struct {
	// Title overrides the derived title. Optional.
	Title string

	// AccessRole defaults to RoleStudent.
	AccessRole AccessRole

	// Department defaults to DefaultDepartment.
	Department string

	// Namespace defaults to the configured namespace.
	Namespace string

	// SourceKind defaults to SourceKindFile.
	SourceKind SourceKind

	// Origin is the URL or file name.
	Origin string

	// EffectiveDate is optional.
	EffectiveDate *time.Time
}

// DocumentTitle derives a record title: explicit title, then file name or URL,
// then DefaultDocumentTitle.
func (o IngestOptions) DocumentTitle() string {
	if o.Title != "" {
		return o.Title
	}
	if o.Origin != "" {
		return o.Origin
	}
	return DefaultDocumentTitle
}

// ChunkID returns the deterministic vector-index identity of a chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}

// ChunkMetadata is the closed metadata structure stored with every vector.
type ChunkMetadata struct {
	DocumentID string     `json:"document_id"`
	ChunkIndex int        `json:"chunk_index"`
	Text       string     `json:"text"`
	AccessRole AccessRole `json:"access_role"`
	Department string     `json:"department"`

	// Title and Source back citations. Source is the URL or file name.
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`

	// Page is the 1-based page holding the chunk's first token, 0 when unknown.
	Page int `json:"page,omitempty"`
}

// Chunk is a transient window of a document prepared for the vector index.
type Chunk struct {
	// ID is ChunkID(Metadata.DocumentID, Metadata.ChunkIndex).
	ID string

	// Embedding is the vector for Metadata.Text.
	Embedding []float32

	Metadata ChunkMetadata
}

// Fragment is a chunk returned by a similarity query.
type Fragment struct {
	ID       string
	Score    float32
	Metadata ChunkMetadata
}

// TextWindow is one window of whitespace tokens produced by chunking.
// Start and End are token offsets into the source text, End exclusive.
type TextWindow struct {
	Index int
	Start int
	End   int
	Text  string
}
