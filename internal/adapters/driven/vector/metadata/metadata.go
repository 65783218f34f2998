// Package metadata maps chunk metadata to the flat key/value payloads the
// vector backends store alongside each vector.
package metadata

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// Payload keys.
const (
	KeyChunkID    = "chunk_id"
	KeyDocumentID = "document_id"
	KeyChunkIndex = "chunk_index"
	KeyText       = "text"
	KeyAccessRole = "access_role"
	KeyDepartment = "department"
	KeyTitle      = "title"
	KeySource     = "source"
	KeyPage       = "page"
)

// pointNamespace seeds deterministic UUIDs for backends that reject
// arbitrary string IDs.
var pointNamespace = uuid.MustParse("6f2d9a4e-1c3b-5e7f-8a90-b1c2d3e4f567")

// PointID returns a stable UUID for a chunk ID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// ToMap flattens metadata. Empty optional fields are omitted.
func ToMap(chunkID string, m domain.ChunkMetadata) map[string]any {
	out := map[string]any{
		KeyChunkID:    chunkID,
		KeyDocumentID: m.DocumentID,
		KeyChunkIndex: m.ChunkIndex,
		KeyText:       m.Text,
		KeyAccessRole: string(m.AccessRole),
		KeyDepartment: m.Department,
	}
	if m.Title != "" {
		out[KeyTitle] = m.Title
	}
	if m.Source != "" {
		out[KeySource] = m.Source
	}
	if m.Page > 0 {
		out[KeyPage] = m.Page
	}
	return out
}

// ToStrings flattens metadata into string values.
func ToStrings(chunkID string, m domain.ChunkMetadata) map[string]string {
	src := ToMap(chunkID, m)
	out := make(map[string]string, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case string:
			out[k] = val
		case int:
			out[k] = strconv.Itoa(val)
		}
	}
	return out
}

// FromMap rebuilds metadata from a decoded payload. Numbers may arrive as
// any integer or float type, or as strings. It returns the stored chunk ID,
// which is empty when the payload predates it.
func FromMap(values map[string]any) (string, domain.ChunkMetadata) {
	m := domain.ChunkMetadata{
		DocumentID: stringValue(values[KeyDocumentID]),
		ChunkIndex: intValue(values[KeyChunkIndex]),
		Text:       stringValue(values[KeyText]),
		AccessRole: domain.AccessRole(stringValue(values[KeyAccessRole])),
		Department: stringValue(values[KeyDepartment]),
		Title:      stringValue(values[KeyTitle]),
		Source:     stringValue(values[KeySource]),
		Page:       intValue(values[KeyPage]),
	}
	return stringValue(values[KeyChunkID]), m
}

// FromStrings rebuilds metadata from string values.
func FromStrings(values map[string]string) (string, domain.ChunkMetadata) {
	converted := make(map[string]any, len(values))
	for k, v := range values {
		converted[k] = v
	}
	return FromMap(converted)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
