package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"bpa://documents/doc-1", "doc-1"},
		{"bpa://documents/", ""},
		{"bpa://documents", ""},
		{"other://documents/doc-1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDocumentID(tt.uri))
		})
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	docs := &mockDocumentService{documents: []domain.DocumentRecord{{ID: "doc-1", Title: "Handbook"}}}
	server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Document: docs})
	require.NoError(t, err)

	result, err := server.handleDocumentsResource(context.Background(), readRequest("bpa://documents"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, `"title": "Handbook"`)
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document", func(t *testing.T) {
		docs := &mockDocumentService{document: &domain.DocumentRecord{ID: "doc-1", Title: "Handbook"}}
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Document: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentResource(ctx, readRequest("bpa://documents/doc-1"))

		require.NoError(t, err)
		assert.Equal(t, "bpa://documents/doc-1", result.Contents[0].URI)
		assert.Contains(t, result.Contents[0].Text, `"id": "doc-1"`)
	})

	t.Run("missing document", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Document: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentResource(ctx, readRequest("bpa://documents/nope"))

		assert.Error(t, err)
	})

	t.Run("malformed uri", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Document: &mockDocumentService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentResource(ctx, readRequest("bpa://documents/"))

		assert.Error(t, err)
	})
}
