package mcp

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer  *domain.Answer
	lastReq domain.AnswerRequest
}

func (m *mockAnswerService) AnswerQuery(_ context.Context, req domain.AnswerRequest) *domain.Answer {
	m.lastReq = req
	if m.answer != nil {
		return m.answer
	}
	return &domain.Answer{Answer: domain.FallbackAnswer, Meta: domain.AnswerMeta{RoleUsed: req.Role}}
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	record   *domain.DocumentRecord
	err      error
	lastOpts domain.IngestOptions
	lastArg  string
}

func (m *mockIngestService) IngestText(_ context.Context, text string, opts domain.IngestOptions) (*domain.DocumentRecord, error) {
	return m.ingest(text, opts)
}

func (m *mockIngestService) IngestFile(_ context.Context, path string, opts domain.IngestOptions) (*domain.DocumentRecord, error) {
	return m.ingest(path, opts)
}

func (m *mockIngestService) IngestURL(_ context.Context, url string, opts domain.IngestOptions) (*domain.DocumentRecord, error) {
	return m.ingest(url, opts)
}

func (m *mockIngestService) ingest(arg string, opts domain.IngestOptions) (*domain.DocumentRecord, error) {
	m.lastArg = arg
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.DocumentRecord
	document  *domain.DocumentRecord
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentRecord, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.DocumentRecord, error) {
	return m.document, m.err
}
