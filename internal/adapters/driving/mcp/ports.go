package mcp

import (
	"net/http"

	"github.com/custodia-labs/bpa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService

	// Ingest adds URLs and text. Optional; ingest tools are skipped without it.
	Ingest driving.IngestService

	// Document lists ingested records. Optional.
	Document driving.DocumentService

	// Metrics is served on /metrics in HTTP mode. Optional.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
