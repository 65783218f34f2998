// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// business process agent. AI assistants can ask questions, ingest sources and
// browse ingested documents through it.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
