package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from ingested documents"`
	Role           string `json:"role,omitempty" jsonschema:"caller access role: public, student (default) or staff"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"continue an existing conversation"`
	UserID         string `json:"user_id,omitempty" jsonschema:"authenticated user owning the conversation"`
	SessionID      string `json:"session_id,omitempty" jsonschema:"anonymous session owning the conversation when no user is given"`
}

// CitationOutput is one cited source of an answer.
type CitationOutput struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Page  int    `json:"page,omitempty"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	ConversationID string           `json:"conversation_id,omitempty"`
	Answer         string           `json:"answer"`
	Citations      []CitationOutput `json:"citations"`
	SourceCount    int              `json:"source_count"`
	RoleUsed       string           `json:"role_used"`
	Error          bool             `json:"error,omitempty"`
	Message        string           `json:"message,omitempty"`

	// SessionID is set when the server generated an anonymous session.
	SessionID string `json:"session_id,omitempty"`
}

// IngestURLInput is the input schema for the ingest_url tool.
type IngestURLInput struct {
	URL        string `json:"url" jsonschema:"http or https URL of the page to ingest"`
	Role       string `json:"role,omitempty" jsonschema:"access role of the chunks (default student)"`
	Department string `json:"department,omitempty" jsonschema:"owning department (default general)"`
}

// IngestTextInput is the input schema for the ingest_text tool.
type IngestTextInput struct {
	Text       string `json:"text" jsonschema:"the text to ingest"`
	Title      string `json:"title,omitempty" jsonschema:"document title"`
	Role       string `json:"role,omitempty" jsonschema:"access role of the chunks (default student)"`
	Department string `json:"department,omitempty" jsonschema:"owning department (default general)"`
}

// DocumentResult is the tool representation of a document record.
type DocumentResult struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourceKind string `json:"source_kind"`
	Origin     string `json:"origin,omitempty"`
	AccessRole string `json:"access_role"`
	Department string `json:"department"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

// DocumentOutput is the output schema of the ingest tools.
type DocumentOutput struct {
	Document DocumentResult `json:"document"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentResult `json:"documents"`
	Count     int              `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about university processes from ingested documents, with citations",
	}, s.handleAsk)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_url",
			Description: "Fetch a web page and add it to the knowledge base",
		}, s.handleIngestURL)
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_text",
			Description: "Add plain text to the knowledge base",
		}, s.handleIngestText)
	}

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List ingested documents, newest first",
		}, s.handleListDocuments)
	}
}

// handleAsk handles the ask tool invocation. Pipeline failures are
// reported in the answer meta rather than as tool errors.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	role, err := domain.ParseAccessRole(input.Role)
	if err != nil {
		return nil, AskOutput{}, err
	}

	var out AskOutput
	var owner domain.Owner
	switch {
	case input.UserID != "":
		owner = domain.AuthenticatedUser(input.UserID)
	case input.SessionID != "":
		owner = domain.AnonymousSession(input.SessionID)
	default:
		out.SessionID = uuid.New().String()
		owner = domain.AnonymousSession(out.SessionID)
	}

	answer := s.ports.Answer.AnswerQuery(ctx, domain.AnswerRequest{
		Query:          input.Question,
		Role:           role,
		ConversationID: input.ConversationID,
		Owner:          owner,
	})
	out.ConversationID = answer.ConversationID
	out.Answer = answer.Answer
	out.Citations = make([]CitationOutput, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		out.Citations = append(out.Citations, CitationOutput(c))
	}
	out.SourceCount = answer.Meta.SourceCount
	out.RoleUsed = answer.Meta.RoleUsed.String()
	out.Error = answer.Meta.Error
	out.Message = answer.Meta.Message
	return nil, out, nil
}

// handleIngestURL handles the ingest_url tool invocation.
func (s *Server) handleIngestURL(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestURLInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	opts, err := ingestOptions("", input.Role, input.Department)
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	rec, err := s.ports.Ingest.IngestURL(ctx, input.URL, opts)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("ingesting %s: %w", input.URL, err)
	}
	return nil, DocumentOutput{Document: toDocumentResult(rec)}, nil
}

// handleIngestText handles the ingest_text tool invocation.
func (s *Server) handleIngestText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestTextInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	opts, err := ingestOptions(input.Title, input.Role, input.Department)
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	rec, err := s.ports.Ingest.IngestText(ctx, input.Text, opts)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("ingesting text: %w", err)
	}
	return nil, DocumentOutput{Document: toDocumentResult(rec)}, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, fmt.Errorf("listing documents: %w", err)
	}

	results := make([]DocumentResult, 0, len(docs))
	for i := range docs {
		results = append(results, toDocumentResult(&docs[i]))
	}
	return nil, ListDocumentsOutput{Documents: results, Count: len(results)}, nil
}

func toDocumentResult(rec *domain.DocumentRecord) DocumentResult {
	return DocumentResult{
		ID:         rec.ID,
		Title:      rec.Title,
		SourceKind: rec.SourceKind.String(),
		Origin:     rec.Origin,
		AccessRole: rec.AccessRole.String(),
		Department: rec.Department,
		ChunkCount: rec.ChunkCount,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	}
}

func ingestOptions(title, role, department string) (domain.IngestOptions, error) {
	r, err := domain.ParseAccessRole(role)
	if err != nil {
		return domain.IngestOptions{}, err
	}
	return domain.IngestOptions{
		Title:      title,
		AccessRole: r,
		Department: department,
	}, nil
}
