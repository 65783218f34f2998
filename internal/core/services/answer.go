package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// AnswerService runs the answer pipeline:
// conversation, retrieval, compression, synthesis, then the turn append.
type AnswerService struct {
	conversations *ConversationManager
	retriever     *Retriever
	compressor    *Compressor
	synthesizer   *Synthesizer
}

// NewAnswerService creates a new answer service.
func NewAnswerService(
	conversations *ConversationManager,
	retriever *Retriever,
	compressor *Compressor,
	synthesizer *Synthesizer,
) *AnswerService {
	return &AnswerService{
		conversations: conversations,
		retriever:     retriever,
		compressor:    compressor,
		synthesizer:   synthesizer,
	}
}

// AnswerQuery answers req. Failures are reported in Meta, never as an error,
// and leave no new conversation behind.
func (s *AnswerService) AnswerQuery(ctx context.Context, req domain.AnswerRequest) *domain.Answer {
	logger.Section("Answer")

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return domain.FailedAnswer(req, fmt.Errorf("%w: query is required", domain.ErrInvalidInput))
	}
	if req.Role == "" {
		req.Role = domain.RoleStudent
	}
	if !req.Role.IsValid() {
		return domain.FailedAnswer(req, fmt.Errorf("%w: unknown access role %q", domain.ErrInvalidInput, req.Role))
	}

	conv, created, err := s.conversations.GetOrCreate(ctx, req.ConversationID, req.Owner, req.Role)
	if err != nil {
		return s.fail(req, err)
	}
	requested := req.ConversationID
	req.ConversationID = conv.ID

	answer, err := s.run(ctx, req, conv)
	if err != nil {
		if created && len(conv.Messages) == 0 {
			s.conversations.Discard(ctx, conv)
			req.ConversationID = requested
		}
		return s.fail(req, err)
	}
	return answer
}

func (s *AnswerService) run(ctx context.Context, req domain.AnswerRequest, conv *domain.Conversation) (*domain.Answer, error) {
	history := s.conversations.History(conv)

	fragments, err := s.retriever.Retrieve(ctx, req.Query, req.Role)
	if err != nil {
		return nil, err
	}
	logger.Info("Retrieved %d fragments for %q", len(fragments), req.Query)

	if len(fragments) == 0 {
		if err := s.conversations.AppendTurn(ctx, conv, req.Query, domain.FallbackAnswer); err != nil {
			return nil, err
		}
		return s.result(req, conv, domain.FallbackAnswer, []domain.Citation{}, 0, ""), nil
	}

	contextText := s.compressor.Compress(ctx, req.Query, fragments)

	synthesis, err := s.synthesizer.Synthesize(ctx, contextText, req.Query, history, fragments)
	if err != nil {
		return nil, err
	}

	if err := s.conversations.AppendTurn(ctx, conv, req.Query, synthesis.Text); err != nil {
		return nil, err
	}

	return s.result(req, conv, synthesis.Text, synthesis.Citations, synthesis.TokensUsed, s.synthesizer.ModelName()), nil
}

func (s *AnswerService) result(
	req domain.AnswerRequest,
	conv *domain.Conversation,
	text string,
	citations []domain.Citation,
	tokens int,
	model string,
) *domain.Answer {
	history := make([]domain.Message, len(conv.Messages))
	copy(history, conv.Messages)

	return &domain.Answer{
		ConversationID: conv.ID,
		Answer:         text,
		Citations:      citations,
		History:        history,
		Meta: domain.AnswerMeta{
			SourceCount: len(citations),
			RoleUsed:    req.Role,
			TokensUsed:  tokens,
			Query:       req.Query,
			Model:       model,
		},
	}
}

func (s *AnswerService) fail(req domain.AnswerRequest, err error) *domain.Answer {
	logger.Warn("Answer failed for %q: %v", req.Query, err)
	return domain.FailedAnswer(req, err)
}
