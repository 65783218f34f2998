package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Synthesis is the output of answer synthesis.
type Synthesis struct {
	Text      string
	Citations []domain.Citation

	// TokensUsed counts prompt and answer tokens. Zero without a counter.
	TokensUsed int
}

// Synthesizer produces the final cited answer with one generation call.
type Synthesizer struct {
	llm         driven.LLMService
	prompts     driven.PromptStore
	tokens      driven.TokenCounter
	temperature float64
}

// NewSynthesizer creates a synthesizer. prompts and tokens may be nil.
func NewSynthesizer(
	llm driven.LLMService,
	prompts driven.PromptStore,
	tokens driven.TokenCounter,
	temperature float64,
) *Synthesizer {
	return &Synthesizer{llm: llm, prompts: prompts, tokens: tokens, temperature: temperature}
}

// Synthesize answers question from contextText and history.
// Citations come from fragments, one per fragment in the same order,
// whatever the generated text says.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	contextText, question, history string,
	fragments []domain.Fragment,
) (*Synthesis, error) {
	template := loadPrompt(s.prompts, driven.PromptAnswer, defaultAnswerPrompt)
	prompt := renderPrompt(template,
		PlaceholderHistory, history,
		PlaceholderContext, contextText,
		PlaceholderQuestion, question,
	)

	text, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: s.temperature})
	if err != nil {
		return nil, fmt.Errorf("%w: synthesize: %w", domain.ErrLLMUnavailable, err)
	}
	text = strings.TrimSpace(text)

	citations := make([]domain.Citation, len(fragments))
	for i, f := range fragments {
		citations[i] = domain.CitationFor(f)
	}

	result := &Synthesis{Text: text, Citations: citations}
	if s.tokens != nil {
		result.TokensUsed = s.tokens.Count(prompt) + s.tokens.Count(text)
	}
	return result, nil
}

// ModelName returns the generation model.
func (s *Synthesizer) ModelName() string {
	return s.llm.ModelName()
}
