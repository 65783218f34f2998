package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

func TestSynthesizer_CitationsFollowFragments(t *testing.T) {
	// The generated text cites nothing; citations still come from fragments.
	llm := &mockLLMService{response: "Submit the form by Friday."}
	s := NewSynthesizer(llm, nil, nil, 0)
	frags := []domain.Fragment{
		fragment("a_0", domain.RolePublic, "Leave Policy", "x"),
		fragment("b_0", domain.RolePublic, "", "y"),
	}
	frags[0].Metadata.Page = 4

	got, err := s.Synthesize(context.Background(), "ctx", "q", domain.NoHistory, frags)

	require.NoError(t, err)
	assert.Equal(t, "Submit the form by Friday.", got.Text)
	require.Len(t, got.Citations, 2)
	assert.Equal(t, domain.Citation{Title: "Leave Policy", URL: "Leave Policy.pdf", Page: 4}, got.Citations[0])
	assert.Equal(t, domain.UnknownSourceTitle, got.Citations[1].Title)
	assert.Zero(t, got.TokensUsed)
}

func TestSynthesizer_PromptCarriesInputs(t *testing.T) {
	llm := &mockLLMService{response: "answer"}
	s := NewSynthesizer(llm, nil, nil, 0)

	_, err := s.Synthesize(context.Background(), "CONTEXT-TEXT", "QUESTION-TEXT", "user: earlier", nil)
	require.NoError(t, err)

	prompts := llm.promptsContaining("CONTEXT-TEXT")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "QUESTION-TEXT")
	assert.Contains(t, prompts[0], "user: earlier")
	assert.Contains(t, prompts[0], domain.FallbackAnswer)
}

func TestSynthesizer_CountsTokens(t *testing.T) {
	llm := &mockLLMService{response: "three word answer"}
	s := NewSynthesizer(llm, nil, mockTokenCounter{}, 0)

	got, err := s.Synthesize(context.Background(), "c", "q", "h", nil)

	require.NoError(t, err)
	prompt := llm.promptsContaining("Answer:")[0]
	assert.Equal(t, mockTokenCounter{}.Count(prompt)+3, got.TokensUsed)
}

func TestSynthesizer_Failure(t *testing.T) {
	s := NewSynthesizer(&mockLLMService{err: errBoom}, nil, nil, 0)

	_, err := s.Synthesize(context.Background(), "c", "q", "h", nil)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.True(t, domain.IsGatewayError(err))
}

type stubPromptStore map[string]string

func (s stubPromptStore) Load(name string) (string, error) {
	if p, ok := s[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (s stubPromptStore) Reload() {}

func TestSynthesizer_UsesStoredPrompt(t *testing.T) {
	llm := &mockLLMService{response: "ok"}
	prompts := stubPromptStore{"answer": "Q={question} C={context} H={history} 50% off"}
	s := NewSynthesizer(llm, prompts, nil, 0)

	_, err := s.Synthesize(context.Background(), "c", "q", "h", nil)

	require.NoError(t, err)
	assert.Len(t, llm.promptsContaining("Q=q C=c H=h 50% off"), 1)
}

func TestSynthesizer_DefaultPromptFillsEveryPlaceholder(t *testing.T) {
	llm := &mockLLMService{response: "ok"}
	s := NewSynthesizer(llm, nil, nil, 0)

	_, err := s.Synthesize(context.Background(), "the context", "the question", "user: hi", nil)

	require.NoError(t, err)
	prompts := llm.promptsContaining("the context")
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "the question")
	assert.Contains(t, prompts[0], "user: hi")
	assert.NotContains(t, prompts[0], "{")
}
