package services

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

func TestCompressor_PreservesOrderUnderConcurrency(t *testing.T) {
	// Earlier fragments answer slower so completion order is reversed.
	llm := &mockLLMService{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "alpha"):
			time.Sleep(30 * time.Millisecond)
			return "- A", nil
		case strings.Contains(prompt, "bravo"):
			time.Sleep(15 * time.Millisecond)
			return "- B", nil
		default:
			return "- C", nil
		}
	}}
	c := NewCompressor(llm, nil, CompressorConfig{Concurrency: 3})
	frags := []domain.Fragment{
		fragment("a_0", domain.RolePublic, "A", "alpha"),
		fragment("b_0", domain.RolePublic, "B", "bravo"),
		fragment("c_0", domain.RolePublic, "C", "charlie"),
	}

	out := c.Compress(context.Background(), "q", frags)

	assert.Equal(t, "- A\n\n- B\n\n- C", out)
}

func TestCompressor_FailureFallsBackPerFragment(t *testing.T) {
	long := strings.Repeat("x", 1500)
	llm := &mockLLMService{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "xxxx") {
			return "", errBoom
		}
		return "  - summary  \n", nil
	}}
	c := NewCompressor(llm, nil, CompressorConfig{})
	frags := []domain.Fragment{
		fragment("a_0", domain.RolePublic, "A", "fine text"),
		fragment("b_0", domain.RolePublic, "B", long),
	}

	got := c.Summarise(context.Background(), "q", frags)

	require.Len(t, got, 2)
	assert.Equal(t, "- summary", got[0])
	assert.Equal(t, strings.Repeat("x", DefaultCompressFallbackChars), got[1])
}

func TestCompressor_EmptySummaryIsKept(t *testing.T) {
	c := NewCompressor(&mockLLMService{response: "   "}, nil, CompressorConfig{})

	got := c.Summarise(context.Background(), "q", []domain.Fragment{fragment("a_0", domain.RolePublic, "A", "raw")})

	assert.Equal(t, []string{""}, got, "only a failed call falls back to raw text")
}

func TestCompressor_StoredPromptWithPercentSigns(t *testing.T) {
	llm := &mockLLMService{response: "ok"}
	prompts := stubPromptStore{"compress": "Keep 100% of {doc} for {question}; ignore {other}"}
	c := NewCompressor(llm, prompts, CompressorConfig{})

	c.Summarise(context.Background(), "fees?", []domain.Fragment{fragment("a_0", domain.RolePublic, "A", "text with {question}")})

	assert.Len(t, llm.promptsContaining("Keep 100% of text with {question} for fees?; ignore {other}"), 1)
}

func TestCompressor_TruncatesInput(t *testing.T) {
	llm := &mockLLMService{response: "ok"}
	c := NewCompressor(llm, nil, CompressorConfig{InputChars: 10})
	text := "0123456789ABCDEFGHIJ"

	c.Summarise(context.Background(), "which?", []domain.Fragment{fragment("a_0", domain.RolePublic, "A", text)})

	require.Equal(t, 1, llm.callCount())
	assert.Len(t, llm.promptsContaining("0123456789"), 1)
	assert.Empty(t, llm.promptsContaining("ABCDEF"))
	assert.Len(t, llm.promptsContaining("which?"), 1)
}

func TestCompressor_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	llm := &mockLLMService{respond: func(string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "s", nil
	}}
	c := NewCompressor(llm, nil, CompressorConfig{Concurrency: 2})
	var frags []domain.Fragment
	for i := 0; i < 8; i++ {
		frags = append(frags, fragment("f_0", domain.RolePublic, "F", "text"))
	}

	c.Summarise(context.Background(), "q", frags)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCompressor_NoFragments(t *testing.T) {
	llm := &mockLLMService{}
	c := NewCompressor(llm, nil, CompressorConfig{})

	assert.Equal(t, "", c.Compress(context.Background(), "q", nil))
	assert.Zero(t, llm.callCount())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "héllo", truncateRunes("héllo wörld", 5))
	assert.Equal(t, "", truncateRunes("abc", 0))
}
