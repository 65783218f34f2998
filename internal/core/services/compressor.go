package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Compression budgets, in characters.
const (
	DefaultCompressInputChars    = 3000
	DefaultCompressFallbackChars = 1000
	DefaultCompressConcurrency   = 5
)

// CompressorConfig holds compression parameters.
type CompressorConfig struct {
	InputChars    int
	FallbackChars int
	Concurrency   int
	Temperature   float64
}

// Compressor reduces each fragment to question-relevant bullet facts.
// A failed call falls back to a raw truncation of that fragment only.
type Compressor struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     CompressorConfig
}

// NewCompressor creates a compressor. prompts may be nil.
func NewCompressor(llm driven.LLMService, prompts driven.PromptStore, cfg CompressorConfig) *Compressor {
	if cfg.InputChars <= 0 {
		cfg.InputChars = DefaultCompressInputChars
	}
	if cfg.FallbackChars <= 0 {
		cfg.FallbackChars = DefaultCompressFallbackChars
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultCompressConcurrency
	}
	return &Compressor{llm: llm, prompts: prompts, cfg: cfg}
}

// Summarise returns one summary per fragment, in fragment order.
func (c *Compressor) Summarise(ctx context.Context, question string, fragments []domain.Fragment) []string {
	template := loadPrompt(c.prompts, driven.PromptCompress, defaultCompressPrompt)
	summaries := make([]string, len(fragments))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, f := range fragments {
		g.Go(func() error {
			summaries[i] = c.summarise(ctx, template, question, f)
			return nil
		})
	}
	_ = g.Wait()

	return summaries
}

// Compress returns the summaries joined by blank lines.
func (c *Compressor) Compress(ctx context.Context, question string, fragments []domain.Fragment) string {
	return strings.Join(c.Summarise(ctx, question, fragments), "\n\n")
}

func (c *Compressor) summarise(ctx context.Context, template, question string, f domain.Fragment) string {
	prompt := renderPrompt(template,
		PlaceholderDoc, truncateRunes(f.Metadata.Text, c.cfg.InputChars),
		PlaceholderQuestion, question,
	)
	summary, err := c.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: c.cfg.Temperature})
	if err != nil {
		logger.Warn("Compression failed for fragment %s, using raw text: %v", f.ID, err)
		return truncateRunes(f.Metadata.Text, c.cfg.FallbackChars)
	}
	// An empty summary from a successful call is kept.
	return strings.TrimSpace(summary)
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
