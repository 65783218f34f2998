package services

import (
	"strings"

	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Placeholders substituted into prompt templates.
const (
	PlaceholderDoc      = "{doc}"
	PlaceholderQuestion = "{question}"
	PlaceholderHistory  = "{history}"
	PlaceholderContext  = "{context}"
)

// defaultCompressPrompt is the fallback prompt when no PromptStore is configured.
const defaultCompressPrompt = `You are an AI assistant helping condense university business process documents.
Given the following document text, extract ONLY the key facts relevant to answering the question.

Document:
{doc}

Question:
{question}

Summary (max 5 bullet points):`

// defaultAnswerPrompt is the fallback prompt when no PromptStore is configured.
const defaultAnswerPrompt = `You are the university Business Process Agent (BPA).
Answer ONLY using the provided context.

Rules:
- Do NOT guess or invent information.
- Always cite sources in [brackets] using the document title or filename.
- If unsure, say exactly: "I don't have a verified source for that."
- Keep answers concise unless more detail is requested.
- Consider the conversation history to keep answers consistent.

Previous conversation:
{history}

Context:
{context}

Question:
{question}

Answer:`

// loadPrompt returns the named template from store, or fallback when the
// store is nil or has no such prompt.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		if err != nil {
			logger.Debug("Prompt %q not loaded, using default: %v", name, err)
		}
		return fallback
	}
	return prompt
}

// renderPrompt substitutes placeholder/value pairs into template in one pass.
// Any other text, including '%' and unknown braces, is left as written, and
// placeholders inside substituted values are not expanded again.
func renderPrompt(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}

// DefaultPrompts returns the built-in templates keyed by prompt name.
// A PromptStore writes them out as editable starting points.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptCompress: defaultCompressPrompt,
		driven.PromptAnswer:   defaultAnswerPrompt,
	}
}
