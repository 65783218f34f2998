package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations return an error and
	// callers fall back to their built-in template.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptCompress reduces one fragment to question-relevant bullet facts.
	// The template uses {doc} (fragment text) and {question}.
	PromptCompress = "compress"

	// PromptAnswer synthesises the final cited answer.
	// The template uses {history}, {context} and {question}.
	PromptAnswer = "answer"
)
