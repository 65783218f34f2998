package driven

import "github.com/custodia-labs/bpa/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding client from config and pings it.
	// Unconfigured settings pass.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM builds the LLM client from config and pings it.
	// Unconfigured settings pass.
	ValidateLLM(config *domain.LLMSettings) error
}
