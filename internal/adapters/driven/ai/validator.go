package ai

import (
	"fmt"
	"slices"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings by pinging the configured service.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding rejects providers without an embedding API before
// pinging the service.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config != nil && config.Provider != "" &&
		!slices.Contains(domain.AllEmbeddingProviders(), config.Provider) {
		return fmt.Errorf("%w: %s cannot produce embeddings", domain.ErrInvalidConfig, config.Provider)
	}
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM pings the configured generation provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}
