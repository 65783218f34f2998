package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the API endpoint. Empty selects the provider default.
	BaseURL string

	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generation provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Temperature is passed to every generation call.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend identifies the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendPinecone is the hosted Pinecone service.
	VectorBackendPinecone VectorBackend = "pinecone"

	// VectorBackendQdrant is a Qdrant server reached over gRPC.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendChromem is the embedded chromem-go store.
	VectorBackendChromem VectorBackend = "chromem"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendPinecone, VectorBackendQdrant, VectorBackendChromem:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	Backend VectorBackend

	// Index is the Pinecone index name.
	Index string

	// Host is the Pinecone index host or the Qdrant server host.
	Host string

	// Port is the Qdrant gRPC port.
	Port int

	APIKey string

	// UseTLS enables TLS for Qdrant.
	UseTLS bool

	// Namespace is the default partition for ingestion and retrieval.
	// Qdrant and chromem map it to a collection name.
	Namespace string

	// Path is the chromem persistence directory. Empty keeps vectors in memory.
	Path string

	// Dimensions is the embedding vector size, used when creating collections.
	Dimensions int
}

// PipelineSettings holds chunking and answer pipeline parameters.
type PipelineSettings struct {
	// ChunkSize is the window size in whitespace tokens.
	ChunkSize int

	// ChunkOverlap is the number of tokens shared by consecutive windows.
	ChunkOverlap int

	// TopK is the number of fragments retrieved per query.
	TopK int

	// EmbedConcurrency bounds parallel embedding calls during ingestion.
	EmbedConcurrency int

	// EmbedRPS limits embedding calls per second. Zero means unlimited.
	EmbedRPS float64

	// CompressConcurrency bounds parallel compression calls.
	CompressConcurrency int

	// HistoryWindow is the number of recent messages passed to synthesis.
	HistoryWindow int

	// CompressInputChars truncates each fragment before compression.
	CompressInputChars int

	// CompressFallbackChars truncates the raw fragment when compression fails.
	CompressFallbackChars int

	// RequestTimeout bounds every external call. Zero disables the bound.
	RequestTimeout time.Duration
}

// Validate rejects parameters that would make the pipeline loop or misbehave.
func (p PipelineSettings) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d",
			ErrInvalidConfig, p.ChunkSize, p.ChunkOverlap)
	}
	if p.TopK <= 0 {
		return fmt.Errorf("%w: top k must be positive, got %d", ErrInvalidConfig, p.TopK)
	}
	if p.EmbedConcurrency <= 0 || p.CompressConcurrency <= 0 {
		return fmt.Errorf("%w: concurrency limits must be positive", ErrInvalidConfig)
	}
	if p.EmbedRPS < 0 {
		return fmt.Errorf("%w: embed rps must not be negative", ErrInvalidConfig)
	}
	if p.HistoryWindow < 0 {
		return fmt.Errorf("%w: history window must not be negative", ErrInvalidConfig)
	}
	if p.CompressInputChars <= 0 || p.CompressFallbackChars <= 0 {
		return fmt.Errorf("%w: compression budgets must be positive", ErrInvalidConfig)
	}
	return nil
}

// StorageSettings holds metadata store configuration.
type StorageSettings struct {
	// Path is the data directory. Empty selects ~/.bpa/data.
	Path string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Pipeline  PipelineSettings
	Storage   StorageSettings
}

// DefaultNamespace is the vector partition used when none is configured.
const DefaultNamespace = "esut-2025"

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and come from the config file or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendChromem,
			Port:       6334,
			Namespace:  DefaultNamespace,
			Dimensions: 1536,
		},
		Pipeline: DefaultPipelineSettings(),
	}
}

// DefaultPipelineSettings returns the standard pipeline parameters.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		ChunkSize:             1000,
		ChunkOverlap:          150,
		TopK:                  5,
		EmbedConcurrency:      4,
		CompressConcurrency:   5,
		HistoryWindow:         5,
		CompressInputChars:    3000,
		CompressFallbackChars: 1000,
		RequestTimeout:        60 * time.Second,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
