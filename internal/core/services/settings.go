package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTemperature   = "llm.temperature"
	keyVectorBackend    = "vector.backend"
	keyVectorIndex      = "vector.index"
	keyVectorHost       = "vector.host"
	keyVectorPort       = "vector.port"
	keyVectorAPIKey     = "vector.api_key"
	keyVectorUseTLS     = "vector.use_tls"
	keyVectorNamespace  = "vector.namespace"
	keyVectorPath       = "vector.path"
	keyVectorDims       = "vector.dimensions"
	keyChunkSize        = "pipeline.chunk_size"
	keyChunkOverlap     = "pipeline.chunk_overlap"
	keyTopK             = "pipeline.top_k"
	keyEmbedConcurrency = "pipeline.embed_concurrency"
	keyEmbedRPS         = "pipeline.embed_rps"
	keyCompressConc     = "pipeline.compress_concurrency"
	keyHistoryWindow    = "pipeline.history_window"
	keyCompressInput    = "pipeline.compress_input_chars"
	keyCompressFallback = "pipeline.compress_fallback_chars"
	keyRequestTimeout   = "pipeline.request_timeout"
	keyStoragePath      = "storage.path"
)

// Environment variables that fill API keys absent from the config file.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvPineconeKey  = "PINECONE_API_KEY"
	EnvQdrantKey    = "QDRANT_API_KEY"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindProvider
	kindBackend
)

// settableKeys maps every key accepted by Set to its value type.
var settableKeys = map[string]valueKind{
	keyEmbedProvider:    kindProvider,
	keyEmbedModel:       kindString,
	keyEmbedBaseURL:     kindString,
	keyEmbedAPIKey:      kindString,
	keyLLMProvider:      kindProvider,
	keyLLMModel:         kindString,
	keyLLMBaseURL:       kindString,
	keyLLMAPIKey:        kindString,
	keyLLMTemperature:   kindFloat,
	keyVectorBackend:    kindBackend,
	keyVectorIndex:      kindString,
	keyVectorHost:       kindString,
	keyVectorPort:       kindInt,
	keyVectorAPIKey:     kindString,
	keyVectorUseTLS:     kindBool,
	keyVectorNamespace:  kindString,
	keyVectorPath:       kindString,
	keyVectorDims:       kindInt,
	keyChunkSize:        kindInt,
	keyChunkOverlap:     kindInt,
	keyTopK:             kindInt,
	keyEmbedConcurrency: kindInt,
	keyEmbedRPS:         kindFloat,
	keyCompressConc:     kindInt,
	keyHistoryWindow:    kindInt,
	keyCompressInput:    kindInt,
	keyCompressFallback: kindInt,
	keyRequestTimeout:   kindDuration,
	keyStoragePath:      kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// API keys missing from the config file are read from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	dp := defaults.Pipeline

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		Vector: domain.VectorSettings{
			Backend:    s.getBackend(defaults.Vector.Backend),
			Index:      s.configStore.GetString(keyVectorIndex),
			Host:       s.configStore.GetString(keyVectorHost),
			Port:       s.getInt(keyVectorPort, defaults.Vector.Port),
			APIKey:     s.configStore.GetString(keyVectorAPIKey),
			UseTLS:     s.getBool(keyVectorUseTLS, defaults.Vector.UseTLS),
			Namespace:  s.getString(keyVectorNamespace, defaults.Vector.Namespace),
			Path:       s.configStore.GetString(keyVectorPath),
			Dimensions: s.getInt(keyVectorDims, defaults.Vector.Dimensions),
		},
		Pipeline: domain.PipelineSettings{
			ChunkSize:             s.getInt(keyChunkSize, dp.ChunkSize),
			ChunkOverlap:          s.getIntAllowZero(keyChunkOverlap, dp.ChunkOverlap),
			TopK:                  s.getInt(keyTopK, dp.TopK),
			EmbedConcurrency:      s.getInt(keyEmbedConcurrency, dp.EmbedConcurrency),
			EmbedRPS:              s.getFloat(keyEmbedRPS, dp.EmbedRPS),
			CompressConcurrency:   s.getInt(keyCompressConc, dp.CompressConcurrency),
			HistoryWindow:         s.getIntAllowZero(keyHistoryWindow, dp.HistoryWindow),
			CompressInputChars:    s.getInt(keyCompressInput, dp.CompressInputChars),
			CompressFallbackChars: s.getInt(keyCompressFallback, dp.CompressFallbackChars),
			RequestTimeout:        s.getDuration(keyRequestTimeout, dp.RequestTimeout),
		},
		Storage: domain.StorageSettings{
			Path: s.configStore.GetString(keyStoragePath),
		},
	}

	s.fillFromEnv(settings)
	return settings, nil
}

// fillFromEnv sets API keys that the config file leaves empty.
func (s *SettingsService) fillFromEnv(settings *domain.AppSettings) {
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.providerKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.providerKey(settings.LLM.Provider)
	}
	if settings.Vector.APIKey == "" {
		switch settings.Vector.Backend {
		case domain.VectorBackendPinecone:
			settings.Vector.APIKey = s.getenv(EnvPineconeKey)
		case domain.VectorBackendQdrant:
			settings.Vector.APIKey = s.getenv(EnvQdrantKey)
		case domain.VectorBackendChromem:
		}
	}
}

func (s *SettingsService) providerKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(EnvAnthropicKey)
	default:
		return ""
	}
}

// Save persists application settings.
// API keys are only written when set, so keys from the environment
// stay out of the file unless given explicitly.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Pipeline.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyVectorBackend, settings.Vector.Backend.String()},
		{keyVectorIndex, settings.Vector.Index},
		{keyVectorHost, settings.Vector.Host},
		{keyVectorPort, settings.Vector.Port},
		{keyVectorUseTLS, settings.Vector.UseTLS},
		{keyVectorNamespace, settings.Vector.Namespace},
		{keyVectorPath, settings.Vector.Path},
		{keyVectorDims, settings.Vector.Dimensions},
		{keyChunkSize, settings.Pipeline.ChunkSize},
		{keyChunkOverlap, settings.Pipeline.ChunkOverlap},
		{keyTopK, settings.Pipeline.TopK},
		{keyEmbedConcurrency, settings.Pipeline.EmbedConcurrency},
		{keyEmbedRPS, settings.Pipeline.EmbedRPS},
		{keyCompressConc, settings.Pipeline.CompressConcurrency},
		{keyHistoryWindow, settings.Pipeline.HistoryWindow},
		{keyCompressInput, settings.Pipeline.CompressInputChars},
		{keyCompressFallback, settings.Pipeline.CompressFallbackChars},
		{keyRequestTimeout, settings.Pipeline.RequestTimeout.String()},
		{keyStoragePath, settings.Storage.Path},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		keyEmbedAPIKey:  settings.Embedding.APIKey,
		keyLLMAPIKey:    settings.LLM.APIKey,
		keyVectorAPIKey: settings.Vector.APIKey,
	}
	for key, val := range secrets {
		if val == "" {
			continue
		}
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// Set parses value for key and stores it.
// Pipeline keys are validated together with the current pipeline settings.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if isPipelineKey(key) {
		current, err := s.Get()
		if err != nil {
			return err
		}
		candidate := current.Pipeline
		applyPipelineValue(&candidate, key, parsed)
		if err := candidate.Validate(); err != nil {
			return err
		}
	}

	if key == keyEmbedModel {
		if d, ok := domain.EmbeddingDimensions()[value]; ok {
			if err := s.configStore.Set(keyVectorDims, d); err != nil {
				return fmt.Errorf("save %s: %w", keyVectorDims, err)
			}
		}
	}

	if kind == kindDuration {
		parsed = value
	}
	return s.configStore.Set(key, parsed)
}

// Keys lists the settable keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that current settings can run the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrInvalidConfig, settings.Embedding.Provider)
	}
	if !isEmbeddingProvider(settings.Embedding.Provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings",
			domain.ErrInvalidConfig, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider %q is not configured",
			domain.ErrInvalidConfig, settings.LLM.Provider)
	}

	switch settings.Vector.Backend {
	case domain.VectorBackendPinecone:
		if settings.Vector.APIKey == "" || (settings.Vector.Index == "" && settings.Vector.Host == "") {
			return fmt.Errorf("%w: pinecone requires an api key and an index name or host", domain.ErrInvalidConfig)
		}
	case domain.VectorBackendQdrant:
		if settings.Vector.Host == "" {
			return fmt.Errorf("%w: qdrant requires a host", domain.ErrInvalidConfig)
		}
	case domain.VectorBackendChromem:
	}

	return settings.Pipeline.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func isEmbeddingProvider(p domain.AIProvider) bool {
	for _, ep := range domain.AllEmbeddingProviders() {
		if ep == p {
			return true
		}
	}
	return false
}

func isPipelineKey(key string) bool {
	return strings.HasPrefix(key, "pipeline.")
}

func parseValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		return time.ParseDuration(value)
	case kindProvider:
		if p := domain.AIProvider(value); !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", value)
		}
		return value, nil
	case kindBackend:
		if b := domain.VectorBackend(value); !b.IsValid() {
			return nil, fmt.Errorf("unknown vector backend %q", value)
		}
		return value, nil
	default:
		return value, nil
	}
}

func applyPipelineValue(p *domain.PipelineSettings, key string, v any) {
	switch key {
	case keyChunkSize:
		p.ChunkSize, _ = v.(int)
	case keyChunkOverlap:
		p.ChunkOverlap, _ = v.(int)
	case keyTopK:
		p.TopK, _ = v.(int)
	case keyEmbedConcurrency:
		p.EmbedConcurrency, _ = v.(int)
	case keyEmbedRPS:
		p.EmbedRPS, _ = v.(float64)
	case keyCompressConc:
		p.CompressConcurrency, _ = v.(int)
	case keyHistoryWindow:
		p.HistoryWindow, _ = v.(int)
	case keyCompressInput:
		p.CompressInputChars, _ = v.(int)
	case keyCompressFallback:
		p.CompressFallbackChars, _ = v.(int)
	case keyRequestTimeout:
		p.RequestTimeout, _ = v.(time.Duration)
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicitly stored zero as a value.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	val := s.configStore.GetString(keyVectorBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.VectorBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
