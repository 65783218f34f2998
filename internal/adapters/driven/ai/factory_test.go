package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ollamaembed "github.com/custodia-labs/bpa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/bpa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/bpa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/bpa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/bpa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/bpa/internal/core/domain"
)

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantType any
		wantErr  error
	}{
		{
			name:     "ollama",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm"},
			wantType: &ollamaembed.EmbeddingService{},
		},
		{
			name:     "openai",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantType: &openaiembed.EmbeddingService{},
		},
		{
			name:     "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantErr:  domain.ErrInvalidConfig,
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  domain.ErrInvalidConfig,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "cohere"},
			wantErr:  domain.ErrInvalidConfig,
		},
		{
			name:    "nil settings",
			wantErr: domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, svc)
		})
	}
}

func TestCreateEmbeddingService_OllamaDimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "mxbai-embed-large",
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1024, svc.Dimensions())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantType any
		wantErr  error
	}{
		{
			name:     "ollama",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama},
			wantType: &ollamallm.LLMService{},
		},
		{
			name:     "openai",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantType: &openaillm.LLMService{},
		},
		{
			name:     "anthropic",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantType: &anthropicllm.LLMService{},
		},
		{
			name:     "anthropic without key",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic},
			wantErr:  domain.ErrInvalidConfig,
		},
		{
			name:     "unknown provider",
			settings: &domain.LLMSettings{Provider: "mistral"},
			wantErr:  domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, svc)
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := okServer(t)
		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		}, 0)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := failingServer(t)
		_, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		}, 0)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "bpa settings set")
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := CreateAndValidateEmbeddingService(nil, 0)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestCreateAndValidateLLMService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := okServer(t)
		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "k",
			BaseURL:  srv.URL,
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, openaillm.DefaultLLMModel, svc.ModelName())
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := failingServer(t)
		_, err := CreateAndValidateLLMService(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
		}, 0)
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestValidateConfig_Unconfigured(t *testing.T) {
	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}))
	assert.NoError(t, ValidateLLMConfig(nil))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: "nope"}))
}

func TestValidateConfig_Ollama(t *testing.T) {
	srv := okServer(t)
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}))

	bad := failingServer(t)
	assert.Error(t, ValidateLLMConfig(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: bad.URL}))
}
