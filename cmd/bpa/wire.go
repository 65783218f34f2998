package main

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/bpa/internal/adapters/driven/ai"
	"github.com/custodia-labs/bpa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bpa/internal/adapters/driven/fetcher"
	"github.com/custodia-labs/bpa/internal/adapters/driven/metrics"
	"github.com/custodia-labs/bpa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bpa/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/bpa/internal/adapters/driven/vector"
	"github.com/custodia-labs/bpa/internal/adapters/driving/cli"
	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/core/services"
	"github.com/custodia-labs/bpa/internal/logger"
	"github.com/custodia-labs/bpa/internal/normalisers"
	"github.com/custodia-labs/bpa/internal/postprocessors"
)

// closers releases external handles in reverse order of acquisition.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) closeAll() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

// bootstrap builds every service from the settings in configDir.
// Settings stay available when the pipeline cannot be built, so a broken
// configuration can be repaired from the CLI.
func bootstrap(configDir string) (*cli.Services, func(), error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, nil, err
		}
		configDir = dir
	}

	if err := file.LoadEnvFiles(".", configDir); err != nil {
		logger.Warn("%v", err)
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	svcs := &cli.Services{Settings: settingsService}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}

	var cl closers
	if err := buildPipeline(svcs, settings, configDir, &cl); err != nil {
		logger.Debug("Pipeline unavailable: %v", err)
		cl.closeAll()
		cl = nil
		svcs.PipelineErr = err
	}

	return svcs, cl.closeAll, nil
}

// buildPipeline constructs the external collaborators and the core services.
// Every handle opened is registered on cl, also on failure.
func buildPipeline(svcs *cli.Services, settings *domain.AppSettings, configDir string, cl *closers) error {
	p := settings.Pipeline
	if err := p.Validate(); err != nil {
		return err
	}

	splitter, err := postprocessors.NewDefaultSplitter(p.ChunkSize, p.ChunkOverlap)
	if err != nil {
		return err
	}

	dataDir := settings.Storage.Path
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return err
	}
	cl.add(store.Close)

	vs := settings.Vector
	if vs.Backend == domain.VectorBackendChromem && vs.Path == "" {
		vs.Path = filepath.Join(dataDir, "vectors")
	}
	index, err := vector.Open(vs)
	if err != nil {
		return err
	}
	cl.add(index.Close)

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding, p.RequestTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	cl.add(embedder.Close)

	llm, err := ai.CreateLLMService(&settings.LLM, p.RequestTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	cl.add(llm.Close)

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), services.DefaultPrompts())
	if err != nil {
		return err
	}

	var tokens driven.TokenCounter
	if counter, err := tokenizer.New(settings.LLM.Model); err != nil {
		logger.Warn("Token counting disabled: %v", err)
	} else {
		tokens = counter
	}

	m := metrics.New()
	embedder = m.Embedding(ai.NewRateLimitedEmbedding(embedder, ai.RateLimitConfig{
		RequestsPerSecond: p.EmbedRPS,
		BurstSize:         p.EmbedConcurrency,
	}))
	llm = m.LLM(llm)
	index = m.VectorIndex(index)

	ingest := services.NewIngestionService(splitter, embedder, index, store.DocumentStore(), services.IngestConfig{
		Namespace:        vs.Namespace,
		EmbedConcurrency: p.EmbedConcurrency,
	})
	ingest.SetNormaliserRegistry(normalisers.DefaultRegistry())
	ingest.SetFetcher(fetcher.New())

	conversations := services.NewConversationManager(store.ConversationStore(), p.HistoryWindow)
	answer := services.NewAnswerService(
		conversations,
		services.NewRetriever(embedder, index, vs.Namespace, p.TopK),
		services.NewCompressor(llm, prompts, services.CompressorConfig{
			InputChars:    p.CompressInputChars,
			FallbackChars: p.CompressFallbackChars,
			Concurrency:   p.CompressConcurrency,
			Temperature:   settings.LLM.Temperature,
		}),
		services.NewSynthesizer(llm, prompts, tokens, settings.LLM.Temperature),
	)

	svcs.Ingest = ingest
	svcs.Answer = answer
	svcs.Conversation = conversations
	svcs.Document = services.NewDocumentService(store.DocumentStore())
	svcs.Health = services.NewHealthService(embedder, llm, index, p.RequestTimeout)
	svcs.Metrics = m.Handler()
	return nil
}
