// Command docrag ingests documents and answers questions about them.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/custodia-labs/docrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/normalisers"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Flags are parsed after wiring; honour --verbose for the wiring itself.
	if slices.Contains(os.Args[1:], "-v") || slices.Contains(os.Args[1:], "--verbose") {
		logger.SetVerbose(true)
	}
	defer logger.Sync()

	ctx := context.Background()

	app, err := wire(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.SetVersion(version)
	cli.SetServices(app.services)

	err = cli.Execute(ctx)
	app.close()
	if err != nil {
		os.Exit(1)
	}
}

// application holds the wired services and what must be released on exit.
type application struct {
	services cli.Services
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// stores groups the storage ports of one backend.
type stores struct {
	metadata driven.MetadataStore
	vectors  driven.VectorStore
	close    func()
}

func wire(ctx context.Context) (*application, error) {
	configDir := os.Getenv("DOCRAG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".docrag")
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := configStore.LoadEnv(os.Environ(), filepath.Join(configDir, ".env"), ".env"); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	logger.Debug("config: %s (%s)", configStore.Path(), configStore.Format())

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	app := &application{services: cli.Services{Settings: settingsService}}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		logger.Warn("settings: %v", err)
	}

	// Only the settings and version commands work without storage.
	st, err := openStores(ctx, settings, configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: vector store unavailable: %v\n", err)
		return app, nil
	}
	app.closers = append(app.closers, st.close)

	objects, err := filesystem.NewObjectStorage(dirOrDefault(settings.Ingest.StorageDir, configDir, "uploads"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: upload storage unavailable: %v\n", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), services.DefaultPrompts())
	if err != nil {
		return nil, fmt.Errorf("prompt store: %w", err)
	}

	aiServices := ai.Initialise(ctx, settings)
	app.closers = append(app.closers, aiServices.Close)

	pipeline, err := postprocessors.DefaultPipeline(settings.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("building post-processor pipeline: %w", err)
	}

	ingestOpts := []services.IngestionOption{
		services.WithMetadataStore(st.metadata),
		services.WithSizeLimits(settings.Ingest.WarnSizeBytes, settings.Ingest.MaxSizeBytes),
	}
	if objects != nil {
		ingestOpts = append(ingestOpts, services.WithObjectStorage(objects))
	}
	ingestion := services.NewIngestionPipeline(
		normalisers.DefaultRegistry(), pipeline, aiServices.EmbeddingService, st.vectors, ingestOpts...,
	)

	retrieval := services.NewRetrievalPipeline(
		aiServices.EmbeddingService, st.vectors, services.WithMinScore(settings.Retrieval.MinScore),
	)

	synthesizer := services.NewAnswerSynthesizer(aiServices.LLMService,
		services.WithPromptStore(prompts),
		services.WithGenerationLimits(settings.LLM.Temperature, settings.LLM.MaxTokens),
	)

	var objectStorage driven.ObjectStorage
	if objects != nil {
		objectStorage = objects
	}

	app.services.Rag = services.NewRagService(ingestion, retrieval, synthesizer, settings.Retrieval.TopK)
	app.services.Document = services.NewDocumentService(
		st.metadata, st.vectors, objectStorage, ingestion, aiServices.LLMService, prompts,
	)

	return app, nil
}

// openStores opens the metadata and vector stores of the configured backend.
func openStores(ctx context.Context, settings *domain.AppSettings, configDir string) (*stores, error) {
	dims := settings.Embedding.ResolvedDimensions()

	switch settings.VectorStore.Backend {
	case domain.VectorStoreMemory:
		logger.Debug("storage: memory (%d dimensions)", dims)
		return &stores{
			metadata: memory.NewMetadataStore(),
			vectors:  memory.NewVectorStore(dims),
			close:    func() {},
		}, nil

	case domain.VectorStorePostgres:
		store, err := postgres.NewStore(ctx, settings.VectorStore.DSN)
		if err != nil {
			return nil, err
		}
		checkDimensions(ctx, store, dims)
		logger.Debug("storage: postgres (%d dimensions)", dims)
		return &stores{
			metadata: store.MetadataStore(),
			vectors:  store.VectorStore(dims),
			close:    func() { _ = store.Close() },
		}, nil

	default:
		store, err := sqlite.NewStore(dirOrDefault(settings.VectorStore.DataDir, configDir, "data"))
		if err != nil {
			return nil, err
		}
		checkDimensions(ctx, store, dims)
		logger.Debug("storage: sqlite at %s (%d dimensions)", store.Path(), dims)
		return &stores{
			metadata: store.MetadataStore(),
			vectors:  store.VectorStore(dims),
			close:    func() { _ = store.Close() },
		}, nil
	}
}

type dimensionReporter interface {
	StoredDimensions(ctx context.Context) (int, error)
}

// checkDimensions warns when stored vectors come from a different embedding model.
func checkDimensions(ctx context.Context, store dimensionReporter, dims int) {
	stored, err := store.StoredDimensions(ctx)
	if err != nil {
		logger.Warn("storage: %v", err)
		return
	}
	if stored > 0 && dims > 0 && stored != dims {
		fmt.Fprintf(os.Stderr,
			"Warning: indexed vectors have %d dimensions but the embedding model produces %d; "+
				"reprocess documents with 'docrag document reprocess <id>'.\n", stored, dims)
	}
}

func dirOrDefault(dir, configDir, name string) string {
	if dir != "" {
		return dir
	}
	return filepath.Join(configDir, name)
}
