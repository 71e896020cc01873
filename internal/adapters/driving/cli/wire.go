package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mitiak/raggy/internal/adapters/driven/ai"
	"github.com/mitiak/raggy/internal/adapters/driven/config/file"
	"github.com/mitiak/raggy/internal/adapters/driven/storage/sqlite"
	"github.com/mitiak/raggy/internal/adapters/driven/vector/ivf"
	"github.com/mitiak/raggy/internal/connectors/filesystem"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/services"
	"github.com/mitiak/raggy/internal/logger"
	"github.com/mitiak/raggy/internal/normalisers"
	"github.com/mitiak/raggy/internal/postprocessors"
)

// runtime holds everything wired for one process.
type runtime struct {
	config   *file.ConfigStore
	settings *services.SettingsService

	// Set only when the store was opened.
	current   *domain.Settings
	embedder  driven.EmbeddingService
	store     *sqlite.Store
	ingest    *services.IngestService
	directory *services.DirectoryIngestService
	search    *services.SearchService
	answer    *services.AnswerService
	document  *services.DocumentService
}

// wiringLevel selects how much of the runtime a command needs.
type wiringLevel string

const (
	// wiringNone skips wiring entirely.
	wiringNone wiringLevel = "none"

	// wiringConfig loads configuration and settings only.
	wiringConfig wiringLevel = "config"

	// wiringLenient opens the store without checking embedding connectivity.
	wiringLenient wiringLevel = "lenient"

	// wiringFull opens the store and pings the embedding provider.
	wiringFull wiringLevel = "full"
)

// wire builds the configuration layer and, above wiringConfig, opens the
// store and constructs every service.
func wire(ctx context.Context, cfgDir, dataDir string, level wiringLevel) (*runtime, error) {
	cfgStore, err := file.NewConfigStore(cfgDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	rt := &runtime{
		config:   cfgStore,
		settings: services.NewSettingsService(cfgStore),
	}
	if level == wiringConfig {
		return rt, nil
	}

	settings, err := rt.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	rt.current = settings

	var embedder driven.EmbeddingService
	if level == wiringLenient {
		embedder, err = ai.CreateEmbeddingService(&settings.Embedding)
	} else {
		embedder, err = ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	}
	if err != nil {
		return nil, err
	}
	rt.embedder = embedder

	index, err := ivf.New(embedder.Dimensions(),
		ivf.WithLists(settings.Retrieval.Lists),
		ivf.WithProbes(settings.Retrieval.Probes),
	)
	if err != nil {
		embedder.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	if dataDir == "" && cfgDir != "" {
		dataDir = filepath.Join(cfgDir, "data")
	}
	store, err := sqlite.NewStore(dataDir, index)
	if err != nil {
		embedder.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening store: %w", err)
	}
	rt.store = store

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		rt.Close() //nolint:errcheck
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}

	docStore := store.DocumentStore()
	jobStore := store.IngestJobStore()

	rt.ingest = services.NewIngestService(docStore, pipeline, embedder)
	rt.search = services.NewSearchService(docStore, embedder)
	rt.answer = services.NewAnswerService(rt.search)
	rt.document = services.NewDocumentService(docStore, jobStore)
	rt.directory = services.NewDirectoryIngestService(
		filesystem.NewFactory(),
		normalisers.NewDefaultRegistry(),
		rt.ingest,
		jobStore,
	)

	logger.Debug("Store %s opened with %d vectors (%s, %d dims)",
		store.Path(), store.VectorCount(), embedder.ModelName(), embedder.Dimensions())
	return rt, nil
}

// Close releases the store and the embedding service.
func (rt *runtime) Close() error {
	var errs []error
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
		rt.store = nil
	}
	if rt.embedder != nil {
		errs = append(errs, rt.embedder.Close())
		rt.embedder = nil
	}
	return errors.Join(errs...)
}
