package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"labelscan/internal/analyzer"
	"labelscan/internal/api"
	"labelscan/internal/catalog"
	"labelscan/internal/config"
	"labelscan/internal/embeddings"
	"labelscan/internal/logging"
	"labelscan/internal/matcher"
	"labelscan/internal/storage"
	"labelscan/pkg/models"
)

const serviceName = "labelscan"

func main() {
	serverMode := flag.NewFlagSet("server", flag.ExitOnError)
	analyzeMode := flag.NewFlagSet("analyze", flag.ExitOnError)
	textFile := analyzeMode.String("file", "", "Path to a file holding label text")
	text := analyzeMode.String("text", "", "Label text to analyze")
	syncMode := flag.NewFlagSet("sync", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Expected 'server', 'analyze' or 'sync' subcommands")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(serviceName, cfg.Env, cfg.LogLevel)

	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	switch os.Args[1] {
	case "server":
		serverMode.Parse(os.Args[2:])
		err = runServer(cfg, logger)
	case "analyze":
		analyzeMode.Parse(os.Args[2:])
		err = runAnalyze(cfg, logger, *textFile, *text)
	case "sync":
		syncMode.Parse(os.Args[2:])
		err = runSync(cfg, logger)
	default:
		logger.Fatal().Str("command", os.Args[1]).Msg("Expected 'server', 'analyze' or 'sync' subcommands")
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

// pipeline holds everything built from the config that a command may need to
// release on exit.
type pipeline struct {
	analyzer *analyzer.Service
	catalog  *catalog.Catalog
	closers  []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			log.Warn().Err(err).Msg("error during shutdown")
		}
	}
}

func newEmbedder(ctx context.Context, cfg *models.Config, logger zerolog.Logger, p *pipeline) (embeddings.Embedder, *embeddings.Service) {
	svc := embeddings.NewService(cfg.APIKey,
		embeddings.WithBaseURL(cfg.EmbeddingBaseURL),
		embeddings.WithModel(cfg.EmbeddingModel),
		embeddings.WithTimeout(time.Duration(cfg.EmbeddingTimeoutSeconds)*time.Second),
	)

	if cfg.RedisAddr == "" {
		return svc, svc
	}

	ttl := time.Duration(cfg.EmbeddingCacheTTLH) * time.Hour
	cache, err := embeddings.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, ttl)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("embedding cache unavailable, continuing without it")
		return svc, svc
	}
	p.closers = append(p.closers, cache.Close)
	logger.Info().Str("addr", cfg.RedisAddr).Dur("ttl", ttl).Msg("embedding cache enabled")
	return embeddings.NewCachedEmbedder(svc, cache, svc.Model(), logger), svc
}

func loadCatalog(cfg *models.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.CatalogFile)
}

func buildPipeline(ctx context.Context, cfg *models.Config, logger zerolog.Logger, validateKey bool) (*pipeline, error) {
	p := &pipeline{}

	embedder, client := newEmbedder(ctx, cfg, logger, p)
	if validateKey {
		if err := client.ValidateAPIKey(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("invalid embedding API key: %w", err)
		}
		logger.Info().Str("model", client.Model()).Msg("embedding API key validated")
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.catalog = cat
	logger.Info().Int("entries", cat.Len()).Str("file", cfg.CatalogFile).Msg("catalog loaded")

	var (
		vectors [][]float32
		store   *storage.Service
	)
	if cfg.QdrantHost != "" {
		store, err = storage.NewService(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.closers = append(p.closers, store.Close)

		logger.Info().Str("collection", store.Collection()).Msg("syncing catalog")
		vectors, _, err = store.SyncCatalog(ctx, cat, embedder, syncOptions(cfg, client.Model()), logger)
	} else {
		vectors, err = embeddings.EmbedInChunks(ctx, embedder, cat.Names(), cfg.EmbeddingChunkSize, cfg.NumWorkers, logger)
	}
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("embed catalog: %w", err)
	}

	var index matcher.Index = matcher.NewLinearIndex(vectors)
	if cfg.MatchBackend == models.BackendQdrant {
		dim := 0
		if len(vectors) > 0 {
			dim = len(vectors[0])
		}
		index = storage.NewIndex(store, dim)
	}

	m, err := matcher.New(cat, index, cfg.MatchThreshold)
	if err != nil {
		p.Close()
		return nil, err
	}
	logger.Info().Str("backend", cfg.MatchBackend).Float64("threshold", m.Threshold()).Msg("matcher ready")

	p.analyzer = analyzer.NewService(embedder, m, logger)
	return p, nil
}

func syncOptions(cfg *models.Config, model string) storage.SyncOptions {
	return storage.SyncOptions{Model: model, ChunkSize: cfg.EmbeddingChunkSize, NumWorkers: cfg.NumWorkers}
}

func runServer(cfg *models.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Int("server_port", cfg.ServerPort).
		Str("backend", cfg.MatchBackend).
		Str("qdrant_host", cfg.QdrantHost).
		Int("num_workers", cfg.NumWorkers).
		Msg("starting server")

	p, err := buildPipeline(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer p.Close()

	handler := api.NewHandler(p.analyzer, p.catalog, cfg.MatchBackend)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Duration(cfg.EmbeddingTimeoutSeconds+30) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runAnalyze(cfg *models.Config, logger zerolog.Logger, path, text string) error {
	if path == "" && text == "" {
		return errors.New("please provide label text with -text or a file with -file")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read label file: %w", err)
		}
		text = string(data)
	}

	ctx := context.Background()
	p, err := buildPipeline(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.analyzer.Analyze(ctx, text)
	if err != nil {
		var ae *analyzer.Error
		if errors.As(err, &ae) && ae.Kind == analyzer.KindNoIngredientsFound {
			logger.Warn().Str("ocr_sample", ae.Sample).Msg("no ingredients found")
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runSync(cfg *models.Config, logger zerolog.Logger) error {
	if cfg.QdrantHost == "" {
		return errors.New("sync requires QDRANT_HOST")
	}

	ctx := context.Background()
	p := &pipeline{}
	defer p.Close()

	embedder, client := newEmbedder(ctx, cfg, logger, p)
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	store, err := storage.NewService(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection)
	if err != nil {
		return err
	}
	p.closers = append(p.closers, store.Close)

	logger.Info().Str("collection", store.Collection()).Msg("syncing catalog")
	_, result, err := store.SyncCatalog(ctx, cat, embedder, syncOptions(cfg, client.Model()), logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
