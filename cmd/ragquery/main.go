package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/config"
	"github.com/kailas-cloud/ragquery/internal/db"
	dbMemory "github.com/kailas-cloud/ragquery/internal/db/memory"
	dbValkey "github.com/kailas-cloud/ragquery/internal/db/valkey"
	"github.com/kailas-cloud/ragquery/internal/domain"
	logpkg "github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
	"github.com/kailas-cloud/ragquery/internal/repository/embcache"
	"github.com/kailas-cloud/ragquery/internal/retry"
	"github.com/kailas-cloud/ragquery/internal/tracer"
	chiTransport "github.com/kailas-cloud/ragquery/internal/transport/chi"
	"github.com/kailas-cloud/ragquery/internal/transport/docstore"
	"github.com/kailas-cloud/ragquery/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/ragquery/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ragquery/internal/usecase/embedding"
	generationuc "github.com/kailas-cloud/ragquery/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
	queryuc "github.com/kailas-cloud/ragquery/internal/usecase/query"
	"github.com/kailas-cloud/ragquery/internal/version"
)

// embeddingProvider is what main needs from a base embedding transport.
type embeddingProvider interface {
	domain.Embedder
	domain.HealthChecker
}

// generationProvider is what main needs from a base generation transport.
type generationProvider interface {
	domain.Generator
	domain.HealthChecker
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragquery API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("document_store", cfg.DocumentStore.BaseURL),
		zap.String("embedding_driver", cfg.Embedding.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("generation_driver", cfg.Generation.Driver),
		zap.String("generation_model", cfg.Generation.Model),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	ctx := context.Background()

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version.Version,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()

	store := openCache(ctx, cfg.Cache, logger)
	if store != nil {
		defer store.Close()
	}

	policy := retry.Policy{
		MaxRetries: cfg.Pipeline.MaxRetries,
		Initial:    time.Duration(cfg.Pipeline.RetryInitialMs) * time.Millisecond,
		Max:        time.Duration(cfg.Pipeline.RetryMaxMs) * time.Millisecond,
	}

	// Build decorator chains (composition root)
	embBase := newEmbeddingProvider(cfg.Embedding, logger)
	queryEmbedder := buildEmbedder(embBase, cfg.Embedding, cfg.Embedding.QueryInstruction, store, cfg.Cache, policy, logger)
	docEmbedder := buildEmbedder(embBase, cfg.Embedding, cfg.Embedding.DocumentInstruction, store, cfg.Cache, policy, logger)

	genBase := newGenerationProvider(cfg.Generation, logger)
	generator := buildGenerator(genBase, cfg.Generation, policy, logger)

	documents := docstore.NewClient(docstore.Config{
		BaseURL:     cfg.DocumentStore.BaseURL,
		APIKey:      cfg.DocumentStore.APIKey,
		BearerToken: cfg.DocumentStore.BearerToken,
		Timeout:     time.Duration(cfg.DocumentStore.TimeoutSec) * time.Second,
	})

	querySvc := queryuc.New(documents, queryEmbedder, docEmbedder, generator, queryuc.Options{
		Concurrency:    cfg.Pipeline.EmbedConcurrency,
		RequestTimeout: time.Duration(cfg.Pipeline.RequestTimeoutSec) * time.Second,
	})

	// Pass nil interface (not typed nil pointer!) when the cache is disabled.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, embBase, genBase)

	server := chiTransport.NewServer(querySvc, healthSvc, cfg.HTTP.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Embedding-Calls", "X-Embedding-Tokens"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("RAG backend listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openCache connects the embedding cache store, or returns nil when caching is off.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) db.Store {
	ttl := time.Duration(cfg.TTLSec) * time.Second

	var (
		store db.Store
		err   error
	)
	switch cfg.Driver {
	case config.CacheNone:
		return nil
	case config.CacheMemory:
		store = dbMemory.NewStore(ttl, time.Duration(cfg.CleanupSec)*time.Second)
	case config.CacheValkey, config.CacheRedis:
		store, err = dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
	default:
		logger.Fatal("Unknown cache driver", zap.String("driver", cfg.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to embedding cache", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return store
}

func newEmbeddingProvider(cfg config.ProviderConfig, logger *zap.Logger) embeddingProvider {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cfg.Driver == config.DriverOpenAI {
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    timeout,
			Logger:     logger,
		})
	}
	return ollama.NewEmbedder(ollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout})
}

func newGenerationProvider(cfg config.ProviderConfig, logger *zap.Logger) generationProvider {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if cfg.Driver == config.DriverOpenAI {
		return openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
			Logger:  logger,
		})
	}
	return ollama.NewGenerator(ollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model, Timeout: timeout})
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Retrying -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder,
	provCfg config.ProviderConfig,
	instruction string,
	store db.Store,
	cacheCfg config.CacheConfig,
	policy retry.Policy,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if store != nil {
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix: cacheCfg.KeyPrefix,
			Model:     provCfg.Model,
			TTL:       time.Duration(cacheCfg.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	if policy.Enabled() {
		embedder = embeddinguc.NewRetryingEmbedder(embedder, policy, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provCfg.Driver, provCfg.Model, logger)

	// Instruction prefix is outermost so the cache key includes it
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// buildGenerator assembles the decorator chain: provider -> Retrying -> Instrumented
func buildGenerator(
	base domain.Generator,
	provCfg config.ProviderConfig,
	policy retry.Policy,
	logger *zap.Logger,
) domain.Generator {
	generator := base
	if policy.Enabled() {
		generator = generationuc.NewRetryingGenerator(generator, policy, logger)
	}
	return generationuc.NewInstrumentedGenerator(generator, provCfg.Driver, provCfg.Model, logger)
}
