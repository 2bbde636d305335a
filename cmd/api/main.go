package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scriptcycle/rxrecommender/internal/adapters/cache"
	"github.com/scriptcycle/rxrecommender/internal/adapters/directory"
	"github.com/scriptcycle/rxrecommender/internal/api/handlers"
	"github.com/scriptcycle/rxrecommender/internal/api/routes"
	"github.com/scriptcycle/rxrecommender/internal/application/services"
	"github.com/scriptcycle/rxrecommender/internal/domain/providers"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/openai"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/postgres"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/redis"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/clients/rxnorm"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
	"github.com/scriptcycle/rxrecommender/pkg/circuitbreaker"
	"github.com/scriptcycle/rxrecommender/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Terminology client is always required
	rxnormClient := rxnorm.NewClient(&cfg.RxNorm)

	// Redis is optional; the service degrades to direct computation without it
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, caching disabled")
	} else {
		defer redisClient.Close()
		if cfg.Cache.Enabled {
			cacheProvider = cache.NewRedisAdapter(redisClient)
			log.Info().Msg("redis cache initialized")
		}
	}
	store := cache.NewStore(cacheProvider, metrics)

	// Package directory source is selected by configuration
	var packageDirectory providers.PackageDirectoryProvider
	switch cfg.Recommendation.DirectoryProvider {
	case "postgres":
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()
		packageDirectory = directory.NewPostgresDirectoryAdapter(pgClient, metrics)
		log.Info().Msg("package directory: postgres mirror")
	default:
		packageDirectory = directory.NewRxNormDirectoryAdapter(rxnormClient, metrics)
		log.Info().Msg("package directory: rxnorm")
	}

	// AI advisor is optional; without it every recommendation is algorithmic
	var advisor providers.RecommendationAdvisor
	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKey != "" {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenAI client, AI enhancement disabled")
		} else {
			advisor = openaiClient
			log.Info().Str("model", cfg.OpenAI.Model).Msg("AI advisor initialized")
		}
	} else {
		log.Info().Msg("AI advisor disabled")
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "openai-advisor",
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	}, log.Logger)

	selector := services.NewPackageSelectorService()
	normalizer := services.NewDrugNormalizerService(
		rxnormClient,
		cfg.Recommendation.MinConfidence,
		cfg.Recommendation.BatchConcurrency,
	)
	enhancer := services.NewAIEnhancementService(advisor, breaker, selector, cfg.OpenAI.Timeout, metrics)
	recommendationService := services.NewRecommendationService(
		normalizer,
		selector,
		enhancer,
		packageDirectory,
		store,
		cfg.Cache,
		cfg.Recommendation.AIQuantityThreshold,
	)

	router := routes.NewRouter(
		handlers.NewRecommendationHandler(recommendationService),
		handlers.NewDrugHandler(recommendationService),
		handlers.NewPackageHandler(),
		handlers.NewHealthHandler(enhancer, cfg.OTEL.ServiceVersion),
		handlers.NewCacheHandler(store),
		metrics,
	)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
