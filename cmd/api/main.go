package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/pollenguard/allergy-risk/internal/adapter/gemini"
	"github.com/pollenguard/allergy-risk/internal/adapter/geocode"
	"github.com/pollenguard/allergy-risk/internal/adapter/httpapi"
	kafkaadapter "github.com/pollenguard/allergy-risk/internal/adapter/kafka"
	"github.com/pollenguard/allergy-risk/internal/adapter/nominatim"
	"github.com/pollenguard/allergy-risk/internal/adapter/openmeteo"
	"github.com/pollenguard/allergy-risk/internal/adapter/openweather"
	"github.com/pollenguard/allergy-risk/internal/adapter/sqlite"
	"github.com/pollenguard/allergy-risk/internal/adapter/webhook"
	"github.com/pollenguard/allergy-risk/internal/config"
	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
	"github.com/pollenguard/allergy-risk/internal/pipeline"
	"github.com/pollenguard/allergy-risk/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	gin.SetMode(gin.ReleaseMode)

	// Geocoding chain: keyed provider first when configured, community
	// provider as fallback, LRU cache in front of the whole chain.
	var (
		providers []domain.Geocoder
		pollutant pipeline.PollutantProvider
	)
	if cfg.OpenWeatherAPIKey != "" {
		ow := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.ProviderTimeout, logger)
		providers = append(providers, ow)
		pollutant = ow
		logger.Info("openweather provider enabled")
	} else {
		logger.Info("openweather provider disabled, running on open data only")
	}
	providers = append(providers, nominatim.NewClient(cfg.ProviderTimeout, logger))
	geocoder := geocode.NewCached(geocode.NewChain(logger, providers...), cfg.GeocodeCacheSize, metrics)

	air := openmeteo.NewClient(cfg.ProviderTimeout, logger)

	model := gemini.NewClient(cfg.GeminiAPIKey, cfg.ModelTimeout, logger)
	resolver := gemini.NewResolver(model, metrics, logger)

	notifier := webhook.NewNotifier(cfg.WebhookURL, cfg.WebhookTimeout, logger)
	logger.Info("webhook notifications configured", "enabled", notifier.Enabled())

	var (
		stores  pipeline.Stores
		store   *sqlite.Store
		sweep   *scheduler.Scheduler
		history httpapi.AlertHistory
	)
	if cfg.PersistenceEnabled {
		store, err = sqlite.Open(cfg.DatabasePath, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err, "path", cfg.DatabasePath)
			os.Exit(1)
		}
		metrics.PersistenceReady.Set(1)
		stores.Profiles = store
		stores.Alerts = store
		history = store
		sweep = scheduler.New(store, cfg.AlertRetention, cfg.AlertSweepInterval, logger, metrics)
		logger.Info("persistence enabled", "path", cfg.DatabasePath, "retention", cfg.AlertRetention)
	} else {
		logger.Info("persistence disabled")
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		stores.Publisher = publisher
		logger.Info("kafka alert publishing enabled", "topic", cfg.KafkaAlertTopic)
	}

	runner := pipeline.NewRunner(
		pipeline.NewEnviroFetcher(geocoder, pollutant, air, logger, metrics),
		pipeline.NewModelAnalyzer(model, resolver, cfg.ModelTimeout, logger, metrics),
		pipeline.NewAdviceGenerator(model, resolver, notifier, cfg.ModelTimeout, logger, metrics),
		stores,
		logger,
		metrics,
	)

	srv := httpapi.NewServer(cfg.HTTPAddr, cfg.AllowedOrigins, runner, history, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if sweep != nil {
		if err := sweep.Start(); err != nil {
			logger.Error("failed to start retention sweep", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sweep != nil {
		sweep.Stop()
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
