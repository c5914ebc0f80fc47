package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/air-quality-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-engine/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-engine/internal/adapter/openmeteo"
	"github.com/couchcryptid/air-quality-engine/internal/config"
	"github.com/couchcryptid/air-quality-engine/internal/domain"
	"github.com/couchcryptid/air-quality-engine/internal/observability"
	"github.com/couchcryptid/air-quality-engine/internal/pipeline"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	aqiTable, err := config.LoadAQITable(cfg.CategoryTablesFile)
	if err != nil {
		logger.Error("failed to load category tables", "error", err, "path", cfg.CategoryTablesFile)
		os.Exit(1)
	}

	// Weather enrichment is feature-flagged via WEATHER_PROVIDER_ENABLED.
	var weather domain.WeatherProvider
	if cfg.WeatherEnabled {
		client := openmeteo.NewClient(cfg.WeatherURL, cfg.WeatherTimeout, metrics, logger)
		weather = openmeteo.NewCachedProvider(client, cfg.WeatherCacheSize, metrics)
		metrics.WeatherEnabled.Set(1)
		logger.Info("weather enrichment enabled",
			"url", cfg.WeatherURL, "cache_size", cfg.WeatherCacheSize, "timeout", cfg.WeatherTimeout)
	} else {
		logger.Info("weather enrichment disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(weather, domain.ReportOptions{
		HorizonHours:   cfg.ForecastHorizonHours,
		AlertThreshold: cfg.AlertThreshold,
		AQITable:       aqiTable,
	}, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	api := httpadapter.NewAPI(httpadapter.APIOptions{
		HorizonHours:   cfg.ForecastHorizonHours,
		AlertThreshold: cfg.AlertThreshold,
		AQITable:       aqiTable,
	}, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failing server or pipeline cancels gctx and takes the other down with it.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := p.Run(gctx); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("engine stopped with error", "error", err)
		exitCode = 1
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		stop()
		os.Exit(exitCode)
	}
}
