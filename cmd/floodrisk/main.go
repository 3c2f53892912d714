package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/netcdf"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	grids := netcdf.NewOpener(logger)
	opts := []pipeline.AssessorOption{
		pipeline.WithGridOpener(grids),
		pipeline.WithStrictBounds(cfg.StrictBounds),
		pipeline.WithClock(clock),
	}

	// Forecast source is feature-flagged via OWM_ENABLED / OWM_API_KEY.
	if cfg.OWMEnabled {
		client := openweather.NewClient(cfg.OWMAPIKey, cfg.OWMBaseURL, cfg.OWMTimeout, cfg.OWMRateLimit, metrics, logger)
		provider := openweather.NewCachedProvider(client, cfg.OWMCacheSize, cfg.OWMCacheTTL, clock, metrics)
		opts = append(opts, pipeline.WithForecastProvider(provider))
		logger.Info("forecast source enabled",
			"rate_limit", cfg.OWMRateLimit, "cache_size", cfg.OWMCacheSize, "cache_ttl", cfg.OWMCacheTTL)
	} else {
		logger.Info("forecast source disabled")
	}

	assessor, err := pipeline.NewAssessor(cfg.Model, metrics, logger, opts...)
	if err != nil {
		logger.Error("invalid risk model", "error", err, "model_file", cfg.ModelFile)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	var ready sharedobs.ReadinessChecker = httpadapter.AlwaysReady{}
	var closers []func() error
	if cfg.KafkaEnabled {
		reader := kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, reader.Close, writer.Close)

		p := pipeline.New(reader, pipeline.NewTransformer(assessor, logger), writer, logger, metrics, cfg.BatchSize)
		ready = p

		g.Go(func() error {
			return p.Run(gctx)
		})
		logger.Info("kafka pipeline enabled",
			"source_topic", cfg.KafkaSourceTopic, "sink_topic", cfg.KafkaSinkTopic, "batch_size", cfg.BatchSize)
	}

	api := httpadapter.NewAPI(assessor, grids, cfg.GridMaxUpload, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("kafka client close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
