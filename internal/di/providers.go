package di

import (
	"context"
	"fmt"
	"time"

	"Sentinel/internal/handler/api"
	mid "Sentinel/internal/middleware"
	"Sentinel/internal/repository"
	"Sentinel/internal/service/binance"
	svcmetrics "Sentinel/internal/service/metrics"
	"Sentinel/internal/service/ratelimit"
	"Sentinel/internal/services/analysis"
	"Sentinel/internal/usecase"
	"Sentinel/pkg/cache"
	"Sentinel/pkg/config"
	xhttp "Sentinel/pkg/http"
	pkgkafka "Sentinel/pkg/kafka"
	applogger "Sentinel/pkg/logger"
	"Sentinel/pkg/metrics"
	"Sentinel/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry every collector registers on.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

func ProvideAPIMetrics(reg *prometheus.Registry) *svcmetrics.APIMetrics {
	return svcmetrics.NewAPIMetrics(reg)
}

// ProvideMarketData creates the Binance futures client.
func ProvideMarketData(cfg *config.Config, logger *applogger.Logger) *binance.Client {
	return binance.NewClient(cfg.Exchange, logger)
}

func ProvideSnapshotStore(cfg *config.Config) *usecase.SnapshotStore {
	return usecase.NewSnapshotStore(cfg.Symbol, usecase.Cadences(cfg.Pollers), cfg.Analysis.StaleMultiplier)
}

func ProvideEngine(cfg *config.Config) *analysis.Engine {
	return analysis.NewEngine(cfg)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// With a log topic configured, aggregated error logs are shipped through it as well.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, logger *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyHashing(true),
		pkgkafka.WithMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogTopic,
			Publisher: repository.NewKafkaLogPublisher(producer),
		})
	}
	return producer, nil
}

// ProvideResultStore connects to Redis, or returns nil when Redis is disabled.
func ProvideResultStore(cfg *config.Config) (*repository.ResultStore, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2),
		cache.WithRedisTimeouts(5*time.Second, 3*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return repository.NewResultStore(rc, cfg.ResultTTL()), nil
}

// ProvideStreamHub creates the websocket hub, or nil when streaming is disabled.
func ProvideStreamHub(cfg *config.Config, logger *applogger.Logger) *api.StreamHub {
	if !cfg.Stream.Enabled {
		return nil
	}
	return api.NewStreamHub(cfg.Stream, logger)
}

// ProvideSinks collects the enabled result sinks.
func ProvideSinks(cfg *config.Config, store *repository.ResultStore, producer *pkgkafka.Producer, hub *api.StreamHub) *repository.FanoutPublisher {
	f := repository.NewFanoutPublisher()
	// typed nils would pass Add's nil check
	if store != nil {
		f.Add("redis", store)
	}
	if producer != nil {
		f.Add("kafka", repository.NewKafkaResultPublisher(producer, cfg.Kafka.Topic))
	}
	if hub != nil {
		f.Add("stream", hub)
	}
	return f
}

func ProvideResultPipeline(cfg *config.Config, sinks *repository.FanoutPublisher, m *metrics.Recorder, logger *applogger.Logger) *mid.ResultPipeline {
	return mid.NewResultPipeline(sinks, m, logger,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithRetry(cfg.Pipeline.MaxAttempts, cfg.Pipeline.BackoffMin, cfg.Pipeline.BackoffMax),
		mid.WithPublishTimeout(cfg.Pipeline.Timeout),
	)
}

func ProvidePollerSupervisor(cfg *config.Config, md *binance.Client, store *usecase.SnapshotStore, m *metrics.Recorder, logger *applogger.Logger) *usecase.PollerSupervisor {
	return usecase.NewPollerSupervisor(cfg, md, store, m, logger)
}

func ProvideAnalysisCycle(cfg *config.Config, store *usecase.SnapshotStore, engine *analysis.Engine, pipe *mid.ResultPipeline, m *metrics.Recorder, logger *applogger.Logger) *usecase.AnalysisCycle {
	return usecase.NewAnalysisCycle(store, engine, pipe, m, logger, cfg.Analysis.Interval)
}

// ProvideHandler creates the read API handler with per-client rate limiting.
func ProvideHandler(
	cfg *config.Config,
	logger *applogger.Logger,
	cycle *usecase.AnalysisCycle,
	store *usecase.SnapshotStore,
	hub *api.StreamHub,
	m *svcmetrics.APIMetrics,
) *api.SentinelHandler {
	limit := api.RateLimit(ratelimit.New(10*time.Minute),
		cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec, m, logger)
	return api.NewSentinelHandler(logger, cycle, store, analysis.NewDescriber(cfg), hub, m, limit)
}

func ProvideHTTPServer(cfg *config.Config, h *api.SentinelHandler, logger *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(logger),
		xhttp.WithMetrics(reg, path, cfg.Server.SlowRequest),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	supervisor *usecase.PollerSupervisor,
	cycle *usecase.AnalysisCycle,
	pipe *mid.ResultPipeline,
	sinks *repository.FanoutPublisher,
	store *repository.ResultStore,
	producer *pkgkafka.Producer,
	httpServer *xhttp.Server,
) *server.App {
	app := server.New(cfg, logger, supervisor, cycle, pipe, sinks, httpServer)
	if store != nil {
		app.SetResultLoader(store)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	return app
}
