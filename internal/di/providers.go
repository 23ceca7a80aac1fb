package di

import (
	"context"
	"fmt"
	"time"

	"github.com/econopulse/optionpulse/internal/domain/repository"
	"github.com/econopulse/optionpulse/internal/handler/api"
	"github.com/econopulse/optionpulse/internal/handler/ws"
	internalrepo "github.com/econopulse/optionpulse/internal/repository"
	"github.com/econopulse/optionpulse/internal/service/ratelimit"
	"github.com/econopulse/optionpulse/internal/service/yahoo"
	"github.com/econopulse/optionpulse/internal/usecase"
	"github.com/econopulse/optionpulse/pkg/cache"
	pkgch "github.com/econopulse/optionpulse/pkg/clickhouse"
	"github.com/econopulse/optionpulse/pkg/config"
	xhttp "github.com/econopulse/optionpulse/pkg/http"
	pkgkafka "github.com/econopulse/optionpulse/pkg/kafka"
	"github.com/econopulse/optionpulse/pkg/logger"
	"github.com/econopulse/optionpulse/pkg/metrics"
	"github.com/econopulse/optionpulse/pkg/server"
)

const contractsTable = "option_contracts"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "json"
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stdout"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache service. With Redis enabled a two-level
// cache is used so chain lookups survive process restarts.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideRateLimiter builds the fixed-window limiter. The counter store
// follows the cache backend so multi-instance deployments share one window.
func ProvideRateLimiter(cfg *config.Config, cacheSvc cache.Service) *ratelimit.Limiter {
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	switch c := cacheSvc.(type) {
	case *cache.LayeredCache:
		store = ratelimit.NewRedisStore(c.Redis().Client(), "")
	case *cache.RedisCache:
		store = ratelimit.NewRedisStore(c.Client(), "")
	}
	return ratelimit.New(store, cfg.RateLimit.Limit, cfg.RateLimit.Window)
}

// ProvideHTTPClient creates the upstream HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	timeout := cfg.Provider.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return xhttp.NewClient(xhttp.WithTimeout(timeout))
}

// ProvideChainProvider creates the Yahoo chain provider.
func ProvideChainProvider(
	httpClient *xhttp.Client,
	cacheSvc cache.Service,
	log *logger.Logger,
	cfg *config.Config,
) repository.ChainProvider {
	opts := []yahoo.Option{}
	if cfg.Provider.UserAgent != "" {
		opts = append(opts, yahoo.WithUserAgent(cfg.Provider.UserAgent))
	}
	if cfg.Provider.CacheTTL > 0 {
		opts = append(opts, yahoo.WithCacheTTL(cfg.Provider.CacheTTL))
	}
	return yahoo.New(httpClient, cacheSvc, log, cfg.Provider.ChainURL, cfg.Provider.ScreenerURL, opts...)
}

// ProvideScreener creates the screener use case.
func ProvideScreener(
	provider repository.ChainProvider,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Screener {
	return usecase.NewScreener(provider, m, log,
		usecase.WithDefaults(cfg.Screener.Defaults),
		usecase.WithActivesCount(cfg.Provider.ActivesCount),
		usecase.WithMaxUniverse(cfg.Screener.MaxUniverse),
		usecase.WithBatch(cfg.Screener.BatchSize, cfg.Screener.BatchDelay),
		usecase.WithRiskFreeRate(cfg.Screener.RiskFreeRate),
	)
}

// ProvideClickHouseClient creates a ClickHouse client when the backend or the
// ingest consumer needs one, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" && !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database, contractsTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSnapshotStore creates ClickHouse snapshot storage.
func ProvideSnapshotStore(chClient *pkgch.Client, cfg *config.Config) repository.SnapshotStore {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseSnapshotStore(chClient.DB(), cfg.ClickHouse.Database+"."+contractsTable)
}

// ProvideSnapshotPublisher creates the Kafka snapshot publisher.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSnapshotRecorder creates the backend recorder.
func ProvideSnapshotRecorder(
	pub repository.SnapshotPublisher,
	store repository.SnapshotStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotRecorder {
	return usecase.NewSnapshotRecorder(pub, store, m, cfg.Backend.Type)
}

// ProvideHub creates the snapshot stream hub.
func ProvideHub(log *logger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideRefresher creates the background refresher.
func ProvideRefresher(
	screener *usecase.Screener,
	recorder *usecase.SnapshotRecorder,
	hub *ws.Hub,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Refresher {
	return usecase.NewRefresher(screener, recorder, hub, log, cfg.Refresh.Interval, cfg.Refresh.Limit)
}

// ProvideKafkaConsumer creates the ingest consumer when enabled. It lands
// published contract events in the snapshot store.
func ProvideKafkaConsumer(
	cfg *config.Config,
	store repository.SnapshotStore,
	m repository.Metrics,
	log *logger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("kafka consumer requires a clickhouse store")
	}

	handler := usecase.NewSnapshotIngest(store, m, log)
	consumer, err := pkgkafka.NewConsumer(handler,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithFetchSizes(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideHandlers assembles the HTTP route surface.
func ProvideHandlers(
	log *logger.Logger,
	screener *usecase.Screener,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	store repository.SnapshotStore,
	hub *ws.Hub,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewScreenerEchoHandler(log, screener, limiter, m, store),
		hub,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	refresher *usecase.Refresher,
	recorder *usecase.SnapshotRecorder,
	consumer *pkgkafka.Consumer,
	hub *ws.Hub,
	chClient *pkgch.Client,
	cacheSvc cache.Service,
) *server.App {
	return server.New(cfg, log, handler, refresher, recorder, consumer, hub, chClient, cacheSvc)
}
