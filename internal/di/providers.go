package di

import (
	"context"
	"fmt"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/repository"
	"SignalHub/internal/handler"
	"SignalHub/internal/handler/api"
	"SignalHub/internal/handler/ws"
	internalrepo "SignalHub/internal/repository"
	"SignalHub/internal/schedule"
	"SignalHub/internal/service/prices"
	"SignalHub/internal/service/quotes"
	"SignalHub/internal/service/ratelimit"
	"SignalHub/internal/state"
	"SignalHub/internal/usecase"
	"SignalHub/pkg/cache"
	"SignalHub/pkg/clock"
	"SignalHub/pkg/config"
	xhttp "SignalHub/pkg/http"
	pkgkafka "SignalHub/pkg/kafka"
	applogger "SignalHub/pkg/logger"
	"SignalHub/pkg/metrics"
	"SignalHub/pkg/scheduler"
	"SignalHub/pkg/server"
)

const limiterIdleTTL = 10 * time.Minute

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideClock returns the wall clock.
func ProvideClock() clock.Clock {
	return clock.Real()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the price mirror backend selected by config.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	var (
		svc cache.Service
		err error
	)
	switch cfg.Prices.Store.Backend {
	case "redis", "layered":
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Prices.Store.Backend == "layered" {
			svc = cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(64),
				cache.WithLayeredMemoryTTL(cfg.Prices.CacheTTL),
			)
		}
	default:
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(64))
	}
	log.Info("price store ready", applogger.String("backend", cfg.Prices.Store.Backend))
	cleanup := func() {
		if err := svc.Close(); err != nil {
			log.Warn("cache close error", applogger.Error(err))
		}
	}
	return svc, cleanup, nil
}

// ProvidePriceStore mirrors last known prices into the cache.
func ProvidePriceStore(c cache.Service, cfg *config.Config) repository.PriceStore {
	return internalrepo.NewCachePriceStore(c, cfg.Prices.Store.TTL)
}

// ProvideHTTPClient creates the upstream HTTP client shared by quote sources.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithUserAgent("signalhub/1.0"))
}

// ProvideAggregator builds the price chain.
func ProvideAggregator(
	cfg *config.Config,
	client *xhttp.Client,
	store repository.PriceStore,
	clk clock.Clock,
	log *applogger.Logger,
	m repository.Metrics,
) *prices.Aggregator {
	p := cfg.Prices
	opts := []prices.Option{
		prices.WithTTL(p.CacheTTL),
		prices.WithDefaultSymbols(p.DefaultSymbols),
		prices.WithClock(clk),
		prices.WithStore(store),
		prices.WithLogger(log.Named("prices")),
		prices.WithMetrics(m),
	}
	if p.TertiaryEnabled {
		opts = append(opts, prices.WithTertiary(prices.Upstream{
			Source:  quotes.NewOKX(p.TertiaryURL, client),
			Timeout: p.TertiaryTimeout,
		}))
	}
	return prices.NewAggregator(
		prices.Upstream{Source: quotes.NewBinance("binance-us", p.PrimaryURL, client), Timeout: p.PrimaryTimeout},
		prices.Upstream{Source: quotes.NewBinance("binance-global", p.SecondaryURL, client), Timeout: p.SecondaryTimeout},
		opts...,
	)
}

// ProvideStateStore creates the snapshot store.
func ProvideStateStore() *state.Store {
	return state.NewStore()
}

// ProvideBroker creates the fan-out broker.
func ProvideBroker(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *broadcast.Broker {
	return broadcast.NewBroker(
		broadcast.WithQueueSize(cfg.Broadcast.QueueSize),
		broadcast.WithOverflowPolicy(broadcast.OverflowPolicy(cfg.Broadcast.OverflowPolicy)),
		broadcast.WithLogger(log.Named("broker")),
		broadcast.WithMetrics(m),
	)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalSink forwards accepted signals to Kafka when enabled.
func ProvideSignalSink(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalSink {
	if producer == nil {
		return internalrepo.NopSignalSink{}
	}
	return internalrepo.NewKafkaSignalSink(producer, cfg.Kafka.Producer.Topic)
}

// ProvideIngestor creates the single writer of the state store.
func ProvideIngestor(
	cfg *config.Config,
	store *state.Store,
	broker *broadcast.Broker,
	sink repository.SignalSink,
	clk clock.Clock,
	log *applogger.Logger,
	m repository.Metrics,
) *usecase.Ingestor {
	return usecase.NewIngestor(store, broker,
		usecase.WithSignalCap(cfg.Webhook.MaxSignalsPerSource),
		usecase.WithSink(sink),
		usecase.WithIngestorClock(clk),
		usecase.WithIngestorLogger(log.Named("ingestor")),
		usecase.WithIngestorMetrics(m),
	)
}

// ProvideOracle creates the scan schedule oracle.
func ProvideOracle(cfg *config.Config) *schedule.Oracle {
	return schedule.NewOracle(cfg.Schedule.Producers, cfg.Schedule.Lead)
}

// ProvideFeed creates the feed and installs it as the broker's catch-up provider.
func ProvideFeed(
	store *state.Store,
	agg *prices.Aggregator,
	oracle *schedule.Oracle,
	broker *broadcast.Broker,
	clk clock.Clock,
	log *applogger.Logger,
	m repository.Metrics,
) *usecase.Feed {
	feed := usecase.NewFeed(store, agg, oracle, broker, clk, log.Named("feed"), m)
	broker.SetInitial(feed.Initial)
	return feed
}

// ProvideLimiter creates the webhook rate limiter, or nil when disabled.
func ProvideLimiter(cfg *config.Config, clk clock.Clock) *ratelimit.Limiter {
	if !cfg.Webhook.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Webhook.RateLimit.Capacity, cfg.Webhook.RateLimit.Refill, clk)
}

// ProvideHub creates the WebSocket endpoint.
func ProvideHub(cfg *config.Config, broker *broadcast.Broker, log *applogger.Logger) *ws.Hub {
	return ws.NewHub(broker, log.Named("ws"),
		ws.WithPingPeriod(cfg.Broadcast.PingInterval),
		ws.WithWriteWait(cfg.Broadcast.WriteTimeout),
		ws.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
}

// ProvideRouter assembles every HTTP handler.
func ProvideRouter(
	log *applogger.Logger,
	ingestor *usecase.Ingestor,
	feed *usecase.Feed,
	agg *prices.Aggregator,
	limiter *ratelimit.Limiter,
	hub *ws.Hub,
	clk clock.Clock,
) xhttp.Handler {
	webhook := api.NewWebhookHandler(log, ingestor, nil)
	if limiter != nil {
		webhook = api.NewWebhookHandler(log, ingestor, limiter)
	}
	return handler.NewRouter(
		webhook,
		api.NewSignalsHandler(log, ingestor, feed),
		api.NewPricesHandler(log, agg, clk),
		api.NewHealthHandler(hub, ingestor),
		hub,
	)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithExposedHeaders(api.HeaderCache, api.HeaderCacheAge, api.HeaderSource),
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		opts = append(opts, xhttp.WithAllowedOrigins(cfg.Server.AllowedOrigins))
	}
	return xhttp.NewServer(h, log.Named("http"), opts...)
}

// ProvideScheduler registers the periodic jobs.
func ProvideScheduler(cfg *config.Config, clk clock.Clock, feed *usecase.Feed, limiter *ratelimit.Limiter) *scheduler.Scheduler {
	s := scheduler.New(clk)
	s.Add("price-refresh", cfg.Prices.RefreshInterval, feed.RefreshPrices, scheduler.RunImmediately())
	s.Add("scan-announce", cfg.Schedule.CheckInterval, feed.AnnounceScan, scheduler.RunImmediately())
	if limiter != nil {
		s.Add("ratelimit-gc", time.Minute, func(_ context.Context, _ time.Time) {
			limiter.Forget(limiterIdleTTL)
		})
	}
	return s
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when inbound consumption is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log.Named("kafka"),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes, c.MaxWait),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSignalsHandler feeds inbound Kafka signals to the ingestor.
func ProvideKafkaSignalsHandler(cfg *config.Config, ingestor *usecase.Ingestor, m repository.Metrics) *usecase.KafkaSignalsHandler {
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Consumer.Topic, ingestor, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	sched *scheduler.Scheduler,
	broker *broadcast.Broker,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	sink repository.SignalSink,
) *server.App {
	opts := []server.Option{
		server.WithClosers(hub, sink),
		server.WithStopGrace(cfg.Server.ShutdownTimeout),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	return server.New(log, httpServer, sched, broker, opts...)
}
