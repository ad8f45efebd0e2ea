package di

import (
	"context"
	"fmt"
	"time"

	domrepo "Aktiemotor/internal/domain/repository"
	domsvc "Aktiemotor/internal/domain/service"
	"Aktiemotor/internal/handler/api"
	"Aktiemotor/internal/handler/ws"
	mid "Aktiemotor/internal/middleware"
	internalrepo "Aktiemotor/internal/repository"
	"Aktiemotor/internal/service/cache"
	"Aktiemotor/internal/service/insider"
	llmmetrics "Aktiemotor/internal/service/metrics"
	"Aktiemotor/internal/service/news"
	"Aktiemotor/internal/service/notify"
	"Aktiemotor/internal/service/ratelimit"
	"Aktiemotor/internal/service/sentiment"
	"Aktiemotor/internal/service/upstream"
	"Aktiemotor/internal/service/yahoo"
	"Aktiemotor/internal/usecase"
	pkgcache "Aktiemotor/pkg/cache"
	pkgch "Aktiemotor/pkg/clickhouse"
	"Aktiemotor/pkg/config"
	xhttp "Aktiemotor/pkg/http"
	pkgkafka "Aktiemotor/pkg/kafka"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/metrics"
	"Aktiemotor/pkg/queue"
	"Aktiemotor/pkg/server"
	"Aktiemotor/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/segmentio/kafka-go"
)

const serviceName = "aktiemotor"

// ProvideLogger creates the root logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry served at /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates the engine metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideRedisCache connects to Redis. It backs the state store, the byte
// caches and the job queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, func(), error) {
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(10, 2),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideStateStore keeps signals, positions, the watchlist, settings and the
// ledger in Redis.
func ProvideStateStore(rc *pkgcache.RedisCache, l *logger.Logger) *internalrepo.CacheStateStore {
	s := internalrepo.NewCacheStateStore(rc)
	s.SetLogger(l)
	return s
}

// ProvideBytesCache fronts Redis with a short-lived in-process layer for the
// upstream response caches.
func ProvideBytesCache(rc *pkgcache.RedisCache) (cache.BytesCache, func()) {
	layered := pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(2000),
		pkgcache.WithLayeredMemoryTTL(30*time.Second),
	)
	return cache.NewServiceCache(layered, "upstream"), func() { _ = layered.Close() }
}

func ProvideTradingHours(cfg *config.Config) (util.TradingHours, error) {
	return util.NewTradingHours(cfg.Market.Timezone, cfg.Market.Open, cfg.Market.Close)
}

// ProvideArchive connects ClickHouse and creates the archive tables. With
// ClickHouse disabled every write is dropped.
func ProvideArchive(cfg *config.Config, l *logger.Logger) (domrepo.Archive, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return internalrepo.NoopArchive{}, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.WriteTimeout),
		pkgch.WithCreateDatabase(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	archive := internalrepo.NewCHArchive(client)
	archive.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, func() { _ = client.Close() }, nil
}

// ProvideKafkaProducer creates the producer and routes the error digest
// through it. Nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerLogger(l),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	l.AddCollector(&logger.CollectionConfig{
		TimeInterval:   cfg.Log.DigestInterval,
		CountThreshold: 100,
		Topic:          cfg.Log.DigestTopic,
		Service:        serviceName,
		Publisher:      producer,
	})
	return producer, func() { _ = producer.Close() }, nil
}

func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.RecommendationPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

func ProvideAuditHandler(cfg *config.Config, archive domrepo.Archive, m domrepo.Metrics) *usecase.AuditHandler {
	return usecase.NewAuditHandler(cfg.Kafka.Topic, archive, m)
}

// ProvideKafkaConsumer reads the recommendation topic back into the audit
// table. Nil when Kafka or ClickHouse is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	hook := pkgkafka.HookFuncs{
		After: func(_ context.Context, _ string, km kafka.Message, _ []byte, err error) {
			if err == nil {
				m.RecordLatency("audit_lag", time.Since(km.Time))
			}
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) {
			m.RecordError("audit_consume")
		},
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerHook(hook),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideYahoo(cfg *config.Config, c cache.BytesCache, l *logger.Logger) *yahoo.Client {
	base := upstream.New("yahoo",
		upstream.WithClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Yahoo.Timeout),
			xhttp.WithUserAgent(yahoo.BrowserUserAgent),
		)),
		upstream.WithRate(cfg.Yahoo.RatePerSec, cfg.Yahoo.Burst),
		upstream.WithRetry(3, 500*time.Millisecond),
		upstream.WithLogger(l),
	)
	return yahoo.NewClient(base, yahoo.Config{
		BaseURL:     cfg.Yahoo.BaseURL,
		QuoteTTL:    cfg.History.QuoteTTL,
		EarningsTTL: cfg.Yahoo.EarningsTTL,
	}, c, l)
}

// ProvideHistory picks the bar source and puts the cache in front of it.
// Fresh series are copied to the archive, which also serves as the
// fallback when the source is down.
func ProvideHistory(cfg *config.Config, y *yahoo.Client, archive domrepo.Archive, c cache.BytesCache, l *logger.Logger) (domrepo.BarSource, func()) {
	var primary domrepo.BarSource = y
	cleanup := func() {}
	if cfg.History.Source == "influx" {
		ih := internalrepo.NewInfluxHistory(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, cfg.Influx.Measurement)
		ih.SetLogger(l)
		primary = ih
		cleanup = func() { _ = ih.Close() }
	}

	h := internalrepo.NewCachedHistory(primary, c, cfg.History.CacheTTL)
	h.SetLogger(l)
	if cfg.History.Archive {
		h.WithArchive(archive)
	}
	if src, ok := archive.(domrepo.BarSource); ok {
		h.WithFallback(src)
	} else if cfg.History.Source == "influx" {
		h.WithFallback(y)
	}
	return h, cleanup
}

// ProvideSentiment returns the Gemini analyzer, or the neutral one when
// sentiment is disabled or no key is configured.
func ProvideSentiment(cfg *config.Config, c cache.BytesCache, reg *prometheus.Registry, l *logger.Logger) domsvc.SentimentAnalyzer {
	if !cfg.Sentiment.Enabled || cfg.Sentiment.APIKey == "" {
		l.Info("sentiment disabled, headlines read as neutral")
		return sentiment.Static{}
	}
	return sentiment.NewGemini(sentiment.Config{
		APIKey:     cfg.Sentiment.APIKey,
		BaseURL:    cfg.Sentiment.BaseURL,
		Model:      cfg.Sentiment.Model,
		CacheTTL:   cfg.Sentiment.CacheTTL,
		RetryDelay: cfg.Sentiment.RetryDelay,
	}, c, llmmetrics.NewLLMMetrics(reg), l)
}

func ProvideNotifier(cfg *config.Config, l *logger.Logger) domrepo.Notifier {
	if !cfg.Notify.Enabled {
		return notify.Discard{}
	}
	base := upstream.New("ntfy",
		upstream.WithClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Notify.Timeout))),
		upstream.WithRetry(2, time.Second),
		upstream.WithLogger(l),
	)
	return notify.NewNtfy(base, cfg.Notify.URL, cfg.Notify.Topic, "", l)
}

func ProvideHub(l *logger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvidePipeline fans emitted recommendations out to Kafka, ntfy and the
// websocket feed.
func ProvidePipeline(pub domrepo.RecommendationPublisher, m domrepo.Metrics, n domrepo.Notifier, hub *ws.Hub, l *logger.Logger) *mid.RecommendationPipeline {
	return mid.NewRecommendationPipeline(pub, m,
		mid.WithBufferSize(1000),
		mid.WithPushInterval(5*time.Second),
		mid.WithNotifier(n),
		mid.WithBroadcaster(hub),
		mid.WithPipelineLogger(l),
		mid.WithRetryBackoff(500*time.Millisecond, 30*time.Second),
	)
}

// ProvideSignalSink routes emitted and updated recommendations through the
// pipeline.
func ProvideSignalSink(p *mid.RecommendationPipeline) usecase.SignalSink {
	return p
}

// ProvideDiscardSink is the sink for one-shot commands.
func ProvideDiscardSink() usecase.SignalSink {
	return usecase.DiscardSink
}

func ProvideStrategies(cfg *config.Config, store *internalrepo.CacheStateStore, l *logger.Logger) *usecase.Strategies {
	return usecase.NewStrategies(cfg.Engine.StrategiesFile, store, l)
}

func ProvidePortfolio(store *internalrepo.CacheStateStore, y *yahoo.Client, hours util.TradingHours, l *logger.Logger) *usecase.Portfolio {
	return usecase.NewPortfolio(store, y, hours, l)
}

// ProvideEvaluator assembles the cycle with every enabled collaborator.
func ProvideEvaluator(
	cfg *config.Config,
	store *internalrepo.CacheStateStore,
	bars domrepo.BarSource,
	portfolio *usecase.Portfolio,
	strategies *usecase.Strategies,
	hours util.TradingHours,
	y *yahoo.Client,
	analyzer domsvc.SentimentAnalyzer,
	archive domrepo.Archive,
	sink usecase.SignalSink,
	n domrepo.Notifier,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.Evaluator {
	ec := usecase.DefaultEvaluatorConfig()
	ec.Index = cfg.Market.Index
	ec.Range = domrepo.NormalizeRange(cfg.Market.HistoryRange)
	ec.RSWindow = cfg.Engine.RSWindow
	ec.StopCooldown = cfg.Engine.StopCooldown
	ec.RoutineCooldown = cfg.Engine.RoutineCooldown
	ec.EarningsWindow = cfg.Engine.EarningsWindow
	ec.InsiderLookback = time.Duration(cfg.Insider.LookbackDays) * 24 * time.Hour
	ec.MinInsiderNotional = cfg.Insider.MinNotional
	ec.NewsItems = cfg.News.MaxItems
	ec.SentimentItems = cfg.Engine.SentimentItems

	opts := []usecase.EvaluatorOption{
		usecase.WithEarnings(y),
		usecase.WithArchive(archive),
		usecase.WithSink(sink),
		usecase.WithNotifier(n),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	}
	if cfg.Insider.Enabled {
		base := upstream.New("fi_insider",
			upstream.WithClient(xhttp.NewClient(xhttp.WithTimeout(15*time.Second))),
			upstream.WithRate(1, 1),
			upstream.WithLogger(l),
		)
		opts = append(opts, usecase.WithInsider(insider.NewClient(base, cfg.Insider.BaseURL, l)))
	}
	if cfg.News.Enabled {
		base := upstream.New("google_news",
			upstream.WithClient(xhttp.NewClient(xhttp.WithTimeout(10*time.Second))),
			upstream.WithRate(2, 2),
			upstream.WithLogger(l),
		)
		opts = append(opts,
			usecase.WithNews(news.NewGoogleNews(base, cfg.News.BaseURL, l)),
			usecase.WithSentiment(analyzer),
		)
	}
	return usecase.NewEvaluator(ec, store, bars, portfolio, strategies, hours, opts...)
}

func ProvideConfirmation(store *internalrepo.CacheStateStore, y *yahoo.Client, sink usecase.SignalSink, hours util.TradingHours, m domrepo.Metrics, l *logger.Logger) *usecase.Confirmation {
	c := usecase.NewConfirmation(store, y, sink, hours, l)
	c.SetMetrics(m)
	return c
}

func ProvideScanner(cfg *config.Config, store *internalrepo.CacheStateStore, bars domrepo.BarSource, strategies *usecase.Strategies, n domrepo.Notifier, hours util.TradingHours, l *logger.Logger) *usecase.Scanner {
	s := usecase.NewScanner(store, bars, strategies, n, hours, l)
	s.SetIndex(cfg.Market.Index)
	return s
}

// ProvideBriefing reads report dates from the Yahoo calendar.
func ProvideBriefing(store *internalrepo.CacheStateStore, portfolio *usecase.Portfolio, y *yahoo.Client, hours util.TradingHours, l *logger.Logger) *usecase.Briefing {
	return usecase.NewBriefing(store, portfolio, y, hours, l)
}

// ProvideQueue runs scans and ad hoc evaluations on the Redis job queue.
func ProvideQueue(cfg *config.Config, rc *pkgcache.RedisCache, scanner *usecase.Scanner, evaluator *usecase.Evaluator, l *logger.Logger) *queue.RedisQueue {
	q := queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.MaxAttempts,
		RetryDelay: 30 * time.Second,
		JobTimeout: cfg.Queue.JobTimeout,
	}, rc.Client(), queue.WithKeyPrefix(rc.Prefix()+":queue"))
	q.RegisterJob(usecase.ScanJob(scanner))
	q.RegisterJob(usecase.DiscoverJob(scanner))
	q.RegisterJob(usecase.EvaluateJob(evaluator))
	return q
}

func ProvideScheduler(cfg *config.Config, hours util.TradingHours, evaluator *usecase.Evaluator, scanner *usecase.Scanner, portfolio *usecase.Portfolio, briefing *usecase.Briefing, n domrepo.Notifier, q *queue.RedisQueue, l *logger.Logger) (*usecase.Scheduler, error) {
	sc, err := usecase.NewSchedulerConfig(cfg.Market.EvalInterval, cfg.Market.DailyScanAt, cfg.Market.WeeklyReportAt)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if sc, err = sc.WithDailyTimes(cfg.Market.MorningAt, cfg.Market.DiscoveryAt, cfg.Market.EveningAt); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	s := usecase.NewScheduler(sc, hours, evaluator, scanner, portfolio, n, l)
	s.SetQueue(q)
	s.SetBriefing(briefing)
	return s, nil
}

func ProvideEngineHandler(l *logger.Logger, confirmation *usecase.Confirmation, portfolio *usecase.Portfolio, strategies *usecase.Strategies) *api.EngineHandler {
	return api.NewEngineHandler(l, confirmation, portfolio, strategies)
}

// ProvideControlHandler wires manual runs to the queue and registers the
// dependency health checks.
func ProvideControlHandler(cfg *config.Config, l *logger.Logger, evaluator *usecase.Evaluator, scanner *usecase.Scanner, portfolio *usecase.Portfolio, q *queue.RedisQueue, rc *pkgcache.RedisCache, archive domrepo.Archive) *api.ControlHandler {
	h := api.NewControlHandler(l, evaluator, scanner, portfolio)
	h.SetQueue(q)
	h.SetRateLimit(ratelimit.New(cfg.Server.RunRate, cfg.Server.RunBurst))
	h.AddHealthCheck("redis", func(ctx context.Context) error {
		return rc.Client().Ping(ctx).Err()
	})
	if cfg.ClickHouse.Enabled {
		h.AddHealthCheck("clickhouse", archive.Health)
	}
	return h
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry, engine *api.EngineHandler, control *api.ControlHandler, hub *ws.Hub) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(xhttp.Handlers{engine, control, hub}, l, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	scheduler *usecase.Scheduler,
	pipeline *mid.RecommendationPipeline,
	strategies *usecase.Strategies,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	audit *usecase.AuditHandler,
	hub *ws.Hub,
) *server.App {
	return server.New(cfg, l, server.Components{
		HTTP:       srv,
		Scheduler:  scheduler,
		Pipeline:   pipeline,
		Strategies: strategies,
		Queue:      q,
		Consumer:   consumer,
		Audit:      audit,
		Hub:        hub,
	})
}

// Engine is the subset of the application the CLI commands drive directly.
type Engine struct {
	Logger     *logger.Logger
	Strategies *usecase.Strategies
	Evaluator  *usecase.Evaluator
	Scanner    *usecase.Scanner
}
