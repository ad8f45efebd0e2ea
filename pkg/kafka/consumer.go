package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"Aktiemotor/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// ErrPoison marks a message that will never succeed. Wrapping it skips the
// remaining retries and sends the message straight to the DLQ.
var ErrPoison = errors.New("kafka: poison message")

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, data []byte) error
}

// messageReader is the part of *kafka.Reader the consumer uses. Offsets are
// committed explicitly after handling.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type readerFactory func(topic string) messageReader

// Consumer fans fetched messages out to a worker pool. Messages of one
// partition are handled one at a time, failures are retried with jittered
// backoff and finally parked on the DLQ topic.
type Consumer struct {
	cfg       *ConsumerConfig
	log       *logger.Logger
	newReader readerFactory
	dlq       messageWriter
	handlers  map[string]MessageHandler
	readers   map[string]messageReader
	queue     chan kafka.Message
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	readersWG sync.WaitGroup
	partMu    sync.Mutex
	partLocks map[string]*sync.Mutex
	metrics   *consumerMetrics
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "aktiemotor",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: brokers are required")
	}
	c := newConsumer(cfg, func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	})
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.Hash{}, AllowAutoTopicCreation: true}
	}
	return c, nil
}

func newConsumer(cfg *ConsumerConfig, rf readerFactory) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Hook == nil {
		cfg.Hook = NoopHook{}
	}
	return &Consumer{
		cfg:       cfg,
		log:       cfg.Logger,
		newReader: rf,
		handlers:  make(map[string]MessageHandler),
		readers:   make(map[string]messageReader),
		queue:     make(chan kafka.Message, cfg.BufferSize),
		stop:      make(chan struct{}),
		partLocks: make(map[string]*sync.Mutex),
		metrics:   newConsumerMetrics(cfg.Registerer),
	}
}

// RegisterHandler must be called before Start. A second handler for the
// same topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.log.Warn("kafka consumer: handler already registered", logger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = c.newReader(topic)
	}
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.work()
	}
	for topic, r := range c.readers {
		c.readersWG.Add(1)
		go c.fetch(topic, r)
	}
	c.log.Info("kafka consumer started",
		logger.String("group", c.cfg.GroupID),
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.WorkerCount))
	return nil
}

// Stop stops fetching, drains the queue and closes readers. It returns
// ctx.Err() if workers do not finish in time.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		c.readersWG.Wait()
		close(c.queue)

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("kafka consumer: close reader", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
		c.log.Info("kafka consumer stopped")
	})
	return err
}

func (c *Consumer) fetch(topic string, r messageReader) {
	defer c.readersWG.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka consumer: fetch failed", logger.String("topic", topic), logger.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-c.stop:
				return
			}
		}
		select {
		case c.queue <- msg:
			c.metrics.depth(topic, len(c.queue))
		case <-c.stop:
			return
		}
	}
}

func (c *Consumer) work() {
	defer c.wg.Done()
	for msg := range c.queue {
		c.process(msg)
	}
}

func (c *Consumer) process(msg kafka.Message) {
	h, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()
	lock := c.partitionLock(msg.Topic, msg.Partition)
	lock.Lock()
	defer lock.Unlock()

	err := c.handleWithRetry(h, msg)
	if err != nil {
		c.log.Error("kafka consumer: message failed",
			logger.String("topic", msg.Topic),
			logger.Int64("offset", msg.Offset),
			logger.Error(err))
		c.cfg.Hook.OnError(context.Background(), msg.Topic, msg, msg.Value, err)
		if !c.parkOnDLQ(msg, err) {
			c.metrics.handled(msg.Topic, "failed", time.Since(start))
			return
		}
	}

	if r := c.readers[msg.Topic]; r != nil {
		if cerr := c.commit(r, msg); cerr != nil {
			c.log.Error("kafka consumer: commit failed", logger.String("topic", msg.Topic), logger.Error(cerr))
		}
	}
	result := "ok"
	if err != nil {
		result = "dlq"
	}
	c.metrics.handled(msg.Topic, result, time.Since(start))
}

func (c *Consumer) handleWithRetry(h MessageHandler, msg kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = c.handleOnce(h, msg)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		var hookErr *HookError
		if errors.As(err, &hookErr) || errors.Is(err, ErrPoison) {
			return err
		}
		select {
		case <-time.After(backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stop:
			return err
		}
	}
}

func (c *Consumer) handleOnce(h MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	ctx, km, data, err := c.cfg.Hook.BeforeHandle(context.Background(), msg.Topic, msg, msg.Value)
	if err != nil {
		return err
	}
	err = h.Handle(ctx, data)
	c.cfg.Hook.AfterHandle(ctx, msg.Topic, km, data, err)
	return err
}

// parkOnDLQ reports whether msg was written to the DLQ and may be committed.
func (c *Consumer) parkOnDLQ(msg kafka.Message, cause error) bool {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("kafka consumer: dlq write failed", logger.String("dlq", c.cfg.DLQTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(r messageReader, msg kafka.Message) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	key := fmt.Sprintf("%s/%d", topic, partition)
	c.partMu.Lock()
	defer c.partMu.Unlock()
	l, ok := c.partLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[key] = l
	}
	return l
}

// backoff is exponential from min, capped at max, minus up to 50% jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min << uint(attempt-1)
	if d > max || d <= 0 {
		d = max
	}
	half := int64(d) / 2
	if half <= 0 {
		return d
	}
	return d - time.Duration(rand.Int63n(half))
}

type consumerMetrics struct {
	queueDepth *prometheus.GaugeVec
	latency    *prometheus.HistogramVec
	results    *prometheus.CounterVec
}

func newConsumerMetrics(reg prometheus.Registerer) *consumerMetrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &consumerMetrics{
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aktiemotor_kafka_consumer_queue_depth",
			Help: "Messages waiting for a worker",
		}, []string{"topic"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "aktiemotor_kafka_consumer_handle_seconds",
			Help: "Handling time per message including retries",
		}, []string{"topic"}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aktiemotor_kafka_consumer_messages_total",
			Help: "Handled messages by result",
		}, []string{"topic", "result"}),
	}
}

func (m *consumerMetrics) depth(topic string, n int) {
	if m != nil {
		m.queueDepth.WithLabelValues(topic).Set(float64(n))
	}
}

func (m *consumerMetrics) handled(topic, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(topic, result).Inc()
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
