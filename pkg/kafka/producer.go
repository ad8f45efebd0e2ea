package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Aktiemotor/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON payloads keyed for per-ticker ordering.
type Producer struct {
	writer  messageWriter
	comp    string
	log     *logger.Logger
	metrics *producerMetrics
}

// Message is one record for PublishBatch.
type Message struct {
	Key     []byte
	Value   interface{}
	Headers map[string]string
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: 1,
		Compression:  "snappy",
		MaxAttempts:  5,
		WriteTimeout: 10 * time.Second,
		BatchSize:    100,
		BatchTimeout: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer: brokers are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            parseCompression(cfg.Compression),
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: true,
	}
	if cfg.Async {
		l := cfg.Logger
		w.Completion = func(msgs []kafka.Message, err error) {
			if err != nil {
				l.Error("kafka async write failed", logger.Int("messages", len(msgs)), logger.Error(err))
			}
		}
	}
	return newProducer(w, cfg.Compression, cfg.Logger, cfg.Registerer), nil
}

func newProducer(w messageWriter, comp string, l *logger.Logger, reg prometheus.Registerer) *Producer {
	if l == nil {
		l = logger.Nop()
	}
	return &Producer{writer: w, comp: comp, log: l, metrics: newProducerMetrics(reg)}
}

// Publish sends one message.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage satisfies logger.Publisher.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	start := time.Now()
	now := start.UTC()
	out := make([]kafka.Message, 0, len(messages))
	var size int64
	for _, m := range messages {
		v, err := encode(m.Value)
		if err != nil {
			return fmt.Errorf("kafka publish %s: %w", topic, err)
		}
		km := kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: now}
		for k, hv := range m.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(hv)})
		}
		out = append(out, km)
		size += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, out...)
	p.metrics.observe(topic, p.comp, size, len(out), time.Since(start), err)
	if err != nil {
		p.log.Warn("kafka publish failed", logger.String("topic", topic), logger.Int("messages", len(out)), logger.Error(err))
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return b, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newProducerMetrics(reg prometheus.Registerer) *producerMetrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &producerMetrics{
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aktiemotor_kafka_producer_messages_total",
			Help: "Messages published to Kafka by result",
		}, []string{"topic", "result"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aktiemotor_kafka_producer_bytes_total",
			Help: "Payload bytes published",
		}, []string{"topic", "compression"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aktiemotor_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}

func (m *producerMetrics) observe(topic, comp string, size int64, count int, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, result).Add(float64(count))
	m.bytes.WithLabelValues(topic, comp).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
