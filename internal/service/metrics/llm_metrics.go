package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LLMMetrics tracks language-model usage by call type (sentiment, description).
// A nil *LLMMetrics is a no-op.
type LLMMetrics struct {
	calls     *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	tokens    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

func NewLLMMetrics(reg prometheus.Registerer) *LLMMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &LLMMetrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aktiemotor",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by type and outcome (ok, failed, rate_limited).",
		}, []string{"type", "outcome"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aktiemotor",
			Subsystem: "llm",
			Name:      "cache_hits_total",
			Help:      "Answers served from cache.",
		}, []string{"type"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aktiemotor",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction.",
		}, []string{"direction"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aktiemotor",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of successful LLM calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"type"}),
	}
}

func (m *LLMMetrics) Call(kind, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(kind, outcome).Inc()
}

func (m *LLMMetrics) CacheHit(kind string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(kind).Inc()
}

func (m *LLMMetrics) Tokens(in, out int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues("input").Add(float64(in))
	m.tokens.WithLabelValues("output").Add(float64(out))
}

func (m *LLMMetrics) Latency(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(kind).Observe(d.Seconds())
}
