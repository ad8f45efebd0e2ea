package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aktiemotor"

var regimes = []string{"BULL", "BULL_EARLY", "NEUTRAL", "BEAR"}

// Recorder is the engine's Prometheus surface.
type Recorder struct {
	messagesSent  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	cycleDuration prometheus.Histogram
	evaluated     *prometheus.CounterVec
	signals       *prometheus.CounterVec
	score         *prometheus.GaugeVec
	regime        *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		messagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Recommendations delivered per sink",
		}, []string{"sink"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind",
		}, []string{"type"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Last evaluated price per ticker",
		}, []string{"ticker"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of upstream and storage operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one evaluation pass over the watchlist",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		evaluated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickers_evaluated_total",
			Help:      "Per-ticker evaluation outcomes",
		}, []string{"outcome"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_emitted_total",
			Help:      "Recommendations emitted",
		}, []string{"side", "kind"}),
		score: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Latest buy or sell score per ticker",
		}, []string{"ticker", "side"}),
		regime: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "market_regime",
			Help:      "1 for the current benchmark regime, 0 otherwise",
		}, []string{"regime"}),
	}
}

func (r *Recorder) RecordMessageSent(sink string) {
	r.messagesSent.WithLabelValues(sink).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) RecordCycle(d time.Duration) {
	r.cycleDuration.Observe(d.Seconds())
}

// RecordEvaluation counts one ticker outcome: scored, skipped or cooldown.
func (r *Recorder) RecordEvaluation(outcome string) {
	r.evaluated.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSignal(side, kind string) {
	r.signals.WithLabelValues(side, kind).Inc()
}

func (r *Recorder) RecordScore(ticker, side string, score int) {
	r.score.WithLabelValues(ticker, side).Set(float64(score))
}

// RecordRegime sets the current regime's gauge to 1 and the others to 0.
func (r *Recorder) RecordRegime(current string) {
	for _, name := range regimes {
		v := 0.0
		if name == current {
			v = 1
		}
		r.regime.WithLabelValues(name).Set(v)
	}
}
