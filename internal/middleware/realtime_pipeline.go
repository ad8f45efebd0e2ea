package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	"Aktiemotor/internal/service/notify"
	"Aktiemotor/pkg/logger"
)

// Broadcaster fans recommendations out to live clients.
type Broadcaster interface {
	Broadcast(rec *models.Recommendation)
}

// RecommendationPipeline sits between the engine and everything downstream.
// It validates, publishes to the event stream, pushes new signals to the
// phone and broadcasts to websocket clients. Publishes that fail are
// buffered and retried in the background.
type RecommendationPipeline struct {
	publisher domrepo.RecommendationPublisher
	notifier  domrepo.Notifier
	hub       Broadcaster
	metrics   domrepo.Metrics
	log       *logger.Logger

	bufSize  int
	bufCh    chan *models.Recommendation
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
	pushGap  time.Duration
	lastPush map[string]time.Time // per ticker and side
	now      func() time.Time

	backoffMin time.Duration
	backoffMax time.Duration
}

type PipelineOption func(*RecommendationPipeline)

// WithBufferSize sets how many publishes are held while the stream is down.
func WithBufferSize(n int) PipelineOption {
	return func(p *RecommendationPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithPushInterval sets the minimum gap between two pushes for the same
// ticker and side.
func WithPushInterval(d time.Duration) PipelineOption {
	return func(p *RecommendationPipeline) {
		if d >= 0 {
			p.pushGap = d
		}
	}
}

func WithNotifier(n domrepo.Notifier) PipelineOption {
	return func(p *RecommendationPipeline) { p.notifier = n }
}

func WithBroadcaster(b Broadcaster) PipelineOption {
	return func(p *RecommendationPipeline) { p.hub = b }
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *RecommendationPipeline) {
		if l != nil {
			p.log = l.With("pipeline")
		}
	}
}

// WithRetryBackoff bounds the wait between flush attempts.
func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *RecommendationPipeline) {
		if min > 0 && max >= min {
			p.backoffMin, p.backoffMax = min, max
		}
	}
}

func NewRecommendationPipeline(publisher domrepo.RecommendationPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *RecommendationPipeline {
	p := &RecommendationPipeline{
		publisher:  publisher,
		metrics:    metrics,
		log:        logger.Nop(),
		bufSize:    1000,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		pushGap:    time.Minute,
		lastPush:   make(map[string]time.Time),
		now:        time.Now,
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Recommendation, p.bufSize)
	return p
}

// Start launches background flushing of buffered publishes.
func (p *RecommendationPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *RecommendationPipeline) flush(ctx context.Context) {
	defer close(p.doneCh)
	backoff := p.backoffMin
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case rec := <-p.bufCh:
			if err := p.publisher.PublishRecommendation(ctx, rec); err != nil {
				p.metrics.RecordError("pipeline_flush")
				if backoff < p.backoffMax {
					backoff *= 2
					if backoff > p.backoffMax {
						backoff = p.backoffMax
					}
				}
				select {
				case <-time.After(backoff):
				case <-p.stopCh:
					p.requeue(rec)
					return
				case <-ctx.Done():
					p.requeue(rec)
					return
				}
				p.requeue(rec)
				continue
			}
			backoff = p.backoffMin
			p.metrics.RecordMessageSent("kafka")
			p.log.Debug("buffered recommendation published", logger.String("id", rec.ID))
		}
	}
}

func (p *RecommendationPipeline) requeue(rec *models.Recommendation) {
	select {
	case p.bufCh <- rec:
	default:
		p.metrics.RecordError("pipeline_buffer_drop")
		p.log.Warn("recommendation dropped, buffer full", logger.String("id", rec.ID))
	}
}

// Stop ends background flushing. Recommendations still buffered are lost
// from the stream but remain in the state store.
func (p *RecommendationPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)

	select {
	case <-p.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("pipeline stopped with unpublished recommendations", logger.Int("buffered", n))
	}
	return nil
}

// Buffered is the number of publishes waiting for a retry.
func (p *RecommendationPipeline) Buffered() int { return len(p.bufCh) }

// Emit delivers a new pending recommendation to every target.
func (p *RecommendationPipeline) Emit(ctx context.Context, rec *models.Recommendation) error {
	start := time.Now()
	if err := validateRecommendation(rec); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	err := p.publish(ctx, rec)
	p.push(ctx, rec)
	p.broadcast(rec)
	p.metrics.RecordLatency("pipeline_emit", time.Since(start))
	return err
}

// Update delivers a status change. Status changes are never pushed.
func (p *RecommendationPipeline) Update(ctx context.Context, rec *models.Recommendation) error {
	if err := validateRecommendation(rec); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	err := p.publish(ctx, rec)
	p.broadcast(rec)
	return err
}

// publish forwards to the stream and buffers on failure. Only a full buffer
// is reported as an error.
func (p *RecommendationPipeline) publish(ctx context.Context, rec *models.Recommendation) error {
	if p.publisher == nil {
		return nil
	}
	if err := p.publisher.PublishRecommendation(ctx, rec); err != nil {
		p.metrics.RecordError("pipeline_publish")
		select {
		case p.bufCh <- rec:
			p.log.Warn("publish failed, buffered", logger.String("id", rec.ID), logger.Int("buffered", len(p.bufCh)), logger.Error(err))
			return nil
		default:
			p.metrics.RecordError("pipeline_buffer_full")
			return fmt.Errorf("pipeline downstream: %w", err)
		}
	}
	p.metrics.RecordMessageSent("kafka")
	return nil
}

func (p *RecommendationPipeline) push(ctx context.Context, rec *models.Recommendation) {
	if p.notifier == nil || !p.allow(rec, p.now()) {
		return
	}
	if err := p.notifier.Notify(ctx, notify.ForRecommendation(rec)); err != nil {
		p.metrics.RecordError("pipeline_push")
		p.log.Warn("push failed", logger.String("id", rec.ID), logger.Error(err))
		return
	}
	p.metrics.RecordMessageSent("ntfy")
}

func (p *RecommendationPipeline) broadcast(rec *models.Recommendation) {
	if p.hub == nil {
		return
	}
	p.hub.Broadcast(rec)
	p.metrics.RecordMessageSent("ws")
}

// allow throttles pushes per ticker and side. Stop and take alerts always
// go through.
func (p *RecommendationPipeline) allow(rec *models.Recommendation, now time.Time) bool {
	if rec.Kind == models.KindStopTake || p.pushGap <= 0 {
		return true
	}
	key := rec.Ticker + ":" + string(rec.Side)
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.lastPush[key]; ok && now.Sub(last) < p.pushGap {
		p.metrics.RecordError("pipeline_throttle")
		return false
	}
	p.lastPush[key] = now
	return true
}

func validateRecommendation(rec *models.Recommendation) error {
	if rec == nil {
		return errors.New("recommendation nil")
	}
	if rec.ID == "" {
		return errors.New("recommendation id empty")
	}
	if rec.Ticker == "" {
		return errors.New("ticker empty")
	}
	if rec.Side != models.SideBuy && rec.Side != models.SideSell {
		return fmt.Errorf("side %q invalid", rec.Side)
	}
	if rec.Price < 0 || rec.Quantity < 0 {
		return errors.New("negative price/quantity")
	}
	return nil
}
