package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"Aktiemotor/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a list-backed work queue. Failed messages are parked in a
// sorted set scored by their retry time and moved back when due; messages
// that exhaust their retries land on a dead-letter list.
type RedisQueue struct {
	log       *logger.Logger
	config    QueueConfig
	client    redis.UniversalClient
	keyPrefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type RedisQueueOption func(*RedisQueue)

func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) { r.keyPrefix = prefix }
}

func NewRedisQueue(lgr *logger.Logger, config QueueConfig, client redis.UniversalClient, opts ...RedisQueueOption) *RedisQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 30 * time.Second
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &RedisQueue{
		log:       lgr.With("queue"),
		config:    config,
		client:    client,
		keyPrefix: "aktiemotor:queue",
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Debug("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue already running")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("queue redis ping: %w", err)
	}
	r.running = true
	if len(r.jobs) == 0 {
		r.log.Info("queue started in publish-only mode")
		return nil
	}
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryLoop()
	r.log.Info("queue started", logger.Int("workers", r.config.Workers), logger.Int("jobs", len(r.jobs)))
	return nil
}

func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// Enqueue pushes a message. Publishing does not require a registered job;
// a separate worker process may own it.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	msg, err := NewMessage(uuid.NewString(), msgType, payload, time.Now())
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", msgType, err)
	}
	r.log.Debug("enqueued", logger.String("type", msgType), logger.String("id", msg.ID))
	return msg.ID, nil
}

// PublishMessage satisfies Publisher.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	_, err := r.Enqueue(ctx, msgType, payload)
	return err
}

// DeadLetters returns up to n dead messages, newest first.
func (r *RedisQueue) DeadLetters(ctx context.Context, n int64) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.deadKey(), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if json.Unmarshal([]byte(s), &m) == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	for {
		if r.ctx.Err() != nil {
			return
		}
		res, err := r.client.BRPop(r.ctx, 2*time.Second, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || r.ctx.Err() != nil {
				continue
			}
			r.log.Warn("queue pop failed", logger.Int("worker", id), logger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-r.ctx.Done():
			}
			continue
		}
		if len(res) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.log.Error("queue message undecodable", logger.Error(err))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.park(r.deadKey(), msg, 0)
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.config.JobTimeout)
	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	cancel()
	if err == nil {
		r.log.Info("job done", logger.String("job", job.Name()), logger.Duration("took", time.Since(start)))
		return
	}

	msg.LastError = err.Error()
	if !shouldRetry(msg, r.config.RetryLimit, err) {
		r.log.Error("job failed permanently",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts+1),
			logger.Error(err))
		r.park(r.deadKey(), msg, 0)
		return
	}
	msg.Attempts++
	due := time.Now().Add(r.config.RetryDelay * time.Duration(msg.Attempts))
	r.log.Warn("job failed, retry scheduled",
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", due.Format(time.RFC3339)),
		logger.Error(err))
	r.park(r.retryKey(), msg, float64(due.Unix()))
}

// park writes msg to the retry set (score > 0) or the dead-letter list.
func (r *RedisQueue) park(key string, msg Message, score float64) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("queue marshal", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if score > 0 {
		err = r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: data}).Err()
	} else {
		err = r.client.LPush(ctx, key, data).Err()
	}
	if err != nil {
		r.log.Error("queue park failed", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-t.C:
			r.requeueDue()
		}
	}
}

func (r *RedisQueue) requeueDue() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if r.ctx.Err() == nil {
			r.log.Warn("queue retry scan failed", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		// ZRem wins the race between replicas; only the remover requeues.
		removed, err := r.client.ZRem(r.ctx, r.retryKey(), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := r.client.LPush(r.ctx, r.queueKey(), member).Err(); err != nil {
			r.log.Error("queue requeue failed", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadKey() string  { return r.keyPrefix + ":dlq" }
