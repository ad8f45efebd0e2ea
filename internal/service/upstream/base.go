package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "Aktiemotor/pkg/http"
	"Aktiemotor/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Base is the shared transport for third-party HTTP APIs: a rate limiter,
// a circuit breaker and a bounded retry around pkg/http.Client.
type Base struct {
	name     string
	client   *xhttp.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	attempts int
	backoff  time.Duration
	log      *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Base)

func WithClient(c *xhttp.Client) Option {
	return func(b *Base) { b.client = c }
}

// WithRate limits outgoing calls to perSec with burst. Zero disables limiting.
func WithRate(perSec float64, burst int) Option {
	return func(b *Base) {
		if perSec <= 0 {
			b.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithRetry sets the total attempts and the linear backoff step.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(b *Base) {
		if attempts > 0 {
			b.attempts = attempts
		}
		b.backoff = backoff
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.log = l
		}
	}
}

func New(name string, opts ...Option) *Base {
	b := &Base{
		name:     name,
		attempts: 3,
		backoff:  2 * time.Second,
		log:      logger.Nop(),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
	}
	b.log = b.log.With("upstream." + name)
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Minute,
		Timeout:  time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn("circuit state changed", logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})
	return b
}

func (b *Base) Name() string { return b.name }

// Do performs req and decodes the answer into dest (see xhttp.Client.SendAndParse).
// Transient failures (transport errors, 429, 5xx) are retried; an open
// circuit fails fast.
func (b *Base) Do(ctx context.Context, req *xhttp.RequestOptions, dest interface{}) error {
	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if b.limiter != nil {
			if werr := b.limiter.Wait(ctx); werr != nil {
				return fmt.Errorf("%s: rate limit wait: %w", b.name, werr)
			}
		}
		_, err = b.breaker.Execute(func() (interface{}, error) {
			return nil, b.client.SendAndParse(ctx, req, dest)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if !retryable(err) || ctx.Err() != nil || attempt == b.attempts {
			break
		}
		b.log.Debug("retrying request",
			logger.String("url", req.URL),
			logger.Int("attempt", attempt),
			logger.Error(err))
		if serr := b.sleep(ctx, time.Duration(attempt)*b.backoff); serr != nil {
			return fmt.Errorf("%s: %w", b.name, serr)
		}
	}
	return fmt.Errorf("%s: %w", b.name, err)
}

// GetJSON is Do for a plain GET with query parameters.
func (b *Base) GetJSON(ctx context.Context, url string, query map[string][]string, dest interface{}) error {
	return b.Do(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: url, QueryParams: query}, dest)
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
