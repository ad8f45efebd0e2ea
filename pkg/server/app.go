package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"Aktiemotor/internal/handler/ws"
	"Aktiemotor/internal/middleware"
	"Aktiemotor/internal/usecase"
	"Aktiemotor/pkg/config"
	xhttp "Aktiemotor/pkg/http"
	pkgkafka "Aktiemotor/pkg/kafka"
	applogger "Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/queue"
)

// Components are the long-running parts the App starts and stops. Nil
// entries are optional and skipped.
type Components struct {
	HTTP       *xhttp.Server
	Scheduler  *usecase.Scheduler
	Pipeline   *middleware.RecommendationPipeline
	Strategies *usecase.Strategies
	Queue      *queue.RedisQueue
	Consumer   *pkgkafka.Consumer
	Audit      pkgkafka.MessageHandler
	Hub        *ws.Hub
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg  *config.Config
	root *applogger.Logger
	log  *applogger.Logger
	c    Components

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, root: l, log: l.With("app"), c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start brings every component up and returns once they are running.
func (a *App) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	a.cancel = cancel

	if s := a.c.Strategies; s != nil {
		if err := s.Load(ctx); err != nil {
			a.log.Warn("strategies not loaded, using stored watchlist", applogger.Error(err))
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := s.Watch(ctx); err != nil {
				a.log.Warn("strategies watch stopped", applogger.Error(err))
			}
		}()
	}

	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			return fmt.Errorf("queue: %w", err)
		}
		a.log.Info("job queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.c.Consumer != nil && a.c.Audit != nil {
		a.c.Consumer.RegisterHandler(a.c.Audit)
		if err := a.c.Consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.c.Audit.Topic()))
	}

	if a.c.Pipeline != nil {
		a.c.Pipeline.Start(ctx)
	}

	if a.c.Scheduler != nil {
		if err := a.c.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}
	return nil
}

// Shutdown stops intake first, then background work. Infrastructure clients
// are released by the injector's cleanup once Shutdown returns.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down")
	var errs []error
	record := func(name string, err error) {
		if err != nil {
			a.log.Warn(name+" stop error", applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if a.c.HTTP != nil {
		record("http", a.c.HTTP.Stop(ctx))
	}
	if a.c.Hub != nil {
		record("websocket", a.c.Hub.Close(ctx))
	}
	if a.c.Scheduler != nil {
		record("scheduler", a.c.Scheduler.Stop(ctx))
	}
	if a.c.Queue != nil {
		record("queue", a.c.Queue.Stop(ctx))
	}
	if a.c.Consumer != nil {
		record("kafka consumer", a.c.Consumer.Stop(ctx))
	}
	if a.c.Pipeline != nil {
		record("pipeline", a.c.Pipeline.Stop(ctx))
	}

	if a.cancel != nil {
		a.cancel()
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		record("background", ctx.Err())
	}

	a.log.Info("shutdown complete", applogger.Int("errors", len(errs)))
	a.root.RemoveCollector()
	return errors.Join(errs...)
}
