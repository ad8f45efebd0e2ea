package usecase

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
	"Aktiemotor/pkg/util"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleReport, error)
}

type UniverseScanner interface {
	Scan(ctx context.Context) (*models.ScanReport, error)
	Discover(ctx context.Context) (*models.DiscoveryReport, error)
}

// DailyBriefer builds the summary pushes.
type DailyBriefer interface {
	Morning(ctx context.Context) (*models.DailyBriefing, error)
	Evening(ctx context.Context) (*models.DailyBriefing, error)
}

// Enqueuer hands work to the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)
}

type SchedulerConfig struct {
	EvalInterval   time.Duration
	DailyScanAt    time.Duration // offset from local midnight
	WeeklyReportAt time.Duration
	ReportDay      time.Weekday
	MorningAt      time.Duration
	DiscoveryAt    time.Duration
	EveningAt      time.Duration
}

// NewSchedulerConfig parses the "HH:MM" clock times. The morning summary,
// discovery and evening summary default to 08:45, 08:55 and 17:35.
func NewSchedulerConfig(interval time.Duration, scanAt, reportAt string) (SchedulerConfig, error) {
	scan, err := util.ClockOffset(scanAt)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("daily scan: %w", err)
	}
	report, err := util.ClockOffset(reportAt)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("weekly report: %w", err)
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return SchedulerConfig{
		EvalInterval:   interval,
		DailyScanAt:    scan,
		WeeklyReportAt: report,
		ReportDay:      time.Friday,
		MorningAt:      8*time.Hour + 45*time.Minute,
		DiscoveryAt:    8*time.Hour + 55*time.Minute,
		EveningAt:      17*time.Hour + 35*time.Minute,
	}, nil
}

// WithDailyTimes overrides the morning summary, discovery and evening
// summary times. Empty strings keep the current value.
func (c SchedulerConfig) WithDailyTimes(morningAt, discoveryAt, eveningAt string) (SchedulerConfig, error) {
	for _, f := range []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"morning summary", morningAt, &c.MorningAt},
		{"discovery", discoveryAt, &c.DiscoveryAt},
		{"evening summary", eveningAt, &c.EveningAt},
	} {
		if f.in == "" {
			continue
		}
		d, err := util.ClockOffset(f.in)
		if err != nil {
			return c, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = d
	}
	return c, nil
}

// Scheduler drives the engine on the exchange clock: the morning summary and
// discovery before the open, a cycle every interval while the market is
// open, the evening summary and universe scan after the close and the weekly
// report on Fridays.
type Scheduler struct {
	cfg       SchedulerConfig
	hours     util.TradingHours
	cycles    CycleRunner
	scanner   UniverseScanner
	jobs      Enqueuer
	portfolio *Portfolio
	briefing  DailyBriefer
	notifier  domrepo.Notifier
	now       func() time.Time
	log       *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig, hours util.TradingHours, cycles CycleRunner, scanner UniverseScanner, portfolio *Portfolio, notifier domrepo.Notifier, l *logger.Logger) *Scheduler {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Scheduler{
		cfg:       cfg,
		hours:     hours,
		cycles:    cycles,
		scanner:   scanner,
		portfolio: portfolio,
		notifier:  notifier,
		now:       time.Now,
		log:       l.With("scheduler"),
	}
}

// SetQueue routes the daily scan through the job queue instead of running
// it in the scheduler goroutine.
func (s *Scheduler) SetQueue(q Enqueuer) { s.jobs = q }

// SetBriefing enables the morning and evening summaries.
func (s *Scheduler) SetBriefing(b DailyBriefer) { s.briefing = b }

// Start launches the loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	daily := func(offset time.Duration) func(time.Time) time.Time {
		return func(t time.Time) time.Time { return s.hours.NextDaily(t, offset) }
	}
	s.wg.Add(6)
	go s.loop(ctx, "evaluation", func(t time.Time) time.Time { return t.Add(s.cfg.EvalInterval) }, s.evaluate)
	go s.loop(ctx, "scan", daily(s.cfg.DailyScanAt), s.scan)
	go s.loop(ctx, "morning", daily(s.cfg.MorningAt), s.morning)
	go s.loop(ctx, "discovery", daily(s.cfg.DiscoveryAt), s.discover)
	go s.loop(ctx, "evening", daily(s.cfg.EveningAt), s.evening)
	go s.loop(ctx, "report", func(t time.Time) time.Time {
		return s.hours.NextWeekly(t, s.cfg.ReportDay, s.cfg.WeeklyReportAt)
	}, s.report)

	s.log.Info("scheduler started",
		logger.Duration("interval", s.cfg.EvalInterval),
		logger.String("next_open", s.hours.NextOpen(s.now()).Format(time.RFC3339)))
	return nil
}

// Stop cancels the loops and waits for a running task to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, name string, next func(time.Time) time.Time, task func(context.Context, time.Time)) {
	defer s.wg.Done()
	for {
		at := next(s.now())
		wait := time.Until(at)
		if wait < 0 {
			wait = 0
		}
		s.log.Debug("next run", logger.String("task", name), logger.String("at", at.Format(time.RFC3339)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		task(ctx, s.now())
	}
}

// evaluate runs one cycle when the market is open at t.
func (s *Scheduler) evaluate(ctx context.Context, t time.Time) {
	if !s.hours.IsOpen(t) {
		return
	}
	report, err := s.cycles.RunCycle(ctx)
	switch {
	case errors.Is(err, models.ErrBusy):
		s.log.Debug("cycle skipped, previous still running")
	case err != nil:
		s.log.Error("cycle failed", logger.Error(err))
	default:
		s.log.Debug("cycle done",
			logger.String("regime", string(report.Regime)),
			logger.Int("emitted", report.Emitted),
			logger.Duration("took", report.Duration))
	}
}

func (s *Scheduler) scan(ctx context.Context, _ time.Time) {
	if s.jobs != nil {
		id, err := s.jobs.Enqueue(ctx, JobScanUniverse, struct{}{})
		if err != nil {
			s.log.Error("scan not enqueued", logger.Error(err))
			return
		}
		s.log.Info("scan enqueued", logger.String("job", id))
		return
	}
	if s.scanner == nil {
		return
	}
	if _, err := s.scanner.Scan(ctx); err != nil && !errors.Is(err, models.ErrBusy) {
		s.log.Error("scan failed", logger.Error(err))
	}
}

func (s *Scheduler) report(ctx context.Context, _ time.Time) {
	if s.portfolio == nil {
		return
	}
	summary, err := s.portfolio.Summary(ctx)
	if err != nil {
		s.log.Error("weekly report failed", logger.Error(err))
		return
	}
	if err := s.notifier.Notify(ctx, notify.ForWeekly(summary)); err != nil {
		s.log.Warn("weekly report not pushed", logger.Error(err))
	}
}

func (s *Scheduler) morning(ctx context.Context, _ time.Time) {
	if s.briefing == nil {
		return
	}
	d, err := s.briefing.Morning(ctx)
	if err != nil {
		s.log.Error("morning summary failed", logger.Error(err))
		return
	}
	if err := s.notifier.Notify(ctx, notify.ForMorning(d)); err != nil {
		s.log.Warn("morning summary not pushed", logger.Error(err))
	}
}

func (s *Scheduler) evening(ctx context.Context, _ time.Time) {
	if s.briefing == nil {
		return
	}
	d, err := s.briefing.Evening(ctx)
	if err != nil {
		s.log.Error("evening summary failed", logger.Error(err))
		return
	}
	if err := s.notifier.Notify(ctx, notify.ForEvening(d)); err != nil {
		s.log.Warn("evening summary not pushed", logger.Error(err))
	}
}

// discover rebuilds the watchlist only while a position slot is free.
func (s *Scheduler) discover(ctx context.Context, _ time.Time) {
	if s.scanner == nil || s.portfolio == nil {
		return
	}
	st, err := s.portfolio.Settings(ctx)
	if err != nil {
		s.log.Error("discovery skipped, settings unavailable", logger.Error(err))
		return
	}
	positions, err := s.portfolio.Positions(ctx)
	if err != nil {
		s.log.Error("discovery skipped, positions unavailable", logger.Error(err))
		return
	}
	if len(positions) >= st.MaxPositions {
		s.log.Info("discovery skipped, all slots taken", logger.Int("positions", len(positions)))
		return
	}
	if _, err := s.scanner.Discover(ctx); err != nil && !errors.Is(err, models.ErrBusy) {
		s.log.Error("discovery failed", logger.Error(err))
	}
}
