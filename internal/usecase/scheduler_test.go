package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCycles struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCycles) RunCycle(context.Context) (*models.CycleReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &models.CycleReport{Regime: models.RegimeBull}, nil
}

type countingScanner struct{ calls, discoveries int }

func (c *countingScanner) Scan(context.Context) (*models.ScanReport, error) {
	c.calls++
	return &models.ScanReport{}, nil
}

func (c *countingScanner) Discover(context.Context) (*models.DiscoveryReport, error) {
	c.discoveries++
	return &models.DiscoveryReport{}, nil
}

type recordingQueue struct {
	jobs []string
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, jobType string, _ interface{}) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, jobType)
	return "job-1", nil
}

func stockholm(t *testing.T, s string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	at, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	require.NoError(t, err)
	return at
}

func newTestScheduler(t *testing.T, cycles CycleRunner, scanner UniverseScanner, p *Portfolio, n *fakeNotifier) *Scheduler {
	t.Helper()
	cfg, err := NewSchedulerConfig(2*time.Minute, "17:45", "18:00")
	require.NoError(t, err)
	var notifier domrepo.Notifier
	if n != nil {
		notifier = n
	}
	return NewScheduler(cfg, testHours(t), cycles, scanner, p, notifier, nil)
}

func TestNewSchedulerConfig(t *testing.T) {
	cfg, err := NewSchedulerConfig(0, "17:45", "18:00")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.EvalInterval)
	assert.Equal(t, 17*time.Hour+45*time.Minute, cfg.DailyScanAt)
	assert.Equal(t, 18*time.Hour, cfg.WeeklyReportAt)
	assert.Equal(t, time.Friday, cfg.ReportDay)

	_, err = NewSchedulerConfig(time.Minute, "25:00", "18:00")
	assert.Error(t, err)

	assert.Equal(t, 8*time.Hour+45*time.Minute, cfg.MorningAt)
	assert.Equal(t, 8*time.Hour+55*time.Minute, cfg.DiscoveryAt)
	assert.Equal(t, 17*time.Hour+35*time.Minute, cfg.EveningAt)
	moved, err := cfg.WithDailyTimes("08:30", "", "17:40")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+30*time.Minute, moved.MorningAt)
	assert.Equal(t, cfg.DiscoveryAt, moved.DiscoveryAt)
	assert.Equal(t, 17*time.Hour+40*time.Minute, moved.EveningAt)
	_, err = cfg.WithDailyTimes("", "9:61", "")
	assert.Error(t, err)
}

func TestSchedulerEvaluatesOnlyWhileOpen(t *testing.T) {
	ctx := context.Background()
	cycles := &countingCycles{}
	s := newTestScheduler(t, cycles, nil, nil, nil)

	s.evaluate(ctx, stockholm(t, "2024-03-06 08:59")) // Wednesday, pre-open
	s.evaluate(ctx, stockholm(t, "2024-03-06 17:31"))
	s.evaluate(ctx, stockholm(t, "2024-03-09 11:00")) // Saturday
	assert.Zero(t, cycles.calls)

	s.evaluate(ctx, stockholm(t, "2024-03-06 09:00"))
	s.evaluate(ctx, stockholm(t, "2024-03-06 17:30"))
	assert.Equal(t, 2, cycles.calls)

	cycles.err = models.ErrBusy
	s.evaluate(ctx, stockholm(t, "2024-03-06 12:00"))
	assert.Equal(t, 3, cycles.calls)
}

func TestSchedulerScanPrefersQueue(t *testing.T) {
	ctx := context.Background()
	scanner := &countingScanner{}
	s := newTestScheduler(t, &countingCycles{}, scanner, nil, nil)

	s.scan(ctx, time.Now())
	assert.Equal(t, 1, scanner.calls)

	q := &recordingQueue{}
	s.SetQueue(q)
	s.scan(ctx, time.Now())
	assert.Equal(t, []string{JobScanUniverse}, q.jobs)
	assert.Equal(t, 1, scanner.calls)

	q.err = errors.New("redis down")
	s.scan(ctx, time.Now())
	assert.Len(t, q.jobs, 1)
}

func TestSchedulerWeeklyReport(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	n := &fakeNotifier{}
	p := NewPortfolio(store, nil, testHours(t), nil)
	s := newTestScheduler(t, &countingCycles{}, nil, p, n)

	s.report(ctx, time.Now())
	require.Len(t, n.sent, 1)
	assert.Equal(t, "Veckorapport", n.sent[0].Title)
	assert.Contains(t, n.sent[0].Message, "Totalt 10000 kr")
}

func TestSchedulerDailySummaries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	n := &fakeNotifier{}
	hours := testHours(t)
	p := NewPortfolio(store, nil, hours, nil)
	s := newTestScheduler(t, &countingCycles{}, nil, p, n)

	s.morning(ctx, time.Now())
	assert.Empty(t, n.sent, "no briefing configured")

	s.SetBriefing(NewBriefing(store, p, nil, hours, nil))
	s.morning(ctx, time.Now())
	s.evening(ctx, time.Now())
	require.Len(t, n.sent, 2)
	assert.Equal(t, "Morgonsummering", n.sent[0].Title)
	assert.Contains(t, n.sent[0].Message, "Portfölj: 10000 kr")
	assert.Equal(t, "Kvallssummering", n.sent[1].Title)
	assert.Contains(t, n.sent[1].Message, "Signaler idag: 0")
}

func TestSchedulerDiscoversOnlyWithFreeSlots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	scanner := &countingScanner{}
	p := NewPortfolio(store, nil, testHours(t), nil)
	s := newTestScheduler(t, &countingCycles{}, scanner, p, nil)

	s.discover(ctx, time.Now())
	assert.Equal(t, 1, scanner.discoveries)

	st := models.DefaultSettings()
	st.MaxPositions = 1
	require.NoError(t, store.SaveSettings(ctx, st))
	require.NoError(t, store.OpenPosition(ctx, models.Position{ID: "p", Ticker: "EVO", EntryPrice: 100, Quantity: 1}))
	s.discover(ctx, time.Now())
	assert.Equal(t, 1, scanner.discoveries)
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestScheduler(t, &countingCycles{}, nil, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Stop(ctx))
}
