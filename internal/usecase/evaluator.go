package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	domsvc "Aktiemotor/internal/domain/service"
	"Aktiemotor/internal/service/insider"
	"Aktiemotor/internal/service/notify"
	"Aktiemotor/internal/services/analytics"
	"Aktiemotor/internal/services/features"
	"Aktiemotor/pkg/logger"
	"Aktiemotor/pkg/util"

	"github.com/google/uuid"
)

const (
	counterSignals   = "signals_emitted"
	counterConfirmed = "trades_confirmed"
	counterScans     = "scans"

	cycleLock = "cycle"
)

// EvaluatorConfig holds the cycle constants.
type EvaluatorConfig struct {
	Index              string
	Range              domrepo.Range
	RSWindow           int
	TurnoverWindow     int
	StopCooldown       time.Duration
	RoutineCooldown    time.Duration
	EarningsWindow     time.Duration
	InsiderLookback    time.Duration
	MinInsiderNotional float64
	NewsItems          int
	SentimentItems     int
	LockTTL            time.Duration
}

// DefaultEvaluatorConfig mirrors the config file defaults.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Index:              "^OMX",
		Range:              domrepo.DefaultRange(),
		RSWindow:           features.DefaultRSWindow,
		TurnoverWindow:     20,
		StopCooldown:       24 * time.Hour,
		RoutineCooldown:    2 * time.Hour,
		EarningsWindow:     48 * time.Hour,
		InsiderLookback:    30 * 24 * time.Hour,
		MinInsiderNotional: 500_000,
		NewsItems:          5,
		SentimentItems:     2,
		LockTTL:            10 * time.Minute,
	}
}

type EvaluatorOption func(*Evaluator)

func WithEarnings(c domrepo.EarningsCalendar) EvaluatorOption {
	return func(e *Evaluator) { e.earnings = c }
}

func WithInsider(r domrepo.InsiderRegister) EvaluatorOption {
	return func(e *Evaluator) { e.insider = r }
}

func WithNews(n domrepo.NewsSource) EvaluatorOption {
	return func(e *Evaluator) { e.news = n }
}

func WithSentiment(s domsvc.SentimentAnalyzer) EvaluatorOption {
	return func(e *Evaluator) { e.sentiment = s }
}

// WithNotifier enables the earnings warning push.
func WithNotifier(n domrepo.Notifier) EvaluatorOption {
	return func(e *Evaluator) { e.notifier = n }
}

func WithArchive(a domrepo.Archive) EvaluatorOption {
	return func(e *Evaluator) { e.archive = a }
}

func WithSink(s SignalSink) EvaluatorOption {
	return func(e *Evaluator) {
		if s != nil {
			e.sink = s
		}
	}
}

func WithMetrics(m domrepo.Metrics) EvaluatorOption {
	return func(e *Evaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithLogger(l *logger.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l.With("evaluator")
		}
	}
}

// WithClock replaces time.Now. Tests only.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// Evaluator runs the evaluation cycle over the watchlist and turns scores
// into pending recommendations. It never opens or closes positions.
type Evaluator struct {
	cfg        EvaluatorConfig
	store      domrepo.StateStore
	bars       domrepo.BarSource
	portfolio  *Portfolio
	strategies *Strategies
	hours      util.TradingHours

	earnings  domrepo.EarningsCalendar
	insider   domrepo.InsiderRegister
	news      domrepo.NewsSource
	sentiment domsvc.SentimentAnalyzer
	archive   domrepo.Archive
	notifier  domrepo.Notifier
	sink      SignalSink
	metrics   domrepo.Metrics

	now   func() time.Time
	newID func() string
	log   *logger.Logger
}

func NewEvaluator(cfg EvaluatorConfig, store domrepo.StateStore, bars domrepo.BarSource, portfolio *Portfolio, strategies *Strategies, hours util.TradingHours, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		cfg:        cfg,
		store:      store,
		bars:       bars,
		portfolio:  portfolio,
		strategies: strategies,
		hours:      hours,
		sink:       DiscardSink,
		metrics:    nopMetrics{},
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) thresholds() analytics.ThresholdTable {
	if e.strategies == nil {
		return analytics.DefaultThresholdTable()
	}
	return e.strategies.Thresholds()
}

// Thresholds reports the effective buy and sell thresholds the engine would
// apply under regime for a ticker with the given daily turnover.
func (e *Evaluator) Thresholds(ctx context.Context, regime models.MarketRegime, turnover float64) (*models.ThresholdQuote, error) {
	st, err := e.store.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	table := e.thresholds()
	return &models.ThresholdQuote{
		Regime:   regime,
		Turnover: turnover,
		Illiquid: table.Illiquid(turnover),
		Buy:      table.Buy(st.SignalThreshold, regime, turnover),
		Sell:     table.Sell(st.SellThreshold, regime, turnover),
	}, nil
}

// Regime classifies the benchmark index.
func (e *Evaluator) Regime(ctx context.Context) (models.RegimeState, []models.Bar, error) {
	index, err := e.bars.DailyBars(ctx, e.cfg.Index, e.cfg.Range)
	if err != nil {
		return models.RegimeState{Regime: models.RegimeNeutral}, nil, fmt.Errorf("index history: %w", err)
	}
	return analytics.ClassifyRegime(index), index, nil
}

// newContext snapshots the state shared by a cycle. An unavailable index
// degrades to NEUTRAL with no relative strength.
func (e *Evaluator) newContext(ctx context.Context) (*models.EvaluationContext, error) {
	ec := &models.EvaluationContext{
		Regime:        models.RegimeNeutral,
		OpenPositions: make(map[string]models.Position),
		PendingBuys:   make(map[string]bool),
		RotatedOut:    make(map[string]bool),
		Now:           e.now(),
	}
	state, index, err := e.Regime(ctx)
	if err != nil {
		e.log.Warn("regime unavailable, assuming NEUTRAL", logger.Error(err))
	} else {
		ec.Regime = state.Regime
		ec.IndexBars = index
	}

	if ec.Settings, err = e.store.Settings(ctx); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if ec.Cooldowns, err = e.store.Cooldowns(ctx); err != nil {
		return nil, fmt.Errorf("cooldowns: %w", err)
	}
	positions, err := e.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	for _, p := range positions {
		ec.OpenPositions[p.Ticker] = p
	}
	if e.portfolio != nil {
		if ec.Equity, err = e.portfolio.Equity(ctx); err != nil {
			return nil, err
		}
	} else {
		ec.Equity = ec.Settings.PaperBalance
	}
	return ec, nil
}

// RunCycle evaluates every watchlist ticker once. Only one cycle runs at a
// time across processes; a concurrent call gets models.ErrBusy.
func (e *Evaluator) RunCycle(ctx context.Context) (*models.CycleReport, error) {
	unlock, err := e.store.Lock(ctx, cycleLock, e.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := e.now()
	ec, err := e.newContext(ctx)
	if err != nil {
		return nil, err
	}
	watchlist, err := e.store.Watchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	e.metrics.RecordRegime(string(ec.Regime))

	report := &models.CycleReport{Regime: ec.Regime, StartedAt: start}
	for _, entry := range watchlist {
		if ctx.Err() != nil {
			break
		}
		res := e.evaluate(ctx, ec, entry, true)
		report.Results = append(report.Results, res)
		report.Emitted += len(res.Signals)
	}
	report.Duration = e.now().Sub(start)
	e.metrics.RecordCycle(report.Duration)
	e.log.Info("cycle done",
		logger.String("regime", string(ec.Regime)),
		logger.Int("tickers", len(watchlist)),
		logger.Int("emitted", report.Emitted),
		logger.Duration("took", report.Duration))
	return report, ctx.Err()
}

// EvaluateTicker runs one ticker as a cycle of its own. Tickers not on the
// watchlist use the default strategy.
func (e *Evaluator) EvaluateTicker(ctx context.Context, ticker string) (*models.EvaluationResult, error) {
	unlock, err := e.store.Lock(ctx, cycleLock, e.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.single(ctx, ticker, true)
}

// DryRun scores a ticker without writing anything or notifying anyone.
// Cooldowns are ignored so the current scores are always visible.
func (e *Evaluator) DryRun(ctx context.Context, ticker string) (*models.EvaluationResult, error) {
	return e.single(ctx, ticker, false)
}

func (e *Evaluator) single(ctx context.Context, ticker string, commit bool) (*models.EvaluationResult, error) {
	ticker = util.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker: %w", models.ErrNotFound)
	}
	ec, err := e.newContext(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := e.entry(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return e.evaluate(ctx, ec, entry, commit), nil
}

func (e *Evaluator) entry(ctx context.Context, ticker string) (models.WatchlistEntry, error) {
	list, err := e.store.Watchlist(ctx)
	if err != nil {
		return models.WatchlistEntry{}, fmt.Errorf("watchlist: %w", err)
	}
	for _, w := range list {
		if w.Ticker == ticker {
			return w, nil
		}
	}
	return models.WatchlistEntry{
		Ticker:   ticker,
		Strategy: models.StrategyTrendFollowing,
		Config:   models.DefaultStrategyConfig(),
	}, nil
}

type tickerData struct {
	bars     []models.Bar
	snap     *models.IndicatorSnapshot
	rs       *float64
	turnover float64
}

func (e *Evaluator) load(ctx context.Context, ec *models.EvaluationContext, ticker string) (*tickerData, string) {
	bars, err := e.bars.DailyBars(ctx, ticker, e.cfg.Range)
	if err != nil {
		e.log.Warn("history unavailable", logger.String("ticker", ticker), logger.Error(err))
		return nil, "history unavailable"
	}
	snap := features.ComputeSnapshot(ticker, bars)
	if snap == nil {
		e.log.Debug("too little history", logger.String("ticker", ticker), logger.Int("bars", len(bars)))
		return nil, models.ErrInsufficientData.Error()
	}
	return &tickerData{
		bars:     bars,
		snap:     snap,
		rs:       features.RelativeStrength(bars, ec.IndexBars, e.cfg.RSWindow),
		turnover: features.AverageTurnover(bars, e.cfg.TurnoverWindow),
	}, ""
}

func (e *Evaluator) evaluate(ctx context.Context, ec *models.EvaluationContext, entry models.WatchlistEntry, commit bool) *models.EvaluationResult {
	ticker := entry.Ticker
	res := &models.EvaluationResult{Ticker: ticker}
	if commit && ec.Cooldowns.Active(ticker, ec.Now) {
		res.Skipped = "cooldown"
		e.metrics.RecordEvaluation("cooldown")
		return res
	}

	d, skip := e.load(ctx, ec, ticker)
	if d == nil {
		res.Skipped = skip
		e.metrics.RecordEvaluation("skipped")
		return res
	}
	res.Snapshot = d.snap
	res.RS = d.rs
	e.metrics.RecordLastPrice(ticker, d.snap.CurrentPrice)
	if commit && e.archive != nil {
		if err := e.archive.StoreSnapshot(ctx, d.snap, ec.Regime, ec.Now); err != nil {
			e.log.Warn("snapshot not archived", logger.String("ticker", ticker), logger.Error(err))
		}
	}

	sc, ev := e.signalContext(ctx, ec, entry, d.rs)
	table := e.thresholds()
	if commit {
		e.saveNews(ctx, ev.news)
		if sc.EarningsSoon && ev.earningsAt != nil {
			_, held := ec.Position(ticker)
			e.warnEarnings(ctx, ec, entry, *ev.earningsAt, held)
		}
	}

	if pos, ok := ec.Position(ticker); ok {
		e.evaluateHolding(ctx, ec, entry, pos, d, sc, table, res, commit)
	} else {
		e.evaluateCandidate(ctx, ec, entry, d, sc, table, res, commit)
	}
	if len(res.Signals) > 0 {
		e.metrics.RecordEvaluation("signal")
	} else {
		e.metrics.RecordEvaluation("scored")
	}
	return res
}

// evidence is what signalContext looked at beyond the scoring inputs.
type evidence struct {
	news       []models.NewsRecord
	earningsAt *time.Time
}

// signalContext gathers the optional inputs. Each collaborator is optional
// and a failure only drops its contribution. The newest headline drives the
// sentiment input; up to SentimentItems headlines are analysed and returned.
func (e *Evaluator) signalContext(ctx context.Context, ec *models.EvaluationContext, entry models.WatchlistEntry, rs *float64) (analytics.SignalContext, evidence) {
	sc := analytics.SignalContext{Regime: ec.Regime, RelativeStrength: rs}
	var ev evidence
	name := entry.Name()

	if e.news != nil && e.sentiment != nil {
		items, err := e.news.Headlines(ctx, name, e.cfg.NewsItems)
		if err != nil {
			e.log.Debug("news unavailable", logger.String("ticker", entry.Ticker), logger.Error(err))
		}
		analysed := e.cfg.SentimentItems
		if analysed < 1 {
			analysed = 1
		}
		for i, item := range items {
			if i >= analysed {
				break
			}
			res := e.sentiment.Analyze(ctx, entry.Ticker, item.Title)
			if i == 0 {
				sc.Sentiment = res
			}
			if res != nil {
				ev.news = append(ev.news, newsRecord(entry.Ticker, item, res))
			}
		}
	}

	if e.insider != nil {
		trades, err := e.insider.InsiderTrades(ctx, name, ec.Now.Add(-e.cfg.InsiderLookback))
		if err != nil {
			e.log.Debug("insider register unavailable", logger.String("ticker", entry.Ticker), logger.Error(err))
		} else if buy := insider.SignificantBuy(trades, e.cfg.MinInsiderNotional); buy != nil {
			sc.InsiderBuy = true
			e.log.Debug("insider buy", logger.String("ticker", entry.Ticker), logger.String("person", buy.Person), logger.Float("notional", buy.Notional()))
		}
	}

	if e.earnings != nil {
		at, err := e.earnings.NextEarnings(ctx, entry.Ticker)
		if err != nil {
			e.log.Debug("earnings date unavailable", logger.String("ticker", entry.Ticker), logger.Error(err))
		} else if at != nil {
			days := int(e.cfg.EarningsWindow / (24 * time.Hour))
			sc.EarningsSoon = util.WithinDays(e.hours.At(ec.Now, 0), *at, days)
			if sc.EarningsSoon {
				ev.earningsAt = at
				e.log.Debug("earnings due", logger.String("ticker", entry.Ticker), logger.Any("at", *at))
			}
		}
	}
	return sc, ev
}

func newsRecord(ticker string, item models.NewsItem, res *models.SentimentResult) models.NewsRecord {
	n := models.NewsRecord{
		Ticker:         ticker,
		Headline:       item.Title,
		URL:            item.Link,
		Sentiment:      res.Sentiment,
		SentimentScore: res.Score,
		Reason:         res.Reason,
		Source:         item.Source,
	}
	if !item.Published.IsZero() {
		published := item.Published.UTC()
		n.PublishedAt = &published
	}
	return n
}

func (e *Evaluator) saveNews(ctx context.Context, news []models.NewsRecord) {
	for _, n := range news {
		if err := e.store.SaveNews(ctx, n); err != nil {
			e.log.Warn("news not saved", logger.String("ticker", n.Ticker), logger.Error(err))
		}
	}
}

// warnEarnings pushes the report warning once per ticker and trading day.
func (e *Evaluator) warnEarnings(ctx context.Context, ec *models.EvaluationContext, entry models.WatchlistEntry, at time.Time, held bool) {
	if e.notifier == nil {
		return
	}
	first, err := e.store.MarkOnce(ctx, e.hours.DayKey(ec.Now), "earnings:"+entry.Ticker)
	if err != nil {
		e.log.Warn("earnings warning not marked", logger.String("ticker", entry.Ticker), logger.Error(err))
		return
	}
	if !first {
		return
	}
	if err := e.notifier.Notify(ctx, notify.ForEarningsWarning(entry.Ticker, entry.Company, at, held)); err != nil {
		e.log.Warn("earnings warning not pushed", logger.String("ticker", entry.Ticker), logger.Error(err))
	}
}

func (e *Evaluator) evaluateHolding(ctx context.Context, ec *models.EvaluationContext, entry models.WatchlistEntry, pos models.Position, d *tickerData, sc analytics.SignalContext, table analytics.ThresholdTable, res *models.EvaluationResult, commit bool) {
	price := d.snap.CurrentPrice
	threshold := table.Sell(ec.Settings.SellThreshold, ec.Regime, d.turnover)
	res.Threshold = threshold

	if hit, label := pos.StopTakeHit(price); hit {
		reason := fmt.Sprintf("Stop-loss hit: %.2f <= %.2f", price, pos.StopLoss)
		if label == "take_profit" {
			reason = fmt.Sprintf("Take-profit hit: %.2f >= %.2f", price, pos.TakeProfit)
		}
		score := 100
		res.SellScore = &score
		res.Reasons = []string{reason}
		rec := e.sellRecommendation(pos, d.snap, models.KindStopTake, score, threshold, res.Reasons)
		e.emit(ctx, ec, rec, e.cfg.StopCooldown, res, commit)
		return
	}

	score, reasons := analytics.ScoreSell(d.snap, pos, sc, entry.Config)
	res.SellScore = &score
	res.Reasons = reasons
	e.metrics.RecordScore(entry.Ticker, string(models.SideSell), score)
	if score < threshold {
		return
	}
	rec := e.sellRecommendation(pos, d.snap, models.KindRoutine, score, threshold, reasons)
	e.emit(ctx, ec, rec, e.cfg.RoutineCooldown, res, commit)
}

func (e *Evaluator) evaluateCandidate(ctx context.Context, ec *models.EvaluationContext, entry models.WatchlistEntry, d *tickerData, sc analytics.SignalContext, table analytics.ThresholdTable, res *models.EvaluationResult, commit bool) {
	threshold := table.Buy(ec.Settings.SignalThreshold, ec.Regime, d.turnover)
	res.Threshold = threshold
	score, reasons := analytics.ScoreBuy(d.snap, sc)
	res.BuyScore = &score
	res.Reasons = reasons
	e.metrics.RecordScore(entry.Ticker, string(models.SideBuy), score)
	if score < threshold {
		return
	}

	buy := e.buyRecommendation(ec, entry, d.snap, models.KindRoutine, score, threshold, reasons)
	if buy == nil {
		res.Skipped = "position size below one share"
		return
	}
	if !ec.SlotsFullFor(entry.Ticker) {
		e.emit(ctx, ec, buy, e.cfg.RoutineCooldown, res, commit)
		ec.PendingBuys[entry.Ticker] = true
		return
	}

	decision := e.decideRotation(ctx, ec, d.snap, sc)
	res.Reasons = append(res.Reasons, "Slots full: "+decision.Reason)
	if !decision.Rotate {
		return
	}
	weak := ec.OpenPositions[decision.Weakest]
	weakData, _ := e.load(ctx, ec, weak.Ticker)
	if weakData == nil {
		return
	}
	why := fmt.Sprintf("Rotation: %s opportunity %.0f vs %s %.0f", entry.Ticker, decision.CandidateScore, weak.Ticker, decision.WeakestScore)
	weakScore := int(math.Round(decision.WeakestScore))
	sell := e.sellRecommendation(weak, weakData.snap, models.KindRotation, weakScore, 0, []string{why})
	sell.RotationOf = entry.Ticker
	buy.Kind = models.KindRotation
	buy.RotationOf = weak.Ticker
	buy.Reasons = append(buy.Reasons, why)

	ec.RotatedOut[weak.Ticker] = true
	e.emit(ctx, ec, sell, e.cfg.RoutineCooldown, res, commit)
	e.emit(ctx, ec, buy, e.cfg.RoutineCooldown, res, commit)
	ec.PendingBuys[entry.Ticker] = true
}

// decideRotation scores every holding not already rotated out this cycle
// from its own fresh snapshot and the same inputs the candidate gets.
func (e *Evaluator) decideRotation(ctx context.Context, ec *models.EvaluationContext, snap *models.IndicatorSnapshot, sc analytics.SignalContext) analytics.RotationDecision {
	candidate := analytics.OpportunityScore(snap, sc)
	holdings := make([]analytics.HoldingScore, 0, len(ec.OpenPositions))
	for ticker := range ec.OpenPositions {
		if ec.RotatedOut[ticker] {
			continue
		}
		h := analytics.HoldingScore{Ticker: ticker}
		if d, _ := e.load(ctx, ec, ticker); d != nil {
			entry, err := e.entry(ctx, ticker)
			if err != nil {
				entry = models.WatchlistEntry{Ticker: ticker}
			}
			hsc, _ := e.signalContext(ctx, ec, entry, d.rs)
			v := analytics.OpportunityScore(d.snap, hsc)
			h.Score = &v
		}
		holdings = append(holdings, h)
	}
	margin := ec.Settings.RotationMargin
	if margin < 0 {
		margin = analytics.DefaultRotationMargin
	}
	return analytics.DecideRotation(candidate, holdings, margin)
}

func (e *Evaluator) buyRecommendation(ec *models.EvaluationContext, entry models.WatchlistEntry, snap *models.IndicatorSnapshot, kind models.SignalKind, score, threshold int, reasons []string) *models.Recommendation {
	confidence := models.ConfidenceFromScore(score)
	value := analytics.PositionSize(confidence, snap.ATRPct(), analytics.SizingParams{
		Equity:          ec.Equity,
		CashBuffer:      ec.Settings.CashBuffer,
		MaxPositions:    ec.Settings.MaxPositions,
		MaxPositionSize: ec.Settings.MaxPositionSize,
	})
	qty := analytics.Quantity(value, snap.CurrentPrice)
	if qty < 1 {
		e.log.Info("buy skipped, position too small",
			logger.String("ticker", entry.Ticker),
			logger.Float("value", value),
			logger.Float("price", snap.CurrentPrice))
		return nil
	}
	stop, take := analytics.StopTake(snap.CurrentPrice, snap.ATR, entry.Config)
	return &models.Recommendation{
		Ticker:     entry.Ticker,
		Side:       models.SideBuy,
		Kind:       kind,
		Score:      score,
		Threshold:  threshold,
		Confidence: confidence,
		Reasons:    append([]string(nil), reasons...),
		Price:      snap.CurrentPrice,
		Quantity:   qty,
		Value:      roundMoney(snap.CurrentPrice * float64(qty)),
		StopLoss:   stop,
		TakeProfit: take,
		Snapshot:   snap,
	}
}

func (e *Evaluator) sellRecommendation(pos models.Position, snap *models.IndicatorSnapshot, kind models.SignalKind, score, threshold int, reasons []string) *models.Recommendation {
	return &models.Recommendation{
		Ticker:     pos.Ticker,
		Side:       models.SideSell,
		Kind:       kind,
		Score:      score,
		Threshold:  threshold,
		Confidence: models.ConfidenceFromScore(score),
		Reasons:    append([]string(nil), reasons...),
		Price:      snap.CurrentPrice,
		Quantity:   pos.Quantity,
		Value:      roundMoney(snap.CurrentPrice * float64(pos.Quantity)),
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Snapshot:   snap,
	}
}

// emit stamps rec, supersedes the previous pending one for the same ticker
// and side, stores it and hands it to the sink. Without commit it is only
// attached to the result.
func (e *Evaluator) emit(ctx context.Context, ec *models.EvaluationContext, rec *models.Recommendation, cooldown time.Duration, res *models.EvaluationResult, commit bool) {
	rec.ID = e.newID()
	rec.Status = models.StatusPending
	rec.Regime = ec.Regime
	rec.CreatedAt = ec.Now.UTC()
	res.Signals = append(res.Signals, rec)
	if !commit {
		return
	}

	if old, err := e.store.PendingSignal(ctx, rec.Ticker, rec.Side); err == nil {
		decided := ec.Now.UTC()
		old.Status = models.StatusSuperseded
		old.DecidedAt = &decided
		if err := e.store.SaveSignal(ctx, old); err != nil {
			e.log.Warn("supersede failed", logger.String("id", old.ID), logger.Error(err))
		} else if err := e.sink.Update(ctx, old); err != nil {
			e.log.Warn("supersede not delivered", logger.String("id", old.ID), logger.Error(err))
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		e.log.Warn("pending lookup failed", logger.String("ticker", rec.Ticker), logger.Error(err))
	}

	if e.sentiment != nil {
		rec.Description = e.sentiment.Describe(ctx, rec)
	}
	if err := e.store.SaveSignal(ctx, rec); err != nil {
		e.log.Error("signal not saved", logger.String("ticker", rec.Ticker), logger.Error(err))
		e.metrics.RecordError("signal_save")
		return
	}
	if err := e.sink.Emit(ctx, rec); err != nil {
		e.log.Warn("signal not delivered", logger.String("id", rec.ID), logger.Error(err))
	}

	until := ec.Now.Add(cooldown)
	if ec.Cooldowns == nil {
		ec.Cooldowns = models.Cooldowns{}
	}
	ec.Cooldowns[rec.Ticker] = until
	if err := e.store.SetCooldown(ctx, rec.Ticker, until); err != nil {
		e.log.Warn("cooldown not stored", logger.String("ticker", rec.Ticker), logger.Error(err))
	}
	if _, err := e.store.IncrCounter(ctx, e.hours.DayKey(ec.Now), counterSignals); err != nil {
		e.log.Warn("counter not updated", logger.Error(err))
	}
	e.metrics.RecordSignal(string(rec.Side), string(rec.Kind))
	e.log.Info("recommendation emitted",
		logger.String("id", rec.ID),
		logger.String("ticker", rec.Ticker),
		logger.String("side", string(rec.Side)),
		logger.String("kind", string(rec.Kind)),
		logger.Int("score", rec.Score),
		logger.Int("threshold", rec.Threshold))
}
