package api

import (
	"context"
	"net/http"
	"time"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/service/ratelimit"
	"Aktiemotor/internal/usecase"
	xhttp "Aktiemotor/pkg/http"
	xlogger "Aktiemotor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HealthCheck pings one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

type RegimeResponse struct {
	models.RegimeState
	Degraded bool `json:"degraded,omitempty"`
}

type JobResponse struct {
	JobID string `json:"job_id,omitempty"`
	Type  string `json:"type"`
}

// ControlHandler runs the engine on demand and exposes its inputs.
type ControlHandler struct {
	logger    *xlogger.Logger
	evaluator *usecase.Evaluator
	scanner   *usecase.Scanner
	portfolio *usecase.Portfolio
	jobs      usecase.Enqueuer
	limiter   *ratelimit.Limiter
	checks    []HealthCheck
}

func NewControlHandler(logger *xlogger.Logger, evaluator *usecase.Evaluator, scanner *usecase.Scanner, portfolio *usecase.Portfolio) *ControlHandler {
	return &ControlHandler{logger: logger, evaluator: evaluator, scanner: scanner, portfolio: portfolio}
}

// SetQueue makes POST /scan enqueue instead of scanning in the request.
func (h *ControlHandler) SetQueue(q usecase.Enqueuer) { h.jobs = q }

// SetRateLimit throttles manual runs and scans per client address.
func (h *ControlHandler) SetRateLimit(l *ratelimit.Limiter) { h.limiter = l }

func (h *ControlHandler) AddHealthCheck(name string, check func(ctx context.Context) error) {
	h.checks = append(h.checks, HealthCheck{Name: name, Check: check})
}

func (h *ControlHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/regime", h.Regime)
	g.GET("/thresholds", h.Thresholds)
	g.GET("/position-size", h.PositionSize)
	g.GET("/evaluate/:ticker", h.Evaluate)
	g.POST("/run", h.Run, h.throttle)
	g.POST("/run/:ticker", h.RunTicker, h.throttle)
	g.POST("/scan", h.Scan, h.throttle)
	g.POST("/discover", h.Discover, h.throttle)
}

func (h *ControlHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many manual runs", http.StatusTooManyRequests))
		}
		return next(c)
	}
}

func (h *ControlHandler) fail(c echo.Context, msg string, err error) error {
	return respondError(c, h.logger, msg, err)
}

func (h *ControlHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	res := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks)), Time: time.Now().UTC()}
	for _, hc := range h.checks {
		if err := hc.Check(ctx); err != nil {
			res.Status = "degraded"
			res.Checks[hc.Name] = err.Error()
			continue
		}
		res.Checks[hc.Name] = "ok"
	}
	if res.Status != "ok" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ControlHandler) Regime(c echo.Context) error {
	state, _, err := h.evaluator.Regime(c.Request().Context())
	if err != nil {
		h.logger.Warn("regime degraded to neutral", xlogger.Error(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, RegimeResponse{RegimeState: state, Degraded: err != nil})
}

func (h *ControlHandler) Thresholds(c echo.Context) error {
	req := &models.ThresholdRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.evaluator.Thresholds(c.Request().Context(), models.ParseRegime(req.Regime), req.Turnover)
	if err != nil {
		return h.fail(c, "thresholds error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ControlHandler) PositionSize(c echo.Context) error {
	req := &models.PositionSizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.portfolio.Size(c.Request().Context(), req.Confidence, req.ATRPct, req.Price)
	if err != nil {
		return h.fail(c, "position size error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Evaluate scores a ticker without side effects.
func (h *ControlHandler) Evaluate(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.evaluator.DryRun(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "dry run error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ControlHandler) Run(c echo.Context) error {
	res, err := h.evaluator.RunCycle(c.Request().Context())
	if err != nil {
		return h.fail(c, "run cycle error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ControlHandler) RunTicker(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.evaluator.EvaluateTicker(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "run ticker error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ControlHandler) Scan(c echo.Context) error {
	if h.jobs != nil {
		id, err := h.jobs.Enqueue(c.Request().Context(), usecase.JobScanUniverse, nil)
		if err != nil {
			return h.fail(c, "enqueue scan error", err)
		}
		return xhttp.AcceptedResponse(c, JobResponse{JobID: id, Type: usecase.JobScanUniverse})
	}
	res, err := h.scanner.Scan(c.Request().Context())
	if err != nil {
		return h.fail(c, "scan error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ControlHandler) Discover(c echo.Context) error {
	if h.jobs != nil {
		id, err := h.jobs.Enqueue(c.Request().Context(), usecase.JobDiscover, nil)
		if err != nil {
			return h.fail(c, "enqueue discovery error", err)
		}
		return xhttp.AcceptedResponse(c, JobResponse{JobID: id, Type: usecase.JobDiscover})
	}
	res, err := h.scanner.Discover(c.Request().Context())
	if err != nil {
		return h.fail(c, "discovery error", err)
	}
	return xhttp.SuccessResponse(c, res)
}
