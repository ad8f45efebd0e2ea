package api

import (
	"errors"
	"net/http"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/internal/usecase"
	xhttp "Aktiemotor/pkg/http"
	xlogger "Aktiemotor/pkg/logger"

	"github.com/labstack/echo/v4"
)

var errorMappings = []xhttp.ErrorMapping{
	{Target: models.ErrNotFound, Build: xhttp.NotFoundError},
	{Target: models.ErrNoPosition, Build: xhttp.NotFoundError},
	{Target: models.ErrSignalNotPending, Build: xhttp.ConflictError},
	{Target: models.ErrPositionExists, Build: xhttp.ConflictError},
	{Target: models.ErrNoSlots, Build: xhttp.ConflictError},
	{Target: models.ErrBusy, Build: xhttp.ConflictError},
	{Target: models.ErrNotBuySignal, Build: xhttp.BadRequestError},
	{Target: models.ErrInvalidInput, Build: xhttp.BadRequestError},
	{Target: models.ErrInsufficientData, Build: func(msg string) *xhttp.AppError {
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", msg, http.StatusUnprocessableEntity)
	}},
}

// EngineHandler serves the operator's view of the engine: signals,
// positions, the cash ledger and settings.
type EngineHandler struct {
	logger       *xlogger.Logger
	confirmation *usecase.Confirmation
	portfolio    *usecase.Portfolio
	strategies   *usecase.Strategies
}

func NewEngineHandler(logger *xlogger.Logger, confirmation *usecase.Confirmation, portfolio *usecase.Portfolio, strategies *usecase.Strategies) *EngineHandler {
	return &EngineHandler{logger: logger, confirmation: confirmation, portfolio: portfolio, strategies: strategies}
}

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.ListSignals)
	g.POST("/signals/:id/confirm", h.ConfirmSignal)
	g.POST("/signals/:id/reject", h.RejectSignal)
	g.GET("/positions", h.ListPositions)
	g.POST("/positions/:ticker/close", h.ClosePosition)
	g.GET("/trades", h.ListTrades)
	g.GET("/summary", h.Summary)
	g.GET("/deposits", h.ListDeposits)
	g.POST("/deposits", h.AddDeposit)
	g.GET("/watchlist", h.Watchlist)
	g.GET("/news", h.ListNews)
	g.GET("/settings", h.GetSettings)
	g.POST("/settings", h.UpdateSettings)
}

// respondError maps domain errors to statuses. Only unmapped errors are
// logged; the rest are the caller's fault.
func respondError(c echo.Context, l *xlogger.Logger, msg string, err error) error {
	err = xhttp.MapError(err, errorMappings...)
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) {
		l.Error(msg, xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, err)
}

func (h *EngineHandler) fail(c echo.Context, msg string, err error) error {
	return respondError(c, h.logger, msg, err)
}

func (h *EngineHandler) ListSignals(c echo.Context) error {
	req := &models.ListSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.confirmation.Signals(c.Request().Context(), models.SignalStatus(req.Status), req.Limit)
	if err != nil {
		return h.fail(c, "list signals error", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) ConfirmSignal(c echo.Context) error {
	req := &models.ConfirmSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.confirmation.Confirm(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "confirm signal error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) RejectSignal(c echo.Context) error {
	req := &models.SignalIDRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.confirmation.Reject(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "reject signal error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) ListPositions(c echo.Context) error {
	rows, err := h.portfolio.Positions(c.Request().Context())
	if err != nil {
		return h.fail(c, "list positions error", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) ClosePosition(c echo.Context) error {
	req := &models.ClosePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.confirmation.ClosePosition(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "close position error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) ListTrades(c echo.Context) error {
	req := &models.ListTradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.portfolio.Trades(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "list trades error", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) Summary(c echo.Context) error {
	res, err := h.portfolio.Summary(c.Request().Context())
	if err != nil {
		return h.fail(c, "summary error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) ListDeposits(c echo.Context) error {
	rows, err := h.portfolio.Deposits(c.Request().Context())
	if err != nil {
		return h.fail(c, "list deposits error", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) AddDeposit(c echo.Context) error {
	req := &models.DepositRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.portfolio.AddDeposit(c.Request().Context(), req.Amount, req.Note)
	if err != nil {
		return h.fail(c, "add deposit error", err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *EngineHandler) Watchlist(c echo.Context) error {
	rows, err := h.strategies.Watchlist(c.Request().Context())
	if err != nil {
		return h.fail(c, "watchlist error", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) ListNews(c echo.Context) error {
	req := &models.ListNewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.portfolio.News(c.Request().Context(), req.Ticker, req.Limit)
	if err != nil {
		return h.fail(c, "list news error", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) GetSettings(c echo.Context) error {
	res, err := h.portfolio.Settings(c.Request().Context())
	if err != nil {
		return h.fail(c, "settings error", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) UpdateSettings(c echo.Context) error {
	req := &models.UpdateSettingsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.portfolio.UpdateSettings(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "update settings error", err)
	}
	return xhttp.SuccessResponse(c, res)
}
