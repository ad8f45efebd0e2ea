package models

// Requests for the engine HTTP endpoints. Defined in domain for consistency and reuse.

type ListSignalsRequest struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=pending confirmed rejected superseded"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type SignalIDRequest struct {
	ID string `param:"id" json:"-" validate:"required"`
}

type ConfirmSignalRequest struct {
	ID       string   `param:"id" json:"-" validate:"required"`
	Price    *float64 `json:"price" validate:"omitempty,gt=0"`
	Quantity *int     `json:"quantity" validate:"omitempty,gte=1"`
}

type ClosePositionRequest struct {
	Ticker string   `param:"ticker" json:"-" validate:"required"`
	Price  *float64 `json:"price" validate:"omitempty,gt=0"`
}

type TickerRequest struct {
	Ticker string `param:"ticker" json:"-" validate:"required"`
}

type ListTradesRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type ListNewsRequest struct {
	Ticker string `query:"ticker" json:"ticker"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type DepositRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note" validate:"max=200"`
}

// UpdateSettingsRequest carries a partial settings update; nil fields are kept.
type UpdateSettingsRequest struct {
	MaxPositions    *int     `json:"max_positions" validate:"omitempty,gte=1,lte=20"`
	MaxPositionSize *float64 `json:"max_position_size" validate:"omitempty,gt=0"`
	SignalThreshold *int     `json:"signal_threshold" validate:"omitempty,gte=0,lte=100"`
	SellThreshold   *int     `json:"sell_threshold" validate:"omitempty,gte=0,lte=100"`
	CashBuffer      *float64 `json:"cash_buffer" validate:"omitempty,gte=0"`
	RotationMargin  *float64 `json:"rotation_margin" validate:"omitempty,gte=0,lte=50"`
	PaperBalance    *float64 `json:"paper_balance" validate:"omitempty,gte=0"`
}

// Apply merges the non-nil fields into s.
func (r *UpdateSettingsRequest) Apply(s Settings) Settings {
	if r.MaxPositions != nil {
		s.MaxPositions = *r.MaxPositions
	}
	if r.MaxPositionSize != nil {
		s.MaxPositionSize = *r.MaxPositionSize
	}
	if r.SignalThreshold != nil {
		s.SignalThreshold = *r.SignalThreshold
	}
	if r.SellThreshold != nil {
		s.SellThreshold = *r.SellThreshold
	}
	if r.CashBuffer != nil {
		s.CashBuffer = *r.CashBuffer
	}
	if r.RotationMargin != nil {
		s.RotationMargin = *r.RotationMargin
	}
	if r.PaperBalance != nil {
		s.PaperBalance = *r.PaperBalance
	}
	return s
}

type ThresholdRequest struct {
	Regime   string  `query:"regime" json:"regime" default:"NEUTRAL" validate:"oneof=BULL BULL_EARLY NEUTRAL BEAR"`
	Turnover float64 `query:"turnover" json:"turnover" validate:"gte=0"`
}

type PositionSizeRequest struct {
	Confidence int     `query:"confidence" json:"confidence" validate:"gte=0,lte=100"`
	ATRPct     float64 `query:"atr_pct" json:"atr_pct" validate:"gte=0"`
	Price      float64 `query:"price" json:"price" validate:"gte=0"`
}
