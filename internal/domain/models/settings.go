package models

// Settings are the runtime knobs editable through the API.
type Settings struct {
	MaxPositions    int     `json:"max_positions" yaml:"max_positions" default:"3" validate:"gte=1,lte=20"`
	MaxPositionSize float64 `json:"max_position_size" yaml:"max_position_size" default:"2500" validate:"gt=0"`
	SignalThreshold int     `json:"signal_threshold" yaml:"signal_threshold" default:"60" validate:"gte=0,lte=100"`
	SellThreshold   int     `json:"sell_threshold" yaml:"sell_threshold" default:"55" validate:"gte=0,lte=100"`
	CashBuffer      float64 `json:"cash_buffer" yaml:"cash_buffer" default:"2000" validate:"gte=0"`
	RotationMargin  float64 `json:"rotation_margin" yaml:"rotation_margin" default:"15" validate:"gte=0,lte=50"`
	PaperBalance    float64 `json:"paper_balance" yaml:"paper_balance" default:"10000" validate:"gte=0"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		MaxPositions:    3,
		MaxPositionSize: 2500,
		SignalThreshold: 60,
		SellThreshold:   55,
		CashBuffer:      2000,
		RotationMargin:  15,
		PaperBalance:    10000,
	}
}
