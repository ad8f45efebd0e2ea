package models

// Candidate is a ticker scored for watchlist inclusion.
type Candidate struct {
	Ticker    string             `json:"ticker"`
	Score     int                `json:"score"`
	Qualified bool               `json:"qualified"`
	Reasons   []string           `json:"reasons"`
	Turnover  float64            `json:"turnover"`
	ATRPct    *float64           `json:"atr_pct,omitempty"`
	Snapshot  *IndicatorSnapshot `json:"-"`
}

// WatchlistChange records one replacement made by a universe scan.
type WatchlistChange struct {
	Added        string `json:"added"`
	AddedScore   int    `json:"added_score"`
	Removed      string `json:"removed"`
	RemovedScore int    `json:"removed_score"`
}

// ScanReport summarises a universe scan.
type ScanReport struct {
	Scanned   int               `json:"scanned"`
	Qualified int               `json:"qualified"`
	Top       []Candidate       `json:"top"`
	Changes   []WatchlistChange `json:"changes"`
}

// DiscoveryCandidate is one ticker ranked by the morning discovery run.
type DiscoveryCandidate struct {
	Ticker    string             `json:"ticker"`
	Company   string             `json:"company,omitempty"`
	Candidate int                `json:"candidate_score"`
	BuyPre    int                `json:"buy_pre_score"`
	Combined  float64            `json:"combined_score"`
	Held      bool               `json:"held"`
	Reasons   []string           `json:"reasons,omitempty"`
	Snapshot  *IndicatorSnapshot `json:"-"`
}

// DiscoveryReport summarises a discovery run. Selected is the new watchlist.
type DiscoveryReport struct {
	Regime   MarketRegime         `json:"regime"`
	Scanned  int                  `json:"scanned"`
	Filtered int                  `json:"filtered"`
	Failed   int                  `json:"failed"`
	Selected []DiscoveryCandidate `json:"selected"`
	Added    []string             `json:"added"`
	Removed  []string             `json:"removed"`
}
