package models

import "time"

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

// SentimentResult is the classification of a single headline.
type SentimentResult struct {
	Sentiment SentimentLabel `json:"sentiment"`
	Score     float64        `json:"score"`
	Reason    string         `json:"reason"`
}

// NeutralSentiment is returned when analysis fails.
func NeutralSentiment(reason string) *SentimentResult {
	return &SentimentResult{Sentiment: SentimentNeutral, Score: 0, Reason: reason}
}

type NewsItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}

// InsiderTrade is one row from the insider register.
type InsiderTrade struct {
	Person   string    `json:"person"`
	Position string    `json:"position"`
	Action   string    `json:"action"`
	Volume   float64   `json:"volume"`
	Price    float64   `json:"price"`
	Date     time.Time `json:"date"`
}

// Notional is volume times price.
func (t InsiderTrade) Notional() float64 { return t.Volume * t.Price }

// NewsRecord is a headline kept with the sentiment it was given.
type NewsRecord struct {
	Ticker         string         `json:"ticker"`
	Headline       string         `json:"headline"`
	URL            string         `json:"url,omitempty"`
	Sentiment      SentimentLabel `json:"sentiment"`
	SentimentScore float64        `json:"sentiment_score"`
	Reason         string         `json:"reason,omitempty"`
	Source         string         `json:"source,omitempty"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
