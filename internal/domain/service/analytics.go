package service

import (
	"context"

	"Aktiemotor/internal/domain/models"
)

// SentimentAnalyzer classifies headlines and writes short signal summaries.
// Failures degrade to a neutral result rather than an error.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, ticker, headline string) *models.SentimentResult
	Describe(ctx context.Context, rec *models.Recommendation) string
}
