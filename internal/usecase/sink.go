package usecase

import (
	"context"
	"time"

	"Aktiemotor/internal/domain/models"
)

// SignalSink delivers recommendations to everything downstream of the
// state store: the event stream, the phone and the websocket feed.
type SignalSink interface {
	// Emit announces a new pending recommendation.
	Emit(ctx context.Context, rec *models.Recommendation) error
	// Update announces a status change. No push notification is sent.
	Update(ctx context.Context, rec *models.Recommendation) error
}

type discardSink struct{}

func (discardSink) Emit(context.Context, *models.Recommendation) error   { return nil }
func (discardSink) Update(context.Context, *models.Recommendation) error { return nil }

// DiscardSink drops everything. Used by dry runs and the CLI.
var DiscardSink SignalSink = discardSink{}

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string)            {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordLastPrice(string, float64)     {}
func (nopMetrics) RecordLatency(string, time.Duration) {}
func (nopMetrics) RecordCycle(time.Duration)           {}
func (nopMetrics) RecordEvaluation(string)             {}
func (nopMetrics) RecordSignal(string, string)         {}
func (nopMetrics) RecordScore(string, string, int)     {}
func (nopMetrics) RecordRegime(string)                 {}
