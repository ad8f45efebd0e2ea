package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"Aktiemotor/internal/domain/models"
	"Aktiemotor/pkg/queue"
	"Aktiemotor/pkg/util"
)

const (
	JobScanUniverse   = "scan.universe"
	JobDiscover       = "scan.discover"
	JobEvaluateTicker = "evaluate.ticker"
)

// EvaluatePayload selects one ticker; an empty ticker runs a full cycle.
type EvaluatePayload struct {
	Ticker string `json:"ticker,omitempty"`
}

// ScanJob runs a universe scan. A scan already in progress makes the job a
// no-op rather than a retry.
func ScanJob(s *Scanner) queue.Job {
	return queue.JobFunc{
		JobName: "universe scan",
		JobType: JobScanUniverse,
		Fn: func(ctx context.Context, _ json.RawMessage) error {
			_, err := s.Scan(ctx)
			if errors.Is(err, models.ErrBusy) {
				return nil
			}
			return err
		},
	}
}

// DiscoverJob rebuilds the watchlist from the universe. Like ScanJob it
// treats a busy scan lock as done.
func DiscoverJob(s *Scanner) queue.Job {
	return queue.JobFunc{
		JobName: "discovery",
		JobType: JobDiscover,
		Fn: func(ctx context.Context, _ json.RawMessage) error {
			_, err := s.Discover(ctx)
			if errors.Is(err, models.ErrBusy) {
				return nil
			}
			return err
		},
	}
}

// EvaluateJob runs a cycle or a single ticker. A busy cycle lock is
// returned as an error so the queue retries later.
func EvaluateJob(e *Evaluator) queue.Job {
	return queue.JobFunc{
		JobName: "evaluate",
		JobType: JobEvaluateTicker,
		Fn: func(ctx context.Context, raw json.RawMessage) error {
			p, err := queue.ParsePayload[EvaluatePayload](raw)
			if err != nil {
				return err
			}
			if t := util.NormalizeTicker(p.Ticker); t != "" {
				_, err = e.EvaluateTicker(ctx, t)
				return err
			}
			_, err = e.RunCycle(ctx)
			return err
		},
	}
}
