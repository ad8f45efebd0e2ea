package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Aktiemotor/internal/domain/models"
	domrepo "Aktiemotor/internal/domain/repository"
	pkgkafka "Aktiemotor/pkg/kafka"
)

// AuditHandler consumes the recommendation stream and writes every version
// of every recommendation to the archive.
type AuditHandler struct {
	topic   string
	archive domrepo.Archive
	metrics domrepo.Metrics
}

func NewAuditHandler(topic string, archive domrepo.Archive, metrics domrepo.Metrics) *AuditHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &AuditHandler{topic: topic, archive: archive, metrics: metrics}
}

func (h *AuditHandler) Topic() string { return h.topic }

// Handle stores one recommendation. Undecodable messages are permanent
// failures and go to the DLQ without retries.
func (h *AuditHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.Recommendation
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("audit_unmarshal")
		return fmt.Errorf("%w: decode recommendation: %v", pkgkafka.ErrPoison, err)
	}
	if rec.ID == "" || rec.Ticker == "" {
		h.metrics.RecordError("audit_invalid")
		return fmt.Errorf("%w: recommendation without id or ticker", pkgkafka.ErrPoison)
	}

	// time from the status change to the audit row
	changed := rec.CreatedAt
	if rec.DecidedAt != nil {
		changed = *rec.DecidedAt
	}
	if !changed.IsZero() {
		h.metrics.RecordLatency("audit_e2e", time.Since(changed))
	}

	start := time.Now()
	err := h.archive.StoreRecommendations(ctx, []*models.Recommendation{&rec})
	h.metrics.RecordLatency("audit_insert", time.Since(start))
	if err != nil {
		h.metrics.RecordError("audit_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse")
	return nil
}

var _ pkgkafka.MessageHandler = (*AuditHandler)(nil)
