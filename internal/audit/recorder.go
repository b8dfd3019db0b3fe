package audit

import (
	"context"
	"log/slog"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/metrics"
)

// Sink persists audit entries.
type Sink interface {
	InsertAuditEntry(ctx context.Context, entry domain.AuditEntry) error
}

// Recorder writes best-effort audit entries. Record is always called after
// the primary mutation has committed, and a failed audit write must never
// fail the caller — the entry is advisory, unlike the event log.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
}

func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger}
}

// Record persists the entry, swallowing any failure. Safe to call on a nil
// recorder so optional wiring stays simple at call sites.
func (r *Recorder) Record(ctx context.Context, entry domain.AuditEntry) {
	if r == nil || r.sink == nil {
		return
	}

	if err := r.sink.InsertAuditEntry(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		r.logger.Error("failed to write audit entry",
			"organization_id", entry.OrganizationID,
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}
