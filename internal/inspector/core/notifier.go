package core

import (
	"context"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
)

// OutcomeNotifier publishes pass results to external listeners.
// In hwfleet this is implemented by the MQTT adapter.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, passID string, outcome model.Outcome) error
	NotifySummary(ctx context.Context, summary *report.Summary) error
}

// ReportStore archives finished pass reports. Nothing reads them back.
type ReportStore interface {
	Save(ctx context.Context, summary *report.Summary) error
}
