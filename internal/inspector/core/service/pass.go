package service

import (
	"context"
	"fmt"

	"github.com/hwfleet/hwfleet/internal/inspector/core/dispatch"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
	"github.com/hwfleet/hwfleet/internal/pkg/metrics"
	"github.com/hwfleet/hwfleet/pkg/log"
)

// RunPass performs one reconciliation pass and blocks until every dispatched
// node finished. An error is returned only when the inventories could not be
// read; per-node failures are part of the summary.
func (s *Service) RunPass(ctx context.Context) (*report.Summary, error) {
	passID := s.newPassID()
	logger := s.logger.WithValues("pass", passID)
	collector := report.NewCollector(passID, s.cfg.Dispatch.DryRun, s.clock, logger.WithName("report"))

	logger.Info("Starting reconciliation pass", "dryRun", s.cfg.Dispatch.DryRun)

	nodes, err := s.builder.Build(ctx)
	if err != nil {
		metrics.PassesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("pass %s: %w", passID, err)
	}

	eligible := make([]*model.NodeRecord, 0, len(nodes))
	for _, an := range nodes {
		verdict := s.policy.Evaluate(an.Node, an.Annotation)
		collector.RecordDecision(an.Node, verdict)
		logAdvisories(logger, an.Node, verdict)

		if verdict.Has(model.AdvisoryProvideManageable) {
			s.provide(ctx, logger, collector, an.Node)
		}
		if verdict.Decision == model.DecisionEligible {
			eligible = append(eligible, an.Node)
		}
	}

	selected := dispatch.Select(eligible, s.cfg.Shuffle, s.cfg.Limit, s.rnd)
	logger.Info("Dispatching inspections", "nodes", len(nodes), "eligible", len(eligible), "selected", len(selected),
		"parallel", s.cfg.Dispatch.Parallelism)

	s.engine.Dispatch(ctx, selected, func(o model.Outcome) {
		collector.RecordOutcome(o)
		if s.notifier == nil {
			return
		}
		if err := s.notifier.NotifyOutcome(ctx, passID, o); err != nil {
			logger.Error(err, "Failed to publish outcome", "node", o.Node.String())
		}
	})

	summary := collector.Summary()
	s.publish(ctx, logger, summary)

	metrics.PassesTotal.WithLabelValues("success").Inc()
	metrics.LastPassTimestamp.Set(float64(summary.FinishedAt.Unix()))
	logger.Info("Reconciliation pass finished", "eligible", summary.Eligible, "completed", summary.Completed,
		"failed", summary.Failed, "raceSkipped", summary.RaceSkipped, "dryRunSkipped", summary.DryRunSkipped,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary, nil
}

// publish hands the summary to the optional sinks. Sink errors never fail a pass.
func (s *Service) publish(ctx context.Context, logger log.Logger, summary *report.Summary) {
	if s.notifier != nil {
		if err := s.notifier.NotifySummary(ctx, summary); err != nil {
			logger.Error(err, "Failed to publish pass summary")
		}
	}
	if s.store != nil {
		if err := s.store.Save(ctx, summary); err != nil {
			logger.Error(err, "Failed to archive pass report")
		}
	}
}

func logAdvisories(logger log.Logger, node *model.NodeRecord, v model.Verdict) {
	for _, a := range v.Advisories {
		switch a {
		case model.AdvisoryBootModeUnset:
			logger.Warn("boot_mode capability is unset", "node", node.String())
		case model.AdvisoryBiosCapability:
			logger.Warn("bios capability present", "node", node.String())
		case model.AdvisoryProvideNeeded:
			logger.Warn("Node is manageable with a fresh inspection, run provide to make it available", "node", node.String())
		}
	}
}
