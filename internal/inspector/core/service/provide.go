package service

import (
	"context"
	"fmt"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
	"github.com/hwfleet/hwfleet/pkg/log"
)

// provide moves a freshly inspected manageable node back to available.
// The node is re-read first and left alone if it changed in the meantime.
// A dry run performs the same re-read and only records the plan.
func (s *Service) provide(ctx context.Context, logger log.Logger, collector *report.Collector, node *model.NodeRecord) {
	fresh, err := s.hardware.GetNode(ctx, node.ID)
	if err != nil {
		collector.RecordProvide(node, fmt.Errorf("re-read node: %w", err))
		return
	}
	if fresh.ProvisionState != model.ProvisionStateManageable || fresh.Maintenance || fresh.HasInstance() {
		logger.Info("Node changed before provide, leaving it alone", "node", fresh.String(),
			"provisionState", string(fresh.ProvisionState), "maintenance", fresh.Maintenance)
		return
	}
	if s.cfg.Dispatch.DryRun {
		collector.RecordProvide(node, nil)
		return
	}

	if err := s.hardware.SetProvisionState(ctx, node.ID, model.TargetProvide); err != nil {
		collector.RecordProvide(node, fmt.Errorf("set provision state %s: %w", model.TargetProvide, err))
		return
	}
	collector.RecordProvide(node, nil)
}
