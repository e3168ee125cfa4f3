package inspector

import (
	"context"
	"fmt"
	"os"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/dispatch"
	"github.com/hwfleet/hwfleet/internal/inspector/core/policy"
	"github.com/hwfleet/hwfleet/internal/inspector/core/service"
	httpserver "github.com/hwfleet/hwfleet/internal/inspector/server/http"
	"github.com/hwfleet/hwfleet/pkg/log"
	"github.com/hwfleet/hwfleet/pkg/options"
)

type Config struct {
	InspectOptions *options.InspectOptions
	IronicOptions  *options.IronicOptions
	BlazarOptions  *options.BlazarOptions
	HttpOptions    *options.HttpOptions
	MqttOptions    *options.MqttOptions
	S3Options      *options.S3Options

	// Overridden in tests. Nil selects the MQTT and MinIO implementations.
	notifierFactory    func(ctx context.Context, logger log.Logger) (closingNotifier, error)
	reportStoreFactory func(ctx context.Context, logger log.Logger) (core.ReportStore, error)
}

type closingNotifier interface {
	core.OutcomeNotifier
	Close(ctx context.Context)
}

// ServiceConfig maps the inspect options onto the pass configuration.
func (cfg *Config) ServiceConfig() service.Config {
	o := cfg.InspectOptions
	return service.Config{
		Policy: policy.Config{
			ExpireDays:        o.ExpireDays,
			LeaseBuffer:       o.LeaseBuffer,
			ReinspectFailed:   o.ReinspectFailed,
			ProvideManageable: o.ProvideManageable,
		},
		Dispatch: dispatch.Config{
			Parallelism: o.Parallel,
			DryRun:      o.DryRun,
			Timeout:     o.Timeout,
		},
		Shuffle: o.Shuffle,
		Limit:   o.Limit,
	}
}

// NewInspector builds the adapters and the pass service.
func (cfg *Config) NewInspector(ctx context.Context) (*Inspector, error) {
	logger := log.WithName("inspector")

	hardware, err := InitializeHardwareAuthority(cfg.IronicOptions, logger.WithName("ironic"))
	if err != nil {
		return nil, err
	}

	reservation, err := InitializeReservationAuthority(cfg.BlazarOptions, logger.WithName("blazar"))
	if err != nil {
		return nil, err
	}

	if cfg.InspectOptions.InspectReserved {
		logger.Warn("inspect-reserved has no effect, nodes inside an active reservation window are never inspected")
	}

	var closers []func(context.Context)

	var notifier core.OutcomeNotifier
	if cfg.MqttOptions.Enabled {
		n, err := cfg.newNotifier(ctx, logger.WithName("mqtt"))
		if err != nil {
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		notifier = n
		closers = append(closers, n.Close)
	}

	var store core.ReportStore
	if cfg.S3Options.Enabled {
		s, err := cfg.newReportStore(ctx, logger.WithName("storage"))
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to init report store: %w", err)
		}
		store = s
	}

	svc := service.New(cfg.ServiceConfig(), hardware, reservation, notifier, store, service.WithLogger(logger))

	insp := New(svc, cfg.InspectOptions.Interval, os.Stdout, logger)
	insp.closers = closers

	if cfg.InspectOptions.Interval > 0 && cfg.HttpOptions.Addr != "" {
		insp.server = httpserver.NewServer(cfg.HttpOptions, insp.Ready, logger.WithName("http"))
	}
	return insp, nil
}

func (cfg *Config) newNotifier(ctx context.Context, logger log.Logger) (closingNotifier, error) {
	if cfg.notifierFactory != nil {
		return cfg.notifierFactory(ctx, logger)
	}
	return InitializeNotifier(ctx, cfg.MqttOptions, logger)
}

func (cfg *Config) newReportStore(ctx context.Context, logger log.Logger) (core.ReportStore, error) {
	if cfg.reportStoreFactory != nil {
		return cfg.reportStoreFactory(ctx, logger)
	}
	return InitializeReportStore(ctx, cfg.S3Options, logger)
}
