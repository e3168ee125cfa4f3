package inspector

import (
	"context"
	"fmt"

	"github.com/hwfleet/hwfleet/internal/inspector/blazar"
	"github.com/hwfleet/hwfleet/internal/inspector/ironic"
	"github.com/hwfleet/hwfleet/internal/inspector/notifier"
	"github.com/hwfleet/hwfleet/internal/inspector/storage"
	"github.com/hwfleet/hwfleet/pkg/log"
	"github.com/hwfleet/hwfleet/pkg/options"
)

func InitializeHardwareAuthority(opts *options.IronicOptions, logger log.Logger) (*ironic.Client, error) {
	client, err := ironic.New(ironic.Config{
		Endpoint:        opts.Endpoint,
		Token:           opts.Token,
		Microversion:    opts.Microversion,
		Timeout:         opts.Timeout,
		PollInterval:    opts.PollInterval,
		MaxRetryElapsed: opts.MaxRetryElapsed,
	}, logger)
	if err != nil {
		log.Error(err, "failed to create bare metal client")
		return nil, err
	}
	return client, nil
}

func InitializeReservationAuthority(opts *options.BlazarOptions, logger log.Logger) (*blazar.Client, error) {
	client, err := blazar.New(blazar.Config{
		Endpoint:        opts.Endpoint,
		Token:           opts.Token,
		Timeout:         opts.Timeout,
		MaxRetryElapsed: opts.MaxRetryElapsed,
		QPS:             opts.QPS,
		Burst:           opts.Burst,
	}, logger)
	if err != nil {
		log.Error(err, "failed to create reservation client")
		return nil, err
	}
	return client, nil
}

func InitializeNotifier(ctx context.Context, opts *options.MqttOptions, logger log.Logger) (*notifier.MQTTNotifier, error) {
	n, err := notifier.NewMQTTNotifier(ctx, opts, logger)
	if err != nil {
		log.Error(err, "failed to create mqtt notifier")
		return nil, err
	}
	return n, nil
}

func InitializeReportStore(ctx context.Context, opts *options.S3Options, logger log.Logger) (*storage.MinIOStore, error) {
	store, err := storage.NewMinIOStore(opts, logger)
	if err != nil {
		return nil, err
	}
	if err := store.CheckBucket(ctx); err != nil {
		return nil, fmt.Errorf("report bucket %s: %w", opts.BucketName, err)
	}
	return store, nil
}
