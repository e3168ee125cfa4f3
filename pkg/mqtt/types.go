package mqtt

import (
	"context"
)

// Client publishes events to a broker. Subscriptions are not supported.
type Client interface {
	// Start begins connecting in the background and returns immediately.
	Start(ctx context.Context) error

	// Publish waits up to the configured publish timeout for a connection,
	// then sends payload to topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Connected reports whether the broker connection is currently up.
	Connected() bool

	Disconnect(ctx context.Context)
}
