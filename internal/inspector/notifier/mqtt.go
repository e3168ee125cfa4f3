package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
	"github.com/hwfleet/hwfleet/pkg/log"
	pkgmqtt "github.com/hwfleet/hwfleet/pkg/mqtt"
	"github.com/hwfleet/hwfleet/pkg/mqtt/topic"
	"github.com/hwfleet/hwfleet/pkg/options"
)

var _ core.OutcomeNotifier = (*MQTTNotifier)(nil)

// OutcomeEvent is the payload published for every dispatched node.
type OutcomeEvent struct {
	PassID          string    `json:"passId"`
	NodeID          string    `json:"nodeId"`
	NodeName        string    `json:"nodeName"`
	Kind            string    `json:"kind"`
	Decision        string    `json:"decision"`
	Reason          string    `json:"reason,omitempty"`
	Error           string    `json:"error,omitempty"`
	ProvisionState  string    `json:"provisionState,omitempty"`
	DurationSeconds float64   `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.TopicBuilder
	qos    int
	now    func() time.Time
}

// NewMQTTNotifier connects a dedicated publisher to the broker.
func NewMQTTNotifier(ctx context.Context, opts *options.MqttOptions, logger log.Logger) (*MQTTNotifier, error) {
	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		host, _ := os.Hostname()
		cfg.ClientID = "hwfleet-inspector-" + host
	}

	client, err := pkgmqtt.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := client.Start(ctx); err != nil {
		return nil, err
	}

	return newNotifier(client, opts.TopicRoot, opts.QoS), nil
}

func newNotifier(client pkgmqtt.Client, root string, qos int) *MQTTNotifier {
	return &MQTTNotifier{
		client: client,
		topics: topic.NewTopicBuilder(root),
		qos:    qos,
		now:    time.Now,
	}
}

func (n *MQTTNotifier) NotifyOutcome(ctx context.Context, passID string, o model.Outcome) error {
	event := OutcomeEvent{
		PassID:          passID,
		NodeID:          o.Node.ID,
		NodeName:        o.Node.Name,
		Kind:            string(o.Kind),
		Decision:        string(o.Decision),
		Reason:          o.Reason,
		DurationSeconds: o.Duration.Seconds(),
		Timestamp:       n.now().UTC(),
	}
	if o.Err != nil {
		event.Error = o.Err.Error()
	}
	if o.Snapshot != nil {
		event.ProvisionState = string(o.Snapshot.ProvisionState)
	}

	return n.publish(ctx, n.topics.Outcome(o.Node.ID), event)
}

func (n *MQTTNotifier) NotifySummary(ctx context.Context, summary *report.Summary) error {
	return n.publish(ctx, n.topics.Summary(summary.PassID), summary)
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}

func (n *MQTTNotifier) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	if err := n.client.Publish(ctx, topic, n.qos, false, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
