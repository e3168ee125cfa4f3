package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
)

type published struct {
	topic   string
	qos     int
	payload []byte
}

type fakeClient struct {
	msgs []published
	err  error
}

func (f *fakeClient) Start(context.Context) error { return nil }
func (f *fakeClient) Disconnect(context.Context)  {}
func (f *fakeClient) Connected() bool             { return true }
func (f *fakeClient) Publish(_ context.Context, topic string, qos int, _ bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func TestNotifyOutcome(t *testing.T) {
	client := &fakeClient{}
	n := newNotifier(client, "hwfleet/v1", 1)
	n.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	err := n.NotifyOutcome(context.Background(), "pass-1", model.Outcome{
		Node:     &model.NodeRecord{ID: "n1", Name: "compute-1"},
		Kind:     model.OutcomeFailed,
		Decision: model.DecisionEligible,
		Err:      errors.New("timeout"),
		Duration: 90 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, client.msgs, 1)

	msg := client.msgs[0]
	assert.Equal(t, "hwfleet/v1/inspection/outcome/n1", msg.topic)
	assert.Equal(t, 1, msg.qos)

	var event OutcomeEvent
	require.NoError(t, json.Unmarshal(msg.payload, &event))
	assert.Equal(t, "pass-1", event.PassID)
	assert.Equal(t, "Failed", event.Kind)
	assert.Equal(t, "timeout", event.Error)
	assert.Equal(t, 90.0, event.DurationSeconds)
}

func TestNotifySummary(t *testing.T) {
	client := &fakeClient{}
	n := newNotifier(client, "root", 0)

	require.NoError(t, n.NotifySummary(context.Background(), &report.Summary{PassID: "p", Completed: 3}))
	require.Len(t, client.msgs, 1)
	assert.Equal(t, "root/inspection/summary/p", client.msgs[0].topic)
	assert.Contains(t, string(client.msgs[0].payload), `"completed":3`)
}

func TestNotifyPublishError(t *testing.T) {
	n := newNotifier(&fakeClient{err: errors.New("not connected")}, "root", 1)

	err := n.NotifySummary(context.Background(), &report.Summary{PassID: "p"})
	assert.ErrorContains(t, err, "not connected")
}
