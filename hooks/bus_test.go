package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/telemetry"
)

type recordingSubscriber struct {
	events []hooks.Event
	fail   bool
}

func (r *recordingSubscriber) HandleEvent(_ context.Context, evt hooks.Event) error {
	r.events = append(r.events, evt)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func TestBusFanOutInRegistrationOrder(t *testing.T) {
	b := hooks.NewBus(telemetry.NewNoopLogger())
	first := &recordingSubscriber{}
	second := &recordingSubscriber{}
	_, err := b.Register(first)
	require.NoError(t, err)
	_, err = b.Register(second)
	require.NoError(t, err)

	evt := hooks.NewRunStartedEvent("run-1", 1, "do the thing")
	require.NoError(t, b.Publish(context.Background(), evt))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, hooks.EventRunStarted, first.events[0].Type())
}

func TestBusPublishIsFailOpen(t *testing.T) {
	b := hooks.NewBus(telemetry.NewNoopLogger())
	failing := &recordingSubscriber{fail: true}
	healthy := &recordingSubscriber{}
	_, _ = b.Register(failing)
	_, _ = b.Register(healthy)

	err := b.Publish(context.Background(), hooks.NewRunStartedEvent("run-1", 1, "task"))
	require.NoError(t, err, "a failing subscriber must not fail Publish")
	assert.Len(t, healthy.events, 1, "later subscribers must still run after an earlier one fails")
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	b := hooks.NewBus(telemetry.NewNoopLogger())
	sub := &recordingSubscriber{}
	subscription, err := b.Register(sub)
	require.NoError(t, err)
	require.NoError(t, subscription.Close())
	require.NoError(t, subscription.Close(), "Close must be idempotent")

	require.NoError(t, b.Publish(context.Background(), hooks.NewRunStartedEvent("run-1", 1, "task")))
	assert.Empty(t, sub.events)
}

func TestCodecRoundTrip(t *testing.T) {
	evt := hooks.NewToolCallRequestedEvent("run-1", 42, "call-1", "shell_exec", []byte(`{"cmd":"ls"}`))
	evt.SetTurnID("turn-1")

	env, err := hooks.Encode(evt)
	require.NoError(t, err)
	assert.Equal(t, hooks.EventToolCallRequested, env.Type)

	decoded, err := hooks.Decode(env)
	require.NoError(t, err)
	assert.Equal(t, evt.RunID(), decoded.RunID())
	assert.Equal(t, evt.TurnID(), decoded.TurnID())
	assert.Equal(t, evt.Timestamp(), decoded.Timestamp())

	got, ok := decoded.(*hooks.ToolCallRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, evt.Tool, got.Tool)
}

func TestDecodeUnknownEventTypeErrors(t *testing.T) {
	_, err := hooks.Decode(hooks.Envelope{Type: hooks.EventType("not_a_real_type")})
	assert.Error(t, err)
}
