package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyflow/voyflow/pkg/events"
)

func TestGenerateID_Unique(t *testing.T) {
	bus := NewGoChannelEventBus()
	defer func() { _ = bus.Close() }()

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

func TestPublishSubscribe_RoundTrip(t *testing.T) {
	bus := NewGoChannelEventBus()
	defer func() { _ = bus.Close() }()

	var (
		mu       sync.Mutex
		received []*events.RunStarted
	)

	err := bus.Handle(events.RunStartedEvent, func(_ context.Context, event any) error {
		mu.Lock()
		defer mu.Unlock()

		started, ok := event.(*events.RunStarted)
		require.True(t, ok)
		received = append(received, started)

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.RunStarted{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.RunStartedEvent,
			Timestamp: time.Now().UTC(),
			FlowID:    "flow-1",
			RunID:     "run-1",
		},
		FirstStepID: "step-1",
	}

	require.NoError(t, bus.Publish(ctx, "run-1", event))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "run-1", received[0].RunID)
	assert.Equal(t, "step-1", received[0].FirstStepID)
}

func TestSubscribe_UnhandledEventTypeAcked(t *testing.T) {
	bus := NewGoChannelEventBus()
	defer func() { _ = bus.Close() }()

	var handled sync.Map

	err := bus.Handle(events.StepCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.StepCompleted)
		require.True(t, ok)
		handled.Store(completed.StepID, true)

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// An event type with no registered handler is dropped, not redelivered.
	unhandled := events.RunCompleted{
		BaseEvent: events.BaseEvent{Type: events.RunCompletedEvent, RunID: "run-1"},
	}
	require.NoError(t, bus.Publish(ctx, "run-1", unhandled))

	watched := events.StepCompleted{
		BaseEvent: events.BaseEvent{Type: events.StepCompletedEvent, RunID: "run-1"},
		StepID:    "step-1",
	}
	require.NoError(t, bus.Publish(ctx, "run-1", watched))

	require.Eventually(t, func() bool {
		_, ok := handled.Load("step-1")

		return ok
	}, time.Second, 10*time.Millisecond)
}
