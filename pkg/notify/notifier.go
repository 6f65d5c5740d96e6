// Package notify publishes run lifecycle notifications onto the event bus,
// implementing the advancement engine's Notifier collaborator.
package notify

import (
	"context"
	"time"

	"github.com/voyflow/voyflow/pkg/eventbus"
	"github.com/voyflow/voyflow/pkg/events"
	"github.com/voyflow/voyflow/pkg/models"
)

// EventBusNotifier bridges the engine's notification hooks to the bus.
// Downstream consumers (email digests, dashboards, outbound webhooks)
// subscribe to the run topic instead of being called directly.
type EventBusNotifier struct {
	bus eventbus.EventBus
}

func NewEventBusNotifier(bus eventbus.EventBus) *EventBusNotifier {
	return &EventBusNotifier{bus: bus}
}

func (n *EventBusNotifier) base(eventType events.EventType, run *models.FlowRun) events.BaseEvent {
	return events.BaseEvent{
		ID:        n.bus.GenerateID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    run.FlowID,
		RunID:     run.ID,
	}
}

func (n *EventBusNotifier) RunStarted(ctx context.Context, run *models.FlowRun, firstStepID string) error {
	return n.bus.Publish(ctx, run.ID, events.RunStarted{
		BaseEvent:   n.base(events.RunStartedEvent, run),
		FirstStepID: firstStepID,
	})
}

func (n *EventBusNotifier) RunCompleted(ctx context.Context, run *models.FlowRun) error {
	event := events.RunCompleted{
		BaseEvent: n.base(events.RunCompletedEvent, run),
	}

	if run.CompletedAt != nil {
		event.CompletedAt = *run.CompletedAt
		event.Duration = run.CompletedAt.Sub(run.StartedAt)
	}

	return n.bus.Publish(ctx, run.ID, event)
}

func (n *EventBusNotifier) RunTerminated(ctx context.Context, run *models.FlowRun) error {
	return n.bus.Publish(ctx, run.ID, events.RunTerminated{
		BaseEvent:       n.base(events.RunTerminatedEvent, run),
		TerminateStatus: run.TerminateStatus,
	})
}

func (n *EventBusNotifier) StepActivated(ctx context.Context, run *models.FlowRun, exec *models.StepExecution, step *models.Step) error {
	return n.bus.Publish(ctx, run.ID, events.StepActivated{
		BaseEvent:       n.base(events.StepActivatedEvent, run),
		StepExecutionID: exec.ID,
		StepID:          step.ID,
		StepType:        step.Type,
		Due:             step.Due,
		RunDueAt:        run.DueAt,
		ParallelGroupID: exec.ParallelGroupID,
	})
}

func (n *EventBusNotifier) StepCompleted(ctx context.Context, run *models.FlowRun, exec *models.StepExecution) error {
	event := events.StepCompleted{
		BaseEvent:       n.base(events.StepCompletedEvent, run),
		StepExecutionID: exec.ID,
		StepID:          exec.StepID,
		ResultData:      exec.ResultData,
	}

	if exec.CompletedAt != nil {
		event.CompletedAt = *exec.CompletedAt
	}

	return n.bus.Publish(ctx, run.ID, event)
}
