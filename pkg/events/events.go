// Package events defines event types and structures for run lifecycle
// notifications.
package events

import (
	"time"

	"github.com/voyflow/voyflow/pkg/models"
)

type EventType string

// Topic for run lifecycle events.
const Topic = "voyflow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent    EventType = "run.started"
	RunCompletedEvent  EventType = "run.completed"
	RunTerminatedEvent EventType = "run.terminated"

	StepActivatedEvent EventType = "step.activated"
	StepCompletedEvent EventType = "step.completed"
	StepFailedEvent    EventType = "step.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	RunID     string         `json:"run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type RunStarted struct {
	BaseEvent

	FirstStepID string `json:"first_step_id,omitempty"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

// RunTerminated signals a TERMINATE step short-circuiting the run under
// the run-level terminate policy.
type RunTerminated struct {
	BaseEvent

	TerminateStatus models.TerminateStatus `json:"terminate_status"`
}

func (e RunTerminated) GetType() EventType {
	return RunTerminatedEvent
}

// StepActivated carries everything a timer collaborator needs to schedule
// reminder, overdue and escalation timers for the activated step.
type StepActivated struct {
	BaseEvent

	StepExecutionID string          `json:"step_execution_id"`
	StepID          string          `json:"step_id"`
	StepType        models.StepType `json:"step_type"`
	Due             *models.DueSpec `json:"due,omitempty"`
	RunDueAt        *time.Time      `json:"run_due_at,omitempty"`
	ParallelGroupID string          `json:"parallel_group_id,omitempty"`
}

func (e StepActivated) GetType() EventType {
	return StepActivatedEvent
}

type StepCompleted struct {
	BaseEvent

	StepExecutionID string         `json:"step_execution_id"`
	StepID          string         `json:"step_id"`
	ResultData      map[string]any `json:"result_data,omitempty"`
	CompletedAt     time.Time      `json:"completed_at"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	StepExecutionID string `json:"step_execution_id"`
	StepID          string `json:"step_id"`
	Error           string `json:"error"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}
