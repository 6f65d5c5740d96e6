package models

import "time"

// ExecutionStatus defines the possible states of a step execution.
// WAITING_FOR_ASSIGNEE is the in-progress sub-state of a group-assigned
// step whose completion threshold has not been met yet.
type ExecutionStatus string

const (
	ExecutionStatusPending            ExecutionStatus = "PENDING"
	ExecutionStatusInProgress         ExecutionStatus = "IN_PROGRESS"
	ExecutionStatusWaitingForAssignee ExecutionStatus = "WAITING_FOR_ASSIGNEE"
	ExecutionStatusCompleted          ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed             ExecutionStatus = "FAILED"
	ExecutionStatusCancelled          ExecutionStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transition.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the step instance is awaiting an action.
func (s ExecutionStatus) IsActive() bool {
	return s == ExecutionStatusInProgress || s == ExecutionStatusWaitingForAssignee
}

// StepExecution tracks one step instance's progress within a specific run.
// The advancement engine is the only writer of Status, ResultData and the
// timestamps; everything else only reads these records.
type StepExecution struct {
	ID                string          `json:"id"      validate:"required"`
	RunID             string          `json:"run_id"  validate:"required"`
	StepID            string          `json:"step_id" validate:"required"`
	StepIndex         int             `json:"step_index"`
	Status            ExecutionStatus `json:"status"`
	Assignee          *Assignee       `json:"assignee,omitempty"`
	ResultData        map[string]any  `json:"result_data,omitempty"`
	DueAt             *time.Time      `json:"due_at,omitempty"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	EscalatedAt       *time.Time      `json:"escalated_at,omitempty"`
	ParallelGroupID   string          `json:"parallel_group_id,omitempty"`
	IsGroupAssignment bool            `json:"is_group_assignment,omitempty"`
}

// RunStatus represents the lifecycle state of a flow run.
type RunStatus string

const (
	RunStatusActive     RunStatus = "ACTIVE"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusTerminated RunStatus = "TERMINATED"
	RunStatusFailed     RunStatus = "FAILED"
)

// FlowRun is one execution of a published flow document.
type FlowRun struct {
	ID               string          `json:"id"      validate:"required"`
	FlowID           string          `json:"flow_id" validate:"required"`
	Status           RunStatus       `json:"status"`
	CurrentStepIndex int             `json:"current_step_index"`
	Variables        map[string]any  `json:"variables,omitempty"`
	TerminateStatus  TerminateStatus `json:"terminate_status,omitempty"` // annotation left by a TERMINATE step
	DueAt            *time.Time      `json:"due_at,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	LastActivityAt   time.Time       `json:"last_activity_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}
