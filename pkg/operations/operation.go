// Package operations implements the batch edit engine for flow documents:
// ordered lists of structural operations applied atomically against a
// defensive clone of the document.
package operations

import "github.com/voyflow/voyflow/pkg/models"

// OperationType discriminates the structural edit variants.
type OperationType string

const (
	// Main path.
	OpAddStepAfter  OperationType = "ADD_STEP_AFTER"
	OpRemoveStep    OperationType = "REMOVE_STEP"
	OpUpdateStep    OperationType = "UPDATE_STEP"
	OpMoveStepAfter OperationType = "MOVE_STEP_AFTER"

	// Steps inside a branch path.
	OpAddPathStepAfter  OperationType = "ADD_PATH_STEP_AFTER"
	OpRemovePathStep    OperationType = "REMOVE_PATH_STEP"
	OpUpdatePathStep    OperationType = "UPDATE_PATH_STEP"
	OpMovePathStepAfter OperationType = "MOVE_PATH_STEP_AFTER"

	// Branch paths themselves.
	OpAddBranchPath       OperationType = "ADD_BRANCH_PATH"
	OpRemoveBranchPath    OperationType = "REMOVE_BRANCH_PATH"
	OpUpdatePathCondition OperationType = "UPDATE_PATH_CONDITION"

	// Decision outcomes.
	OpAddDecisionOutcome    OperationType = "ADD_DECISION_OUTCOME"
	OpRemoveDecisionOutcome OperationType = "REMOVE_DECISION_OUTCOME"
	OpUpdateOutcomeLabel    OperationType = "UPDATE_OUTCOME_LABEL"

	// Steps inside a decision outcome.
	OpAddOutcomeStepAfter  OperationType = "ADD_OUTCOME_STEP_AFTER"
	OpRemoveOutcomeStep    OperationType = "REMOVE_OUTCOME_STEP"
	OpUpdateOutcomeStep    OperationType = "UPDATE_OUTCOME_STEP"
	OpMoveOutcomeStepAfter OperationType = "MOVE_OUTCOME_STEP_AFTER"

	// Type-narrowing payload updates.
	OpUpdateTerminateStatus OperationType = "UPDATE_TERMINATE_STATUS"
	OpUpdateGotoTarget      OperationType = "UPDATE_GOTO_TARGET"

	// Milestones.
	OpAddMilestone        OperationType = "ADD_MILESTONE"
	OpRemoveMilestone     OperationType = "REMOVE_MILESTONE"
	OpUpdateMilestone     OperationType = "UPDATE_MILESTONE"
	OpAssignStepMilestone OperationType = "ASSIGN_STEP_MILESTONE"

	// Flow metadata.
	OpUpdateFlowName OperationType = "UPDATE_FLOW_NAME"
)

// Operation is one atomic structural edit request. Which fields apply is
// determined by Type; unused fields are ignored.
type Operation struct {
	Type OperationType `json:"type" validate:"required"`

	StepID      string       `json:"step_id,omitempty"`
	AfterStepID *string      `json:"after_step_id,omitempty"` // nil means prepend
	Step        *models.Step `json:"step,omitempty"`

	// OwnerStepID addresses the branch or decision step owning the target
	// nested scope; PathID / OutcomeID select the scope inside it.
	OwnerStepID string                  `json:"owner_step_id,omitempty"`
	PathID      string                  `json:"path_id,omitempty"`
	OutcomeID   string                  `json:"outcome_id,omitempty"`
	Path        *models.BranchPath      `json:"path,omitempty"`
	Outcome     *models.DecisionOutcome `json:"outcome,omitempty"`
	Condition   *models.Condition       `json:"condition,omitempty"`
	Label       *string                 `json:"label,omitempty"`

	// Shallow merge payload for the UPDATE_*_STEP variants.
	Config map[string]any `json:"config,omitempty"`
	Name   *string        `json:"name,omitempty"`

	TerminateStatus models.TerminateStatus `json:"terminate_status,omitempty"`
	GotoTargetID    string                 `json:"goto_target_id,omitempty"`

	Milestone   *models.Milestone `json:"milestone,omitempty"`
	MilestoneID string            `json:"milestone_id,omitempty"`
	Sequence    *int              `json:"sequence,omitempty"`
}

// OperationResult reports the outcome of a single operation within a batch.
type OperationResult struct {
	Index   int           `json:"index"`
	Type    OperationType `json:"type"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
}

// BatchResult is the outcome of applying an operation batch. FinalFlow is
// only set when the whole batch succeeded; a failed batch has no effect and
// Results holds the per-operation outcomes collected up to and including
// the failing one.
type BatchResult struct {
	Success   bool                 `json:"success"`
	Results   []OperationResult    `json:"results"`
	FinalFlow *models.FlowDocument `json:"final_flow,omitempty"`
}
