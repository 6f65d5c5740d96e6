// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/voyflow/voyflow/pkg/models"
)

// CreateTestStep creates a test Step with default values that can be overridden.
func CreateTestStep(overrides ...func(*models.Step)) *models.Step {
	step := &models.Step{
		ID:     uuid.New().String(),
		Type:   models.StepTypeTodo,
		Name:   "Test Step",
		Config: map[string]any{"instructions": "do the thing"},
		Assignees: []models.Assignee{
			{Kind: models.AssigneeKindUser, ID: "user-1"},
		},
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithID sets the step ID.
func WithID(id string) func(*models.Step) {
	return func(s *models.Step) {
		s.ID = id
	}
}

// WithType sets the step type.
func WithType(stepType models.StepType) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = stepType
	}
}

// WithName sets the step name.
func WithName(name string) func(*models.Step) {
	return func(s *models.Step) {
		s.Name = name
	}
}

// WithConfig sets the step configuration.
func WithConfig(config map[string]any) func(*models.Step) {
	return func(s *models.Step) {
		s.Config = config
	}
}

// WithMilestone assigns the step to a milestone.
func WithMilestone(milestoneID string) func(*models.Step) {
	return func(s *models.Step) {
		s.MilestoneID = milestoneID
	}
}

// WithAssignees sets the step assignees.
func WithAssignees(assignees ...models.Assignee) func(*models.Step) {
	return func(s *models.Step) {
		s.Assignees = assignees
	}
}

// WithCompletionMode sets the group completion mode.
func WithCompletionMode(mode models.CompletionMode) func(*models.Step) {
	return func(s *models.Step) {
		s.CompletionMode = mode
	}
}

// WithDue sets the due specification.
func WithDue(due models.DueSpec) func(*models.Step) {
	return func(s *models.Step) {
		s.Due = &due
	}
}

// WithReview enables a review gate on the step.
func WithReview(criteria string) func(*models.Step) {
	return func(s *models.Step) {
		s.Review = &models.ReviewGate{Enabled: true, Criteria: criteria}
	}
}

// WithAutoExecute marks the step for automatic execution.
func WithAutoExecute() func(*models.Step) {
	return func(s *models.Step) {
		s.AutoExecute = true
	}
}

// WithPaths configures the step as a branch with the given paths.
func WithPaths(paths ...*models.BranchPath) func(*models.Step) {
	return func(s *models.Step) {
		s.Paths = paths
	}
}

// WithOutcomes configures the step as a decision with the given outcomes.
func WithOutcomes(outcomes ...*models.DecisionOutcome) func(*models.Step) {
	return func(s *models.Step) {
		s.Outcomes = outcomes
	}
}

// GotoStep creates a GOTO step targeting the given main-path step.
func GotoStep(id, targetID string) *models.Step {
	return &models.Step{
		ID:           id,
		Type:         models.StepTypeGoto,
		GotoTargetID: targetID,
	}
}

// TerminateStep creates a TERMINATE step with the given run annotation.
func TerminateStep(id string, status models.TerminateStatus) *models.Step {
	return &models.Step{
		ID:              id,
		Type:            models.StepTypeTerminate,
		TerminateStatus: status,
	}
}

// Path creates a branch path with a simple condition and the given steps.
func Path(pathID, expression string, steps ...*models.Step) *models.BranchPath {
	return &models.BranchPath{
		PathID:    pathID,
		Condition: models.Condition{Language: "simple", Expression: expression},
		Steps:     steps,
	}
}

// Outcome creates a decision outcome with the given steps.
func Outcome(outcomeID, label string, steps ...*models.Step) *models.DecisionOutcome {
	return &models.DecisionOutcome{
		OutcomeID: outcomeID,
		Label:     label,
		Steps:     steps,
	}
}

// CreateTestFlow creates a published test flow with no steps.
func CreateTestFlow(overrides ...func(*models.FlowDocument)) *models.FlowDocument {
	flow := &models.FlowDocument{
		ID:          uuid.New().String(),
		Name:        "Test Flow",
		Description: "A flow for testing",
		Status:      models.FlowStatusPublished,
		Owner:       "test-user",
		Steps:       []*models.Step{},
	}

	for _, override := range overrides {
		override(flow)
	}

	return flow
}

// WithSteps sets the flow's main-path steps.
func WithSteps(steps ...*models.Step) func(*models.FlowDocument) {
	return func(f *models.FlowDocument) {
		f.Steps = steps
	}
}

// WithMilestones sets the flow's milestones.
func WithMilestones(milestones ...*models.Milestone) func(*models.FlowDocument) {
	return func(f *models.FlowDocument) {
		f.Milestones = milestones
	}
}

// CreateTestFlowWithSteps creates a test flow with three sequential TODO steps
// named step-1 through step-3.
func CreateTestFlowWithSteps() *models.FlowDocument {
	return CreateTestFlow(WithSteps(
		CreateTestStep(WithID("step-1"), WithName("First")),
		CreateTestStep(WithID("step-2"), WithName("Second")),
		CreateTestStep(WithID("step-3"), WithName("Third")),
	))
}
