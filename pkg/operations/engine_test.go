package operations

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyflow/voyflow/pkg/models"
	"github.com/voyflow/voyflow/pkg/testutil"
)

func newTestEngine() *Engine {
	return NewEngine(slog.Default())
}

func strPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

func mainPathIDs(flow *models.FlowDocument) []string {
	ids := make([]string, 0, len(flow.Steps))
	for _, s := range flow.Steps {
		ids = append(ids, s.ID)
	}

	return ids
}

// Main path step operations

func TestApply_AddStepAfter(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddStepAfter,
		AfterStepID: strPtr("step-1"),
		Step:        testutil.CreateTestStep(testutil.WithID("step-new")),
	}})

	require.True(t, result.Success)
	require.NotNil(t, result.FinalFlow)
	assert.Equal(t, []string{"step-1", "step-new", "step-2", "step-3"}, mainPathIDs(result.FinalFlow))
}

func TestApply_AddStepAfter_NilAfterIDPrepends(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type: OpAddStepAfter,
		Step: testutil.CreateTestStep(testutil.WithID("step-first")),
	}})

	require.True(t, result.Success)
	assert.Equal(t, []string{"step-first", "step-1", "step-2", "step-3"}, mainPathIDs(result.FinalFlow))
}

func TestApply_AddStepAfter_DuplicateIDRejected(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddStepAfter,
		AfterStepID: strPtr("step-1"),
		Step:        testutil.CreateTestStep(testutil.WithID("step-2")),
	}})

	require.False(t, result.Success)
	assert.Nil(t, result.FinalFlow)
	assert.Contains(t, result.Results[0].Error, "duplicate step id")
}

func TestApply_RemoveStep(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:   OpRemoveStep,
		StepID: "step-2",
	}})

	require.True(t, result.Success)
	assert.Equal(t, []string{"step-1", "step-3"}, mainPathIDs(result.FinalFlow))
}

func TestApply_UpdateStep_MergesConfigShallow(t *testing.T) {
	flow := testutil.CreateTestFlow(testutil.WithSteps(
		testutil.CreateTestStep(
			testutil.WithID("step-1"),
			testutil.WithConfig(map[string]any{"keep": "old", "replace": "old"}),
		),
	))
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:   OpUpdateStep,
		StepID: "step-1",
		Name:   strPtr("Renamed"),
		Config: map[string]any{"replace": "new", "added": true},
	}})

	require.True(t, result.Success)

	updated := result.FinalFlow.FindStep("step-1")
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "old", updated.Config["keep"])
	assert.Equal(t, "new", updated.Config["replace"])
	assert.Equal(t, true, updated.Config["added"])
}

func TestApply_MoveStepAfter(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpMoveStepAfter,
		StepID:      "step-1",
		AfterStepID: strPtr("step-3"),
	}})

	require.True(t, result.Success)
	assert.Equal(t, []string{"step-2", "step-3", "step-1"}, mainPathIDs(result.FinalFlow))
}

func TestApply_MoveStepAfterItselfRejected(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpMoveStepAfter,
		StepID:      "step-2",
		AfterStepID: strPtr("step-2"),
	}})

	assert.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "invalid move")

	// The failure reports its own cause, not a missing step.
	_, err := moveAfter(flow.Steps, "step-2", strPtr("step-2"))
	require.ErrorIs(t, err, ErrInvalidMove)
	assert.NotErrorIs(t, err, ErrStepNotFound)
}

// Atomicity

func TestApply_FailedBatchLeavesOriginalUntouched(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	before := flow.StepIDs()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{
		{Type: OpRemoveStep, StepID: "step-1"},
		{Type: OpRemoveStep, StepID: "missing"},
	})

	require.False(t, result.Success)
	assert.Nil(t, result.FinalFlow)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.Contains(t, result.Results[1].Error, "step not found")

	// The caller's document still has all three steps.
	assert.Equal(t, before, flow.StepIDs())
}

func TestApply_SuccessfulBatchLeavesOriginalUntouched(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{
		{Type: OpRemoveStep, StepID: "step-1"},
	})

	require.True(t, result.Success)
	assert.Equal(t, []string{"step-1", "step-2", "step-3"}, mainPathIDs(flow))
	assert.Equal(t, []string{"step-2", "step-3"}, mainPathIDs(result.FinalFlow))
}

func TestApply_StepIDsStayUniqueAcrossBatch(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{
		{Type: OpAddStepAfter, AfterStepID: strPtr("step-3"), Step: testutil.CreateTestStep(testutil.WithID("step-4"))},
		{Type: OpAddStepAfter, AfterStepID: strPtr("step-4"), Step: testutil.CreateTestStep(testutil.WithID("step-4"))},
	})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[1].Error, "duplicate step id")
}

func TestApply_UnknownOperationRejected(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{Type: "EXPLODE"}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "unknown operation type")
}

// Branch path operations

func branchFlow() *models.FlowDocument {
	return testutil.CreateTestFlow(testutil.WithSteps(
		testutil.CreateTestStep(
			testutil.WithID("branch-1"),
			testutil.WithType(models.StepTypeSingleChoiceBranch),
			testutil.WithPaths(
				testutil.Path("path-a", "true",
					testutil.CreateTestStep(testutil.WithID("a-1")),
					testutil.CreateTestStep(testutil.WithID("a-2")),
				),
				testutil.Path("path-b", "false",
					testutil.CreateTestStep(testutil.WithID("b-1")),
				),
			),
		),
		testutil.CreateTestStep(testutil.WithID("step-after")),
	))
}

func TestApply_AddPathStepAfter(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddPathStepAfter,
		OwnerStepID: "branch-1",
		PathID:      "path-a",
		AfterStepID: strPtr("a-1"),
		Step:        testutil.CreateTestStep(testutil.WithID("a-new")),
	}})

	require.True(t, result.Success)

	path := result.FinalFlow.FindStep("branch-1").Path("path-a")
	require.Len(t, path.Steps, 3)
	assert.Equal(t, "a-new", path.Steps[1].ID)
}

func TestApply_AddPathStepAfter_NilAfterIDPrepends(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddPathStepAfter,
		OwnerStepID: "branch-1",
		PathID:      "path-b",
		Step:        testutil.CreateTestStep(testutil.WithID("b-0")),
	}})

	require.True(t, result.Success)

	path := result.FinalFlow.FindStep("branch-1").Path("path-b")
	assert.Equal(t, "b-0", path.Steps[0].ID)
}

func TestApply_PathStepRoundTrip(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{
		{
			Type:        OpAddPathStepAfter,
			OwnerStepID: "branch-1",
			PathID:      "path-a",
			AfterStepID: strPtr("a-2"),
			Step:        testutil.CreateTestStep(testutil.WithID("a-3")),
		},
		{
			Type:        OpRemovePathStep,
			OwnerStepID: "branch-1",
			PathID:      "path-a",
			StepID:      "a-3",
		},
	})

	require.True(t, result.Success)

	path := result.FinalFlow.FindStep("branch-1").Path("path-a")
	assert.Len(t, path.Steps, 2)
	assert.Equal(t, flow.StepIDs(), result.FinalFlow.StepIDs())
}

func TestApply_PathStepOp_UnknownOwnerRejected(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddPathStepAfter,
		OwnerStepID: "step-after", // not a branch step
		PathID:      "path-a",
		Step:        testutil.CreateTestStep(),
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "branch step not found")
}

func TestApply_AddBranchPath(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddBranchPath,
		OwnerStepID: "branch-1",
		Path:        testutil.Path("path-c", "true", testutil.CreateTestStep(testutil.WithID("c-1"))),
	}})

	require.True(t, result.Success)
	assert.Len(t, result.FinalFlow.FindStep("branch-1").Paths, 3)
	assert.True(t, result.FinalFlow.HasStep("c-1"))
}

func TestApply_AddBranchPath_DuplicatePathIDRejected(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddBranchPath,
		OwnerStepID: "branch-1",
		Path:        testutil.Path("path-a", "true"),
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "duplicate path id")
}

func TestApply_RemoveBranchPath(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpRemoveBranchPath,
		OwnerStepID: "branch-1",
		PathID:      "path-b",
	}})

	require.True(t, result.Success)
	assert.Nil(t, result.FinalFlow.FindStep("branch-1").Path("path-b"))
	assert.False(t, result.FinalFlow.HasStep("b-1"))
}

func TestApply_UpdatePathCondition(t *testing.T) {
	flow := branchFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpUpdatePathCondition,
		OwnerStepID: "branch-1",
		PathID:      "path-b",
		Condition:   &models.Condition{Language: "jsonpath", Expression: "amount > 100"},
	}})

	require.True(t, result.Success)

	path := result.FinalFlow.FindStep("branch-1").Path("path-b")
	assert.Equal(t, "jsonpath", path.Condition.Language)
	assert.Equal(t, "amount > 100", path.Condition.Expression)
}

// Decision outcome operations

func decisionFlow() *models.FlowDocument {
	return testutil.CreateTestFlow(testutil.WithSteps(
		testutil.CreateTestStep(
			testutil.WithID("decision-1"),
			testutil.WithType(models.StepTypeDecision),
			testutil.WithOutcomes(
				testutil.Outcome("approve", "Approve", testutil.CreateTestStep(testutil.WithID("ap-1"))),
				testutil.Outcome("reject", "Reject"),
			),
		),
	))
}

func TestApply_AddDecisionOutcome(t *testing.T) {
	flow := decisionFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAddDecisionOutcome,
		OwnerStepID: "decision-1",
		Outcome:     testutil.Outcome("escalate", "Escalate", testutil.CreateTestStep(testutil.WithID("es-1"))),
	}})

	require.True(t, result.Success)
	assert.Len(t, result.FinalFlow.FindStep("decision-1").Outcomes, 3)
	assert.True(t, result.FinalFlow.HasStep("es-1"))
}

func TestApply_RemoveDecisionOutcome(t *testing.T) {
	flow := decisionFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpRemoveDecisionOutcome,
		OwnerStepID: "decision-1",
		OutcomeID:   "approve",
	}})

	require.True(t, result.Success)
	assert.Nil(t, result.FinalFlow.FindStep("decision-1").Outcome("approve"))
	assert.False(t, result.FinalFlow.HasStep("ap-1"))
}

func TestApply_UpdateOutcomeLabel(t *testing.T) {
	flow := decisionFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpUpdateOutcomeLabel,
		OwnerStepID: "decision-1",
		OutcomeID:   "reject",
		Label:       strPtr("Decline"),
	}})

	require.True(t, result.Success)
	assert.Equal(t, "Decline", result.FinalFlow.FindStep("decision-1").Outcome("reject").Label)
}

func TestApply_OutcomeStepOps(t *testing.T) {
	flow := decisionFlow()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{
		{
			Type:        OpAddOutcomeStepAfter,
			OwnerStepID: "decision-1",
			OutcomeID:   "approve",
			AfterStepID: strPtr("ap-1"),
			Step:        testutil.CreateTestStep(testutil.WithID("ap-2")),
		},
		{
			Type:        OpMoveOutcomeStepAfter,
			OwnerStepID: "decision-1",
			OutcomeID:   "approve",
			StepID:      "ap-2",
		},
		{
			Type:        OpUpdateOutcomeStep,
			OwnerStepID: "decision-1",
			OutcomeID:   "approve",
			StepID:      "ap-1",
			Name:        strPtr("Renamed"),
		},
	})

	require.True(t, result.Success)

	outcome := result.FinalFlow.FindStep("decision-1").Outcome("approve")
	require.Len(t, outcome.Steps, 2)
	assert.Equal(t, "ap-2", outcome.Steps[0].ID)
	assert.Equal(t, "Renamed", outcome.Steps[1].Name)
}

// Type-narrowing updates

func TestApply_UpdateTerminateStatus(t *testing.T) {
	flow := testutil.CreateTestFlow(testutil.WithSteps(
		testutil.CreateTestStep(
			testutil.WithID("branch-1"),
			testutil.WithType(models.StepTypeSingleChoiceBranch),
			testutil.WithPaths(testutil.Path("path-a", "true",
				testutil.TerminateStep("term-1", models.TerminateStatusCancelled),
			)),
		),
	))
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:            OpUpdateTerminateStatus,
		StepID:          "term-1",
		TerminateStatus: models.TerminateStatusRejected,
	}})

	require.True(t, result.Success)
	assert.Equal(t, models.TerminateStatusRejected, result.FinalFlow.FindStep("term-1").TerminateStatus)
}

func TestApply_UpdateTerminateStatus_WrongTypeRejected(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:            OpUpdateTerminateStatus,
		StepID:          "step-1",
		TerminateStatus: models.TerminateStatusCompleted,
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "not a TERMINATE step")
}

func TestApply_UpdateGotoTarget(t *testing.T) {
	flow := testutil.CreateTestFlow(testutil.WithSteps(
		testutil.CreateTestStep(testutil.WithID("step-1")),
		testutil.CreateTestStep(
			testutil.WithID("branch-1"),
			testutil.WithType(models.StepTypeSingleChoiceBranch),
			testutil.WithPaths(testutil.Path("path-a", "true",
				testutil.GotoStep("goto-1", "step-1"),
			)),
		),
		testutil.CreateTestStep(testutil.WithID("step-2")),
	))
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:         OpUpdateGotoTarget,
		StepID:       "goto-1",
		GotoTargetID: "step-2",
	}})

	require.True(t, result.Success)
	assert.Equal(t, "step-2", result.FinalFlow.FindStep("goto-1").GotoTargetID)
}

func TestApply_UpdateGotoTarget_WrongTypeRejected(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:         OpUpdateGotoTarget,
		StepID:       "step-1",
		GotoTargetID: "step-2",
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "not a GOTO step")
}

// Milestone operations

func TestApply_AddMilestone_KeepsSequenceOrder(t *testing.T) {
	flow := testutil.CreateTestFlow(testutil.WithMilestones(
		&models.Milestone{ID: "m-1", Name: "Kickoff", Sequence: 10},
		&models.Milestone{ID: "m-3", Name: "Closing", Sequence: 30},
	))
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:      OpAddMilestone,
		Milestone: &models.Milestone{ID: "m-2", Name: "Diligence", Sequence: 20},
	}})

	require.True(t, result.Success)
	require.Len(t, result.FinalFlow.Milestones, 3)
	assert.Equal(t, "m-1", result.FinalFlow.Milestones[0].ID)
	assert.Equal(t, "m-2", result.FinalFlow.Milestones[1].ID)
	assert.Equal(t, "m-3", result.FinalFlow.Milestones[2].ID)
}

func TestApply_AddMilestone_DuplicateRejected(t *testing.T) {
	flow := testutil.CreateTestFlow(testutil.WithMilestones(
		&models.Milestone{ID: "m-1", Name: "Kickoff", Sequence: 10},
	))
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:      OpAddMilestone,
		Milestone: &models.Milestone{ID: "m-1", Name: "Again", Sequence: 20},
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "duplicate milestone id")
}

func TestApply_RemoveMilestone_InUseRejected(t *testing.T) {
	flow := testutil.CreateTestFlow(
		testutil.WithMilestones(&models.Milestone{ID: "m-1", Name: "Kickoff", Sequence: 10}),
		testutil.WithSteps(testutil.CreateTestStep(testutil.WithID("step-1"), testutil.WithMilestone("m-1"))),
	)
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpRemoveMilestone,
		MilestoneID: "m-1",
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "still referenced")
}

func TestApply_RemoveMilestone_AfterUnassign(t *testing.T) {
	flow := testutil.CreateTestFlow(
		testutil.WithMilestones(&models.Milestone{ID: "m-1", Name: "Kickoff", Sequence: 10}),
		testutil.WithSteps(testutil.CreateTestStep(testutil.WithID("step-1"), testutil.WithMilestone("m-1"))),
	)
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{
		{Type: OpAssignStepMilestone, StepID: "step-1", MilestoneID: ""},
		{Type: OpRemoveMilestone, MilestoneID: "m-1"},
	})

	require.True(t, result.Success)
	assert.Empty(t, result.FinalFlow.Milestones)
	assert.Empty(t, result.FinalFlow.FindStep("step-1").MilestoneID)
}

func TestApply_UpdateMilestone_ResortsOnSequenceChange(t *testing.T) {
	flow := testutil.CreateTestFlow(testutil.WithMilestones(
		&models.Milestone{ID: "m-1", Name: "Kickoff", Sequence: 10},
		&models.Milestone{ID: "m-2", Name: "Diligence", Sequence: 20},
	))
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpUpdateMilestone,
		MilestoneID: "m-1",
		Sequence:    intPtr(30),
	}})

	require.True(t, result.Success)
	assert.Equal(t, "m-2", result.FinalFlow.Milestones[0].ID)
	assert.Equal(t, "m-1", result.FinalFlow.Milestones[1].ID)
}

func TestApply_AssignStepMilestone(t *testing.T) {
	flow := testutil.CreateTestFlow(
		testutil.WithMilestones(&models.Milestone{ID: "m-1", Name: "Kickoff", Sequence: 10}),
		testutil.WithSteps(testutil.CreateTestStep(testutil.WithID("step-1"))),
	)
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAssignStepMilestone,
		StepID:      "step-1",
		MilestoneID: "m-1",
	}})

	require.True(t, result.Success)
	assert.Equal(t, "m-1", result.FinalFlow.FindStep("step-1").MilestoneID)
}

func TestApply_AssignStepMilestone_UnknownMilestoneRejected(t *testing.T) {
	flow := testutil.CreateTestFlow(
		testutil.WithSteps(testutil.CreateTestStep(testutil.WithID("step-1"))),
	)
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type:        OpAssignStepMilestone,
		StepID:      "step-1",
		MilestoneID: "missing",
	}})

	require.False(t, result.Success)
	assert.Contains(t, result.Results[0].Error, "milestone not found")
}

func TestApply_UpdateFlowName(t *testing.T) {
	flow := testutil.CreateTestFlowWithSteps()
	engine := newTestEngine()

	result := engine.Apply(flow, []Operation{{
		Type: OpUpdateFlowName,
		Name: strPtr("Onboarding v2"),
	}})

	require.True(t, result.Success)
	assert.Equal(t, "Onboarding v2", result.FinalFlow.Name)
	assert.NotEqual(t, "Onboarding v2", flow.Name)
}
