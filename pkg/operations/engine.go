package operations

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/voyflow/voyflow/pkg/models"
)

// Engine applies operation batches to flow documents. It is stateless and
// safe for concurrent use; every Apply call works on its own clone.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		logger: logger.With("module", "operation_engine"),
	}
}

// Apply evaluates the operations strictly in list order against a clone of
// flow. The first failure aborts the batch: the result carries the
// per-operation outcomes collected so far and no final flow. The caller's
// document is never touched either way.
func (e *Engine) Apply(flow *models.FlowDocument, ops []Operation) BatchResult {
	working := flow.Clone()
	results := make([]OperationResult, 0, len(ops))

	for i, op := range ops {
		err := e.applyOne(working, op)

		result := OperationResult{Index: i, Type: op.Type, Success: err == nil}
		if err != nil {
			opErr := &OperationError{Index: i, Type: op.Type, Err: err}
			result.Error = opErr.Error()
			results = append(results, result)

			e.logger.Warn("Operation batch aborted",
				"flow_id", flow.ID,
				"operation_index", i,
				"operation_type", op.Type,
				"error", err)

			return BatchResult{Success: false, Results: results}
		}

		results = append(results, result)
	}

	working.UpdatedAt = time.Now().UTC()

	e.logger.Debug("Operation batch applied",
		"flow_id", flow.ID,
		"operations", len(ops))

	return BatchResult{Success: true, Results: results, FinalFlow: working}
}

func (e *Engine) applyOne(flow *models.FlowDocument, op Operation) error {
	switch op.Type {
	case OpAddStepAfter:
		return e.addStep(flow, mainScope(flow), op)
	case OpRemoveStep:
		return e.removeStep(flow, mainScope(flow), op.StepID)
	case OpUpdateStep:
		return e.updateStep(mainScope(flow), op)
	case OpMoveStepAfter:
		return e.moveStep(flow, mainScope(flow), op)

	case OpAddPathStepAfter, OpRemovePathStep, OpUpdatePathStep, OpMovePathStepAfter:
		return e.applyPathStepOp(flow, op)
	case OpAddOutcomeStepAfter, OpRemoveOutcomeStep, OpUpdateOutcomeStep, OpMoveOutcomeStepAfter:
		return e.applyOutcomeStepOp(flow, op)

	case OpAddBranchPath:
		return e.addBranchPath(flow, op)
	case OpRemoveBranchPath:
		return e.removeBranchPath(flow, op)
	case OpUpdatePathCondition:
		return e.updatePathCondition(flow, op)

	case OpAddDecisionOutcome:
		return e.addDecisionOutcome(flow, op)
	case OpRemoveDecisionOutcome:
		return e.removeDecisionOutcome(flow, op)
	case OpUpdateOutcomeLabel:
		return e.updateOutcomeLabel(flow, op)

	case OpUpdateTerminateStatus:
		return e.updateTerminateStatus(flow, op)
	case OpUpdateGotoTarget:
		return e.updateGotoTarget(flow, op)

	case OpAddMilestone:
		return e.addMilestone(flow, op)
	case OpRemoveMilestone:
		return e.removeMilestone(flow, op)
	case OpUpdateMilestone:
		return e.updateMilestone(flow, op)
	case OpAssignStepMilestone:
		return e.assignStepMilestone(flow, op)

	case OpUpdateFlowName:
		if op.Name == nil {
			return fmt.Errorf("%w: name", ErrMissingPayload)
		}

		flow.Name = *op.Name

		return nil

	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

// mainScope is the document's top-level step sequence as a mutable scope.
func mainScope(flow *models.FlowDocument) models.Scope {
	return models.Scope{Steps: flow.Steps}
}

// Step sequence operations, shared across scopes.

func (e *Engine) addStep(flow *models.FlowDocument, sc models.Scope, op Operation) error {
	if op.Step == nil {
		return fmt.Errorf("%w: step", ErrMissingPayload)
	}

	if err := guardNewStepIDs(flow, op.Step); err != nil {
		return err
	}

	steps, err := insertAfter(sc.Steps, op.AfterStepID, op.Step)
	if err != nil {
		return err
	}

	flow.ReplaceScopeSteps(sc, steps)

	return nil
}

func (e *Engine) removeStep(flow *models.FlowDocument, sc models.Scope, stepID string) error {
	steps, _, err := removeByID(sc.Steps, stepID)
	if err != nil {
		return err
	}

	flow.ReplaceScopeSteps(sc, steps)

	return nil
}

func (e *Engine) updateStep(sc models.Scope, op Operation) error {
	idx := sc.IndexOf(op.StepID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrStepNotFound, op.StepID)
	}

	mergeStep(sc.Steps[idx], op)

	return nil
}

func (e *Engine) moveStep(flow *models.FlowDocument, sc models.Scope, op Operation) error {
	steps, err := moveAfter(sc.Steps, op.StepID, op.AfterStepID)
	if err != nil {
		return err
	}

	flow.ReplaceScopeSteps(sc, steps)

	return nil
}

// mergeStep applies a shallow field merge: listed config keys overwrite,
// everything unspecified is preserved.
func mergeStep(step *models.Step, op Operation) {
	if op.Name != nil {
		step.Name = *op.Name
	}

	if len(op.Config) == 0 {
		return
	}

	if step.Config == nil {
		step.Config = make(map[string]any, len(op.Config))
	}

	for k, v := range op.Config {
		step.Config[k] = v
	}
}

// Nested scope addressing: resolve the owning container anywhere in the
// tree first, then the named path or outcome inside it, then reuse the
// main-path primitives on that scope.

func (e *Engine) resolvePathScope(flow *models.FlowDocument, ownerID, pathID string) (models.Scope, error) {
	owner := flow.FindStep(ownerID)
	if owner == nil || !owner.IsBranch() {
		return models.Scope{}, fmt.Errorf("%w: %s", ErrBranchStepNotFound, ownerID)
	}

	path := owner.Path(pathID)
	if path == nil {
		return models.Scope{}, fmt.Errorf("%w: %s", ErrPathNotFound, pathID)
	}

	return models.Scope{Container: owner, Path: path, Steps: path.Steps}, nil
}

func (e *Engine) resolveOutcomeScope(flow *models.FlowDocument, ownerID, outcomeID string) (models.Scope, error) {
	owner := flow.FindStep(ownerID)
	if owner == nil || owner.Type != models.StepTypeDecision {
		return models.Scope{}, fmt.Errorf("%w: %s", ErrDecisionNotFound, ownerID)
	}

	outcome := owner.Outcome(outcomeID)
	if outcome == nil {
		return models.Scope{}, fmt.Errorf("%w: %s", ErrOutcomeNotFound, outcomeID)
	}

	return models.Scope{Container: owner, Outcome: outcome, Steps: outcome.Steps}, nil
}

func (e *Engine) applyPathStepOp(flow *models.FlowDocument, op Operation) error {
	sc, err := e.resolvePathScope(flow, op.OwnerStepID, op.PathID)
	if err != nil {
		return err
	}

	switch op.Type {
	case OpAddPathStepAfter:
		return e.addStep(flow, sc, op)
	case OpRemovePathStep:
		return e.removeStep(flow, sc, op.StepID)
	case OpUpdatePathStep:
		return e.updateStep(sc, op)
	default: // OpMovePathStepAfter
		return e.moveStep(flow, sc, op)
	}
}

func (e *Engine) applyOutcomeStepOp(flow *models.FlowDocument, op Operation) error {
	sc, err := e.resolveOutcomeScope(flow, op.OwnerStepID, op.OutcomeID)
	if err != nil {
		return err
	}

	switch op.Type {
	case OpAddOutcomeStepAfter:
		return e.addStep(flow, sc, op)
	case OpRemoveOutcomeStep:
		return e.removeStep(flow, sc, op.StepID)
	case OpUpdateOutcomeStep:
		return e.updateStep(sc, op)
	default: // OpMoveOutcomeStepAfter
		return e.moveStep(flow, sc, op)
	}
}

// Branch path structure.

func (e *Engine) addBranchPath(flow *models.FlowDocument, op Operation) error {
	owner := flow.FindStep(op.OwnerStepID)
	if owner == nil || !owner.IsBranch() {
		return fmt.Errorf("%w: %s", ErrBranchStepNotFound, op.OwnerStepID)
	}

	if op.Path == nil {
		return fmt.Errorf("%w: path", ErrMissingPayload)
	}

	if owner.Path(op.Path.PathID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePathID, op.Path.PathID)
	}

	if err := guardNewStepIDs(flow, op.Path.Steps...); err != nil {
		return err
	}

	owner.Paths = append(owner.Paths, op.Path)

	return nil
}

func (e *Engine) removeBranchPath(flow *models.FlowDocument, op Operation) error {
	owner := flow.FindStep(op.OwnerStepID)
	if owner == nil || !owner.IsBranch() {
		return fmt.Errorf("%w: %s", ErrBranchStepNotFound, op.OwnerStepID)
	}

	for i, p := range owner.Paths {
		if p.PathID == op.PathID {
			owner.Paths = append(owner.Paths[:i], owner.Paths[i+1:]...)

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrPathNotFound, op.PathID)
}

func (e *Engine) updatePathCondition(flow *models.FlowDocument, op Operation) error {
	sc, err := e.resolvePathScope(flow, op.OwnerStepID, op.PathID)
	if err != nil {
		return err
	}

	if op.Condition == nil {
		return fmt.Errorf("%w: condition", ErrMissingPayload)
	}

	sc.Path.Condition = *op.Condition

	return nil
}

// Decision outcomes.

func (e *Engine) addDecisionOutcome(flow *models.FlowDocument, op Operation) error {
	owner := flow.FindStep(op.OwnerStepID)
	if owner == nil || owner.Type != models.StepTypeDecision {
		return fmt.Errorf("%w: %s", ErrDecisionNotFound, op.OwnerStepID)
	}

	if op.Outcome == nil {
		return fmt.Errorf("%w: outcome", ErrMissingPayload)
	}

	if owner.Outcome(op.Outcome.OutcomeID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateOutcomeID, op.Outcome.OutcomeID)
	}

	if err := guardNewStepIDs(flow, op.Outcome.Steps...); err != nil {
		return err
	}

	owner.Outcomes = append(owner.Outcomes, op.Outcome)

	return nil
}

func (e *Engine) removeDecisionOutcome(flow *models.FlowDocument, op Operation) error {
	owner := flow.FindStep(op.OwnerStepID)
	if owner == nil || owner.Type != models.StepTypeDecision {
		return fmt.Errorf("%w: %s", ErrDecisionNotFound, op.OwnerStepID)
	}

	for i, o := range owner.Outcomes {
		if o.OutcomeID == op.OutcomeID {
			owner.Outcomes = append(owner.Outcomes[:i], owner.Outcomes[i+1:]...)

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrOutcomeNotFound, op.OutcomeID)
}

func (e *Engine) updateOutcomeLabel(flow *models.FlowDocument, op Operation) error {
	sc, err := e.resolveOutcomeScope(flow, op.OwnerStepID, op.OutcomeID)
	if err != nil {
		return err
	}

	if op.Label == nil {
		return fmt.Errorf("%w: label", ErrMissingPayload)
	}

	sc.Outcome.Label = *op.Label

	return nil
}

// Type-narrowing updates re-check the resolved step's concrete variant tag
// before touching its payload; a mismatch is a failure, not a no-op.

func (e *Engine) updateTerminateStatus(flow *models.FlowDocument, op Operation) error {
	step := flow.FindStep(op.StepID)
	if step == nil {
		return fmt.Errorf("%w: %s", ErrStepNotFound, op.StepID)
	}

	if step.Type != models.StepTypeTerminate {
		return fmt.Errorf("%w: %s", ErrNotTerminateStep, op.StepID)
	}

	step.TerminateStatus = op.TerminateStatus

	return nil
}

func (e *Engine) updateGotoTarget(flow *models.FlowDocument, op Operation) error {
	step := flow.FindStep(op.StepID)
	if step == nil {
		return fmt.Errorf("%w: %s", ErrStepNotFound, op.StepID)
	}

	if step.Type != models.StepTypeGoto {
		return fmt.Errorf("%w: %s", ErrNotGotoStep, op.StepID)
	}

	// The main-path-only rule for the target is enforced by the document
	// validator, not here.
	step.GotoTargetID = op.GotoTargetID

	return nil
}

// Milestones.

func (e *Engine) addMilestone(flow *models.FlowDocument, op Operation) error {
	if op.Milestone == nil {
		return fmt.Errorf("%w: milestone", ErrMissingPayload)
	}

	if flow.Milestone(op.Milestone.ID) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateMilestone, op.Milestone.ID)
	}

	flow.Milestones = append(flow.Milestones, op.Milestone)
	flow.SortMilestones()

	return nil
}

func (e *Engine) removeMilestone(flow *models.FlowDocument, op Operation) error {
	milestone := flow.Milestone(op.MilestoneID)
	if milestone == nil {
		return fmt.Errorf("%w: %s", ErrMilestoneNotFound, op.MilestoneID)
	}

	if flow.MilestoneInUse(op.MilestoneID) {
		return fmt.Errorf("%w: %s", ErrMilestoneInUse, op.MilestoneID)
	}

	for i, m := range flow.Milestones {
		if m.ID == op.MilestoneID {
			flow.Milestones = append(flow.Milestones[:i], flow.Milestones[i+1:]...)

			break
		}
	}

	return nil
}

func (e *Engine) updateMilestone(flow *models.FlowDocument, op Operation) error {
	milestone := flow.Milestone(op.MilestoneID)
	if milestone == nil {
		return fmt.Errorf("%w: %s", ErrMilestoneNotFound, op.MilestoneID)
	}

	if op.Name != nil {
		milestone.Name = *op.Name
	}

	if op.Sequence != nil && *op.Sequence != milestone.Sequence {
		milestone.Sequence = *op.Sequence
		flow.SortMilestones()
	}

	return nil
}

func (e *Engine) assignStepMilestone(flow *models.FlowDocument, op Operation) error {
	step, idx := flow.MainPathStep(op.StepID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrStepNotFound, op.StepID)
	}

	if op.MilestoneID != "" && flow.Milestone(op.MilestoneID) == nil {
		return fmt.Errorf("%w: %s", ErrMilestoneNotFound, op.MilestoneID)
	}

	// Empty milestone id clears the assignment.
	step.MilestoneID = op.MilestoneID

	return nil
}

// guardNewStepIDs rejects an insertion whose subtree would collide with any
// id already in the document. Checked before attachment so a failed add
// leaves nothing behind.
func guardNewStepIDs(flow *models.FlowDocument, added ...*models.Step) error {
	existing := make(map[string]struct{})

	flow.Walk(func(s *models.Step) bool {
		existing[s.ID] = struct{}{}

		return true
	})

	var dup string

	models.WalkSteps(added, func(s *models.Step) bool {
		if _, ok := existing[s.ID]; ok {
			dup = s.ID

			return false
		}

		existing[s.ID] = struct{}{}

		return true
	})

	if dup != "" {
		return fmt.Errorf("%w: %s", ErrDuplicateStepID, dup)
	}

	return nil
}
