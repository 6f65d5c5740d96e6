package execution

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/voyflow/voyflow/pkg/conditions"
	"github.com/voyflow/voyflow/pkg/config"
	"github.com/voyflow/voyflow/pkg/models"
)

// target is one step due for activation, tagged with the parallel group it
// belongs to (empty outside fan-out).
type target struct {
	step            *models.Step
	parallelGroupID string
}

// nextResult is the outcome of the next-step walk for one completion.
type nextResult struct {
	targets []target
	// flowDone is set when the main path is exhausted with no enclosing
	// scope left to return to.
	flowDone bool
	// terminate carries the status annotation of a TERMINATE step crossed
	// during the walk; runEnded is set when the terminate policy ends the
	// whole run.
	terminate models.TerminateStatus
	runEnded  bool
}

// walker computes the next step(s) after one completion. It is rebuilt per
// advancement call; visited guards GOTO resolution against pure control
// cycles.
type walker struct {
	flow    *models.FlowDocument
	state   *RunState
	cfg     config.EngineConfig
	visited map[string]bool
	// fanningOut holds the group ids whose fan-out loop is still entering
	// paths, keeping the join barrier closed for them.
	fanningOut map[string]bool
	result     nextResult
}

func newWalker(flow *models.FlowDocument, state *RunState, cfg config.EngineConfig) *walker {
	return &walker{
		flow:       flow,
		state:      state,
		cfg:        cfg,
		visited:    make(map[string]bool),
		fanningOut: make(map[string]bool),
	}
}

// computeNext walks the taxonomy node of the just-completed step and
// resolves the next step(s) to activate.
func (w *walker) computeNext(step *models.Step, groupID string, resultData map[string]any) (nextResult, error) {
	var err error

	switch step.Type {
	case models.StepTypeSingleChoiceBranch:
		err = w.routeSingleChoice(step, groupID, resultData)
	case models.StepTypeMultiChoiceBranch:
		err = w.routeMultiChoice(step, groupID, resultData)
	case models.StepTypeParallelBranch:
		err = w.routeParallel(step, groupID)
	case models.StepTypeDecision:
		err = w.routeDecision(step, groupID, resultData)
	case models.StepTypeGoto:
		err = w.jump(step)
	case models.StepTypeTerminate:
		err = w.terminate(step, groupID)
	default:
		// Leaf steps and GOTO_DESTINATION markers: next in the same scope.
		err = w.afterStep(step, groupID)
	}

	return w.result, err
}

// routeSingleChoice picks the first path whose condition matches.
func (w *walker) routeSingleChoice(step *models.Step, groupID string, resultData map[string]any) error {
	for _, path := range step.Paths {
		matched, err := conditions.Evaluate(path.Condition, resultData)
		if err != nil {
			return fmt.Errorf("evaluating condition of path %s: %w", path.PathID, err)
		}

		if matched {
			return w.enterPath(step, path, groupID)
		}
	}

	// No path matched: control continues after the branch step.
	return w.afterStep(step, groupID)
}

func (w *walker) routeMultiChoice(step *models.Step, groupID string, resultData map[string]any) error {
	if w.cfg.MultiChoice == config.MultiChoiceFirstMatch {
		return w.routeSingleChoice(step, groupID, resultData)
	}

	matched := make([]*models.BranchPath, 0, len(step.Paths))

	for _, path := range step.Paths {
		ok, err := conditions.Evaluate(path.Condition, resultData)
		if err != nil {
			return fmt.Errorf("evaluating condition of path %s: %w", path.PathID, err)
		}

		if ok {
			matched = append(matched, path)
		}
	}

	return w.fanOut(step, matched, groupID)
}

func (w *walker) routeParallel(step *models.Step, groupID string) error {
	return w.fanOut(step, step.Paths, groupID)
}

// fanOut enters every chosen path under a shared parallel group id, so the
// scope-return logic can hold the join barrier until all of them settle.
func (w *walker) fanOut(step *models.Step, paths []*models.BranchPath, groupID string) error {
	if len(paths) == 0 {
		return w.afterStep(step, groupID)
	}

	if len(paths) == 1 {
		return w.enterPath(step, paths[0], groupID)
	}

	gid := uuid.New().String()

	// Barrier stays closed while sibling paths are still being entered, so
	// a path that exhausts immediately (TERMINATE, GOTO out) cannot release
	// the join ahead of paths not yet resolved.
	w.fanningOut[gid] = true

	for _, path := range paths {
		if len(path.Steps) == 0 {
			continue
		}

		if err := w.resolve(path.Steps[0], gid); err != nil {
			return err
		}
	}

	delete(w.fanningOut, gid)

	if w.groupSettled(gid) {
		// Every chosen path exhausted without activating anything; there is
		// no join to wait on.
		return w.afterStep(step, groupID)
	}

	return nil
}

func (w *walker) enterPath(step *models.Step, path *models.BranchPath, groupID string) error {
	if len(path.Steps) == 0 {
		return w.afterStep(step, groupID)
	}

	return w.resolve(path.Steps[0], groupID)
}

// routeDecision activates the single outcome matching the submitted
// decision; the other outcomes' steps are never instantiated.
func (w *walker) routeDecision(step *models.Step, groupID string, resultData map[string]any) error {
	chosen, _ := resultData["outcome"].(string)

	outcome := step.Outcome(chosen)
	if outcome == nil {
		return fmt.Errorf("%w: decision %s, submitted %q", ErrOutcomeNotMatched, step.ID, chosen)
	}

	if len(outcome.Steps) == 0 {
		return w.afterStep(step, groupID)
	}

	return w.resolve(outcome.Steps[0], groupID)
}

// jump follows a GOTO to its main-path destination. The destination can sit
// before the current step; backwards movement is expected.
func (w *walker) jump(step *models.Step) error {
	dest, idx := w.flow.MainPathStep(step.GotoTargetID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrGotoTargetNotFound, step.GotoTargetID)
	}

	// A jump lands on the main path, outside any parallel group.
	return w.resolve(dest, "")
}

// terminate applies the TERMINATE step's policy: annotate the run and either
// end it or exhaust just the enclosing scope.
func (w *walker) terminate(step *models.Step, groupID string) error {
	w.result.terminate = step.TerminateStatus

	if w.cfg.Terminate == config.TerminateRun {
		w.result.runEnded = true
		w.result.targets = nil

		return nil
	}

	// Scope policy: the branch returns immediately, carrying the status as
	// an annotation only. The terminated path keeps its group id, so it
	// settles into the join barrier instead of bypassing it.
	return w.climbFrom(step, groupID)
}

// resolve activates a step, or resolves through it when it is a pure
// control step that holds no work of its own.
func (w *walker) resolve(step *models.Step, groupID string) error {
	switch step.Type {
	case models.StepTypeGoto, models.StepTypeTerminate, models.StepTypeGotoDestination:
		if w.visited[step.ID] {
			return fmt.Errorf("%w: at step %s", ErrControlCycle, step.ID)
		}

		w.visited[step.ID] = true
	}

	switch step.Type {
	case models.StepTypeGoto:
		return w.jump(step)
	case models.StepTypeTerminate:
		return w.terminate(step, groupID)
	case models.StepTypeGotoDestination:
		// Addressable no-op: control passes straight through the marker.
		return w.afterStep(step, groupID)
	default:
		w.result.targets = append(w.result.targets, target{step: step, parallelGroupID: groupID})

		return nil
	}
}

// afterStep resolves the step immediately following the given one in its
// scope, returning to the enclosing scope when the sequence is exhausted.
func (w *walker) afterStep(step *models.Step, groupID string) error {
	chain := w.flow.ScopeChain(step.ID)
	if chain == nil {
		return fmt.Errorf("step %s is not in the flow tree", step.ID)
	}

	sc := chain[len(chain)-1]

	idx := sc.IndexOf(step.ID)
	if idx+1 < len(sc.Steps) {
		return w.resolve(sc.Steps[idx+1], groupID)
	}

	if sc.IsMainPath() {
		w.result.flowDone = len(w.result.targets) == 0

		return nil
	}

	return w.climbReturn(sc.Container, groupID)
}

// climbFrom exhausts the scope containing the step without visiting its
// successors. Used by TERMINATE under the scope policy.
func (w *walker) climbFrom(step *models.Step, groupID string) error {
	chain := w.flow.ScopeChain(step.ID)
	if chain == nil {
		return fmt.Errorf("step %s is not in the flow tree", step.ID)
	}

	sc := chain[len(chain)-1]
	if sc.IsMainPath() {
		// TERMINATE is invalid on the main path; the validator rejects it
		// at authoring time. Degrade to ending the run.
		w.result.runEnded = true

		return nil
	}

	return w.climbReturn(sc.Container, groupID)
}

// climbReturn hands control back to the step after the enclosing container.
// When the exhausted path belongs to a parallel group and the container is
// the one that fanned it out, the return is held until every execution in
// the group settled (the join barrier).
func (w *walker) climbReturn(container *models.Step, groupID string) error {
	// The container's own group differs from the walk's when the container
	// created the group; only that crossing is a join point. Returning
	// through a nested container running under the same group stays inside
	// the path.
	containerGID := w.containerGroupID(container)

	if groupID != "" && groupID != containerGID && !w.groupSettled(groupID) {
		// Other paths of the group are still running; nothing to activate
		// from this side of the join.
		return nil
	}

	// Control returning through a container inherits the group the
	// container itself was activated under, so nested fan-outs join
	// outward correctly.
	return w.afterStep(container, containerGID)
}

// groupSettled reports whether the join barrier for the group can release:
// its fan-out finished entering paths, this walk holds no pending activation
// under the group, and every recorded execution reached a terminal status.
func (w *walker) groupSettled(groupID string) bool {
	if w.fanningOut[groupID] {
		return false
	}

	for _, t := range w.result.targets {
		if t.parallelGroupID == groupID {
			return false
		}
	}

	return w.state.GroupSettled(groupID)
}

func (w *walker) containerGroupID(container *models.Step) string {
	execs := w.state.ExecutionsForStep(container.ID)
	if len(execs) == 0 {
		return ""
	}

	return execs[len(execs)-1].ParallelGroupID
}

// mainPathIndex locates the step's position on the main path; nested steps
// inherit the index of their outermost container.
func mainPathIndex(flow *models.FlowDocument, stepID string) int {
	chain := flow.ScopeChain(stepID)
	if chain == nil {
		return -1
	}

	if len(chain) == 1 {
		return chain[0].IndexOf(stepID)
	}

	_, idx := flow.MainPathStep(chain[1].Container.ID)

	return idx
}
