package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voyflow/voyflow/pkg/config"
	"github.com/voyflow/voyflow/pkg/models"
	"github.com/voyflow/voyflow/pkg/template"
)

// CompleteRequest is one step-completion submission handed to the engine by
// an upstream task handler.
type CompleteRequest struct {
	StepExecutionID string
	ResultData      map[string]any
	// SuppressAutoExecute skips the auto-execution probe on newly activated
	// steps. Set when the call originates from the automation executor
	// itself, to avoid re-entrant loops.
	SuppressAutoExecute bool
}

// Advancement reports what a completion did. Completed is false for
// submissions the engine could not act on (missing or already settled
// executions); callers degrade gracefully on it rather than erroring.
type Advancement struct {
	Completed      bool
	RevisionNeeded bool
	FlowCompleted  bool
	NextStepIDs    []string
	// Activated holds the executions transitioned to an active status by
	// this advancement, including lazily materialized branch records.
	Activated []*models.StepExecution
}

// Advancer is the run advancement engine. It is synchronous and
// single-threaded per invocation; the caller serializes concurrent
// completions per run.
type Advancer struct {
	cfg    config.EngineConfig
	hooks  Hooks
	logger *slog.Logger
}

func NewAdvancer(cfg config.EngineConfig, hooks Hooks, logger *slog.Logger) *Advancer {
	return &Advancer{
		cfg:    cfg,
		hooks:  hooks,
		logger: logger.With("module", "advancement_engine"),
	}
}

// StartRun creates the run state for a published flow: one PENDING
// execution per main-path step, with the first step activated.
func (a *Advancer) StartRun(ctx context.Context, flow *models.FlowDocument, variables map[string]any, dueAt *time.Time) (*RunState, error) {
	now := time.Now().UTC()

	run := &models.FlowRun{
		ID:             "run-" + uuid.New().String()[:8],
		FlowID:         flow.ID,
		Status:         models.RunStatusActive,
		Variables:      variables,
		DueAt:          dueAt,
		StartedAt:      now,
		LastActivityAt: now,
	}

	state := &RunState{Run: run}

	for i, step := range flow.Steps {
		state.Add(&models.StepExecution{
			ID:        uuid.New().String(),
			RunID:     run.ID,
			StepID:    step.ID,
			StepIndex: i,
			Status:    models.ExecutionStatusPending,
		})
	}

	logger := a.logger.With("flow_id", flow.ID, "run_id", run.ID)
	logger.Info("Starting run", "main_path_steps", len(flow.Steps))

	if len(flow.Steps) == 0 {
		a.completeRun(ctx, state)

		return state, nil
	}

	// The first main-path step can itself be a control step; resolve it the
	// same way an advancement would.
	w := newWalker(flow, state, a.cfg)

	if err := w.resolve(flow.Steps[0], ""); err != nil {
		return nil, err
	}

	activated := a.applyWalkResult(ctx, flow, state, w.result, false)

	firstStepID := ""
	if len(activated) > 0 {
		firstStepID = activated[0].StepID
	}

	if a.hooks.Notifier != nil {
		if err := a.hooks.Notifier.RunStarted(ctx, run, firstStepID); err != nil {
			logger.Error("Run started notification failed", "error", err)
		}
	}

	return state, nil
}

// CompleteStepAndAdvance records a step completion and advances the run.
// The completion transition is authoritative once applied; collaborator
// failures afterwards are logged and never roll it back.
func (a *Advancer) CompleteStepAndAdvance(ctx context.Context, flow *models.FlowDocument, state *RunState, req CompleteRequest) (Advancement, error) {
	logger := a.logger.With(
		"run_id", state.Run.ID,
		"step_execution_id", req.StepExecutionID,
	)

	exec := state.ExecutionByID(req.StepExecutionID)
	if exec == nil {
		logger.Warn("Step execution not found, ignoring completion")

		return Advancement{Completed: false}, nil
	}

	if !exec.Status.IsActive() {
		logger.Warn("Step execution not in a completable state, ignoring completion",
			"status", exec.Status)

		return Advancement{Completed: false}, nil
	}

	step := flow.FindStep(exec.StepID)
	if step == nil {
		logger.Warn("Step definition missing from flow, ignoring completion",
			"step_id", exec.StepID)

		return Advancement{Completed: false}, nil
	}

	logger = logger.With("step_id", step.ID, "step_type", step.Type)

	// Review gate runs before any mutation: a revise verdict sends the
	// submission back without touching status.
	if gate := step.Review; gate != nil && gate.Enabled && a.hooks.Reviewer != nil {
		verdict, err := a.hooks.Reviewer.Review(ctx, step, req.ResultData)
		if err != nil {
			logger.Error("Review gate failed, accepting submission", "error", err)
		} else if verdict == ReviewRevise {
			logger.Info("Review gate requested revision")

			return Advancement{Completed: false, RevisionNeeded: true}, nil
		}
	}

	a.commitCompletion(ctx, state, exec, req.ResultData)

	effectiveResult := req.ResultData

	if exec.IsGroupAssignment {
		decision := EvaluateGroup(step.CompletionMode, state.ExecutionsForStep(step.ID))
		if !decision.Met {
			logger.Info("Group completion threshold not met",
				"completed", decision.CompletedCount,
				"total", decision.TotalCount,
				"mode", step.CompletionMode)

			return Advancement{Completed: true}, nil
		}

		a.cancelRemaining(ctx, decision.Remaining)

		effectiveResult = decision.MergedResult
	}

	w := newWalker(flow, state, a.cfg)

	result, err := w.computeNext(step, exec.ParallelGroupID, effectiveResult)
	if err != nil {
		// Completion already committed; surface the routing problem without
		// undoing it.
		logger.Error("Next step computation failed", "error", err)

		return Advancement{Completed: true}, err
	}

	activated := a.applyWalkResult(ctx, flow, state, result, req.SuppressAutoExecute)

	adv := Advancement{
		Completed:     true,
		FlowCompleted: state.Run.Status == models.RunStatusCompleted,
		Activated:     activated,
	}

	for _, e := range activated {
		adv.NextStepIDs = append(adv.NextStepIDs, e.StepID)
	}

	return adv, nil
}

// commitCompletion is step 2 of the advancement algorithm: the durable part.
func (a *Advancer) commitCompletion(ctx context.Context, state *RunState, exec *models.StepExecution, resultData map[string]any) {
	now := time.Now().UTC()

	exec.Status = models.ExecutionStatusCompleted
	exec.ResultData = resultData
	exec.CompletedAt = &now

	state.Run.LastActivityAt = now

	if a.hooks.Timers != nil {
		if err := a.hooks.Timers.CancelTimers(ctx, exec.ID); err != nil {
			a.logger.Error("Timer cancellation failed", "step_execution_id", exec.ID, "error", err)
		}
	}

	if a.hooks.Notifier != nil {
		if err := a.hooks.Notifier.StepCompleted(ctx, state.Run, exec); err != nil {
			a.logger.Error("Step completed notification failed", "step_execution_id", exec.ID, "error", err)
		}
	}
}

func (a *Advancer) cancelRemaining(ctx context.Context, remaining []*models.StepExecution) {
	for _, e := range remaining {
		e.Status = models.ExecutionStatusCancelled

		if a.hooks.Timers != nil {
			if err := a.hooks.Timers.CancelTimers(ctx, e.ID); err != nil {
				a.logger.Error("Timer cancellation failed", "step_execution_id", e.ID, "error", err)
			}
		}
	}
}

// applyWalkResult materializes and activates the walk's targets and applies
// run-level outcomes (completion, termination, annotations).
func (a *Advancer) applyWalkResult(ctx context.Context, flow *models.FlowDocument, state *RunState, result nextResult, suppressAuto bool) []*models.StepExecution {
	if result.terminate != "" {
		state.Run.TerminateStatus = result.terminate
	}

	if result.runEnded {
		a.terminateRun(ctx, state)

		return nil
	}

	activated := make([]*models.StepExecution, 0, len(result.targets))

	for _, t := range result.targets {
		activated = append(activated, a.activate(ctx, flow, state, t, suppressAuto)...)
	}

	if len(activated) == 0 && result.flowDone {
		a.completeRun(ctx, state)
	}

	return activated
}

// activate transitions the target step's execution(s) to an active status,
// materializing records lazily for nested steps and fanning out per
// assignee for group-assigned steps.
func (a *Advancer) activate(ctx context.Context, flow *models.FlowDocument, state *RunState, t target, suppressAuto bool) []*models.StepExecution {
	step := t.step
	now := time.Now().UTC()
	mainIdx := mainPathIndex(flow, step.ID)

	var execs []*models.StepExecution

	if step.IsGroupAssigned() {
		// The pre-materialized main-path record becomes the first assignee's
		// sub-record so it never lingers as a stray PENDING entry.
		pending := state.PendingExecutionForStep(step.ID)

		for i := range step.Assignees {
			assignee := step.Assignees[i]

			exec := pending
			pending = nil

			if exec == nil {
				exec = &models.StepExecution{
					ID:     uuid.New().String(),
					RunID:  state.Run.ID,
					StepID: step.ID,
				}
				state.Add(exec)
			}

			exec.StepIndex = mainIdx
			exec.Status = models.ExecutionStatusWaitingForAssignee
			exec.Assignee = &assignee
			exec.ParallelGroupID = t.parallelGroupID
			exec.IsGroupAssignment = true

			execs = append(execs, exec)
		}
	} else {
		exec := state.PendingExecutionForStep(step.ID)
		if exec == nil {
			// Branch and outcome steps are materialized lazily; GOTO loops
			// re-activate an already-settled step through a fresh record.
			exec = &models.StepExecution{
				ID:     uuid.New().String(),
				RunID:  state.Run.ID,
				StepID: step.ID,
			}
			state.Add(exec)
		}

		exec.StepIndex = mainIdx
		exec.Status = models.ExecutionStatusInProgress
		exec.ParallelGroupID = t.parallelGroupID

		if len(step.Assignees) == 1 {
			assignee := step.Assignees[0]
			exec.Assignee = &assignee
		}

		execs = []*models.StepExecution{exec}
	}

	for _, exec := range execs {
		exec.StartedAt = &now

		if step.Due != nil && step.Due.OffsetHours > 0 {
			due := now.Add(time.Duration(step.Due.OffsetHours) * time.Hour)
			exec.DueAt = &due
		}

		a.notifyActivation(ctx, state, exec, step)
	}

	// The run's cursor follows activation, backwards included: a GOTO can
	// legally land on a lower index.
	if mainIdx >= 0 {
		state.Run.CurrentStepIndex = mainIdx
	}

	state.Run.LastActivityAt = now

	if step.Type == models.StepTypeSubFlow && a.hooks.SubFlows != nil {
		if err := a.hooks.SubFlows.StartSubFlow(ctx, step, state.Run); err != nil {
			a.logger.Error("Sub-flow start failed", "step_id", step.ID, "error", err)
		}
	}

	if !suppressAuto && step.IsAutomation() && a.hooks.AutoExec != nil {
		rendered := template.RenderConfig(step.Config, state.Run)
		if err := a.hooks.AutoExec.TriggerAutoExecution(ctx, execs[0], step, rendered); err != nil {
			a.logger.Error("Auto-execution trigger failed", "step_id", step.ID, "error", err)
		}
	}

	return execs
}

// notifyActivation runs the activation side-effects for one execution:
// lifecycle notification, timer scheduling, and the magic-link email for
// external contacts. All best-effort.
func (a *Advancer) notifyActivation(ctx context.Context, state *RunState, exec *models.StepExecution, step *models.Step) {
	if a.hooks.Notifier != nil {
		if err := a.hooks.Notifier.StepActivated(ctx, state.Run, exec, step); err != nil {
			a.logger.Error("Step activated notification failed", "step_execution_id", exec.ID, "error", err)
		}
	}

	if a.hooks.Timers != nil {
		if err := a.hooks.Timers.ScheduleTimers(ctx, exec, step.Due, state.Run.DueAt); err != nil {
			a.logger.Error("Timer scheduling failed", "step_execution_id", exec.ID, "error", err)
		}
	}

	if exec.Assignee != nil && exec.Assignee.IsExternal() && a.hooks.Tokens != nil {
		token, err := a.hooks.Tokens.CreateAccessToken(ctx, exec.ID)
		if err != nil {
			a.logger.Error("Access token creation failed", "step_execution_id", exec.ID, "error", err)

			return
		}

		if a.hooks.Mailer != nil {
			if err := a.hooks.Mailer.SendTaskAssignment(ctx, *exec.Assignee, token); err != nil {
				a.logger.Error("Task assignment email failed", "step_execution_id", exec.ID, "error", err)
			}
		}
	}
}

func (a *Advancer) completeRun(ctx context.Context, state *RunState) {
	now := time.Now().UTC()

	state.Run.Status = models.RunStatusCompleted
	state.Run.CompletedAt = &now
	state.Run.LastActivityAt = now

	a.logger.Info("Run completed", "run_id", state.Run.ID, "flow_id", state.Run.FlowID)

	if a.hooks.Notifier != nil {
		if err := a.hooks.Notifier.RunCompleted(ctx, state.Run); err != nil {
			a.logger.Error("Run completed notification failed", "run_id", state.Run.ID, "error", err)
		}
	}
}

func (a *Advancer) terminateRun(ctx context.Context, state *RunState) {
	now := time.Now().UTC()

	state.Run.Status = models.RunStatusTerminated
	state.Run.CompletedAt = &now
	state.Run.LastActivityAt = now

	a.logger.Info("Run terminated",
		"run_id", state.Run.ID,
		"terminate_status", state.Run.TerminateStatus)

	if a.hooks.Notifier != nil {
		if err := a.hooks.Notifier.RunTerminated(ctx, state.Run); err != nil {
			a.logger.Error("Run terminated notification failed", "run_id", state.Run.ID, "error", err)
		}
	}
}
