package execution

import "github.com/voyflow/voyflow/pkg/models"

// RunState is the in-memory snapshot the caller hands to the engine: one
// run and every step execution recorded for it so far. The engine mutates
// it in place; persisting the result is the caller's job, serialized per
// run.
type RunState struct {
	Run        *models.FlowRun
	Executions []*models.StepExecution
}

// ExecutionByID returns the step execution with the given id, or nil.
func (s *RunState) ExecutionByID(id string) *models.StepExecution {
	for _, e := range s.Executions {
		if e.ID == id {
			return e
		}
	}

	return nil
}

// ExecutionsForStep returns every execution recorded for the step id, in
// creation order. Group-assigned steps have one per assignee.
func (s *RunState) ExecutionsForStep(stepID string) []*models.StepExecution {
	out := make([]*models.StepExecution, 0, 1)

	for _, e := range s.Executions {
		if e.StepID == stepID {
			out = append(out, e)
		}
	}

	return out
}

// PendingExecutionForStep returns the PENDING execution for the step id,
// or nil. Used to reuse pre-materialized main-path records on activation.
func (s *RunState) PendingExecutionForStep(stepID string) *models.StepExecution {
	for _, e := range s.Executions {
		if e.StepID == stepID && e.Status == models.ExecutionStatusPending {
			return e
		}
	}

	return nil
}

// GroupSettled reports whether every execution tagged with the parallel
// group id reached a terminal status.
func (s *RunState) GroupSettled(parallelGroupID string) bool {
	for _, e := range s.Executions {
		if e.ParallelGroupID == parallelGroupID && !e.Status.IsTerminal() {
			return false
		}
	}

	return true
}

// Add appends a newly materialized execution record.
func (s *RunState) Add(exec *models.StepExecution) {
	s.Executions = append(s.Executions, exec)
}
