package execution

import (
	"sort"

	"github.com/voyflow/voyflow/pkg/models"
)

// GroupDecision is the outcome of evaluating a group-assigned step after an
// individual submission.
type GroupDecision struct {
	Met            bool
	CompletedCount int
	TotalCount     int
	// MergedResult is the result data handed to the advancement walk once
	// the threshold is met. Submissions merge in completion order, later
	// submissions winning on key conflicts.
	MergedResult map[string]any
	// Remaining are the sub-records still awaiting an assignee. Under
	// ANY_ONE they are cancelled once the first submission lands.
	Remaining []*models.StepExecution
}

// EvaluateGroup computes whether a multi-assignee step's completion
// threshold is met, given every sub-record sharing the step id. Cancelled
// sub-records do not count toward the total.
func EvaluateGroup(mode models.CompletionMode, execs []*models.StepExecution) GroupDecision {
	decision := GroupDecision{}

	completed := make([]*models.StepExecution, 0, len(execs))

	for _, e := range execs {
		if e.Status == models.ExecutionStatusCancelled {
			continue
		}

		decision.TotalCount++

		if e.Status == models.ExecutionStatusCompleted {
			completed = append(completed, e)
		} else {
			decision.Remaining = append(decision.Remaining, e)
		}
	}

	decision.CompletedCount = len(completed)

	switch mode {
	case models.CompletionModeAnyOne:
		decision.Met = decision.CompletedCount >= 1
	case models.CompletionModeMajority:
		decision.Met = decision.CompletedCount > decision.TotalCount/2
	default: // ALL, and the zero value for steps that never set a mode
		decision.Met = decision.CompletedCount == decision.TotalCount && decision.TotalCount > 0
	}

	if decision.Met {
		decision.MergedResult = mergeResults(completed)
	}

	return decision
}

func mergeResults(completed []*models.StepExecution) map[string]any {
	sort.SliceStable(completed, func(i, j int) bool {
		ti, tj := completed[i].CompletedAt, completed[j].CompletedAt
		if ti == nil || tj == nil {
			return tj != nil
		}

		return ti.Before(*tj)
	})

	merged := make(map[string]any)

	for _, e := range completed {
		for k, v := range e.ResultData {
			merged[k] = v
		}
	}

	return merged
}
