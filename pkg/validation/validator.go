// Package validation checks flow documents against the platform's
// structural invariants before they can be published. The operation engine
// assumes these hold; this is the collaborator that enforces them.
package validation

import (
	"fmt"

	"github.com/voyflow/voyflow/pkg/models"
)

// Issue is one structural problem found in a flow document.
type Issue struct {
	Code    string `json:"code"`
	StepID  string `json:"step_id,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.StepID == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}

	return fmt.Sprintf("%s (step %s): %s", i.Code, i.StepID, i.Message)
}

const (
	CodeDuplicateStepID     = "duplicate_step_id"
	CodeGotoTargetMissing   = "goto_target_missing"
	CodeGotoTargetNotOnMain = "goto_target_not_on_main_path"
	CodeTerminateOnMainPath = "terminate_on_main_path"
	CodeTerminateNoStatus   = "terminate_missing_status"
	CodeMilestoneMissing    = "milestone_missing"
	CodeMilestoneUnsorted   = "milestones_unsorted"
	CodeContainerEmpty      = "container_without_scopes"
	CodeBadCompletionMode   = "invalid_completion_mode"
)

// ValidateFlow runs every structural check and returns the issues found.
// An empty slice means the document is publishable.
func ValidateFlow(flow *models.FlowDocument) []Issue {
	issues := make([]Issue, 0)

	issues = append(issues, checkStepIDUniqueness(flow)...)
	issues = append(issues, checkGotoTargets(flow)...)
	issues = append(issues, checkTerminatePlacement(flow)...)
	issues = append(issues, checkMilestones(flow)...)
	issues = append(issues, checkContainers(flow)...)
	issues = append(issues, checkCompletionModes(flow)...)

	return issues
}

func checkStepIDUniqueness(flow *models.FlowDocument) []Issue {
	var issues []Issue

	seen := make(map[string]bool)

	flow.Walk(func(s *models.Step) bool {
		if seen[s.ID] {
			issues = append(issues, Issue{
				Code:    CodeDuplicateStepID,
				StepID:  s.ID,
				Message: "step id appears more than once in the tree",
			})
		}

		seen[s.ID] = true

		return true
	})

	return issues
}

// checkGotoTargets enforces the platform invariant that GOTO destinations
// resolve to main-path steps only.
func checkGotoTargets(flow *models.FlowDocument) []Issue {
	var issues []Issue

	flow.Walk(func(s *models.Step) bool {
		if s.Type != models.StepTypeGoto {
			return true
		}

		if !flow.HasStep(s.GotoTargetID) {
			issues = append(issues, Issue{
				Code:    CodeGotoTargetMissing,
				StepID:  s.ID,
				Message: fmt.Sprintf("goto target %s does not exist", s.GotoTargetID),
			})

			return true
		}

		if _, idx := flow.MainPathStep(s.GotoTargetID); idx < 0 {
			issues = append(issues, Issue{
				Code:    CodeGotoTargetNotOnMain,
				StepID:  s.ID,
				Message: fmt.Sprintf("goto target %s is not on the main path", s.GotoTargetID),
			})
		}

		return true
	})

	return issues
}

// checkTerminatePlacement rejects TERMINATE on the main path and TERMINATE
// steps without a declared status.
func checkTerminatePlacement(flow *models.FlowDocument) []Issue {
	var issues []Issue

	for _, s := range flow.Steps {
		if s.Type == models.StepTypeTerminate {
			issues = append(issues, Issue{
				Code:    CodeTerminateOnMainPath,
				StepID:  s.ID,
				Message: "TERMINATE is only valid inside a branch path or decision outcome",
			})
		}
	}

	flow.Walk(func(s *models.Step) bool {
		if s.Type == models.StepTypeTerminate && s.TerminateStatus == "" {
			issues = append(issues, Issue{
				Code:    CodeTerminateNoStatus,
				StepID:  s.ID,
				Message: "TERMINATE step declares no status",
			})
		}

		return true
	})

	return issues
}

func checkMilestones(flow *models.FlowDocument) []Issue {
	var issues []Issue

	for i := 1; i < len(flow.Milestones); i++ {
		if flow.Milestones[i].Sequence < flow.Milestones[i-1].Sequence {
			issues = append(issues, Issue{
				Code:    CodeMilestoneUnsorted,
				Message: "milestones are not sorted ascending by sequence",
			})

			break
		}
	}

	for _, s := range flow.Steps {
		if s.MilestoneID != "" && flow.Milestone(s.MilestoneID) == nil {
			issues = append(issues, Issue{
				Code:    CodeMilestoneMissing,
				StepID:  s.ID,
				Message: fmt.Sprintf("step references unknown milestone %s", s.MilestoneID),
			})
		}
	}

	return issues
}

func checkContainers(flow *models.FlowDocument) []Issue {
	var issues []Issue

	flow.Walk(func(s *models.Step) bool {
		if s.IsBranch() && len(s.Paths) == 0 {
			issues = append(issues, Issue{
				Code:    CodeContainerEmpty,
				StepID:  s.ID,
				Message: "branch step has no paths",
			})
		}

		if s.Type == models.StepTypeDecision && len(s.Outcomes) == 0 {
			issues = append(issues, Issue{
				Code:    CodeContainerEmpty,
				StepID:  s.ID,
				Message: "decision step has no outcomes",
			})
		}

		return true
	})

	return issues
}

func checkCompletionModes(flow *models.FlowDocument) []Issue {
	var issues []Issue

	flow.Walk(func(s *models.Step) bool {
		if !s.IsGroupAssigned() {
			return true
		}

		switch s.CompletionMode {
		case models.CompletionModeAnyOne, models.CompletionModeAll, models.CompletionModeMajority:
		default:
			issues = append(issues, Issue{
				Code:    CodeBadCompletionMode,
				StepID:  s.ID,
				Message: fmt.Sprintf("group-assigned step needs a completion mode, got %q", s.CompletionMode),
			})
		}

		return true
	})

	return issues
}
