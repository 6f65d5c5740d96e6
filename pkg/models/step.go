// Package models defines the core domain models for the flow engine: the
// editable flow document tree, its step taxonomy, and per-run execution state.
package models

// StepType discriminates the step variants of the flow tree. Every consumer
// switches exhaustively on it; adding a type means touching each switch.
type StepType string

const (
	// Leaf action steps.
	StepTypeForm        StepType = "FORM"
	StepTypeApproval    StepType = "APPROVAL"
	StepTypeFileRequest StepType = "FILE_REQUEST"
	StepTypeESign       StepType = "ESIGN"
	StepTypeTodo        StepType = "TODO"
	StepTypeHTTPRequest StepType = "HTTP_REQUEST" // outbound automation call
	StepTypeWebhook     StepType = "WEBHOOK"      // outbound webhook delivery
	StepTypeSubFlow     StepType = "SUB_FLOW"

	// Container steps holding nested step sequences.
	StepTypeSingleChoiceBranch StepType = "SINGLE_CHOICE_BRANCH"
	StepTypeMultiChoiceBranch  StepType = "MULTI_CHOICE_BRANCH"
	StepTypeParallelBranch     StepType = "PARALLEL_BRANCH"
	StepTypeDecision           StepType = "DECISION"

	// Control steps.
	StepTypeGoto            StepType = "GOTO"
	StepTypeTerminate       StepType = "TERMINATE"
	StepTypeGotoDestination StepType = "GOTO_DESTINATION"
)

// TerminateStatus is the run annotation a TERMINATE step carries.
type TerminateStatus string

const (
	TerminateStatusCompleted TerminateStatus = "completed"
	TerminateStatusCancelled TerminateStatus = "cancelled"
	TerminateStatusRejected  TerminateStatus = "rejected"
)

// CompletionMode is the aggregation rule for steps with multiple
// simultaneous assignees.
type CompletionMode string

const (
	CompletionModeAnyOne   CompletionMode = "ANY_ONE"
	CompletionModeAll      CompletionMode = "ALL"
	CompletionModeMajority CompletionMode = "MAJORITY"
)

// AssigneeKind distinguishes workspace users from external contacts.
// External contacts are reached through magic-link tokens and email.
type AssigneeKind string

const (
	AssigneeKindUser    AssigneeKind = "user"
	AssigneeKindContact AssigneeKind = "contact"
)

type Assignee struct {
	Kind  AssigneeKind `json:"kind"  validate:"required"`
	ID    string       `json:"id"    validate:"required"`
	Email string       `json:"email,omitempty"`
}

func (a Assignee) IsExternal() bool {
	return a.Kind == AssigneeKindContact
}

// Condition is a branch path condition evaluated against the owning branch
// step's submitted result data.
type Condition struct {
	Language   string `json:"language,omitempty"` // simple, jsonpath or javascript
	Expression string `json:"expression,omitempty"`
}

// DueSpec declares when a step instance is due relative to its activation,
// and how assignees are reminded before that.
type DueSpec struct {
	OffsetHours int    `json:"offset_hours,omitempty"`
	RemindCron  string `json:"remind_cron,omitempty"` // cron spec for recurring reminders
	Escalate    bool   `json:"escalate,omitempty"`
}

// ReviewGate declares a synchronous review of the submitted result data
// before a step completion is accepted.
type ReviewGate struct {
	Enabled  bool   `json:"enabled"`
	Criteria string `json:"criteria,omitempty"`
}

// Step is one node of the flow tree. It is a tagged variant over Type: the
// container fields (Paths, Outcomes) and the control fields (GotoTargetID,
// TerminateStatus) are only meaningful for their matching type, everything
// else is leaf payload.
type Step struct {
	ID              string             `json:"id"   validate:"required"`
	Type            StepType           `json:"type" validate:"required"`
	Name            string             `json:"name"`
	Config          map[string]any     `json:"config,omitempty"`
	MilestoneID     string             `json:"milestone_id,omitempty"`
	Assignees       []Assignee         `json:"assignees,omitempty"`
	CompletionMode  CompletionMode     `json:"completion_mode,omitempty"`
	Due             *DueSpec           `json:"due,omitempty"`
	Review          *ReviewGate        `json:"review,omitempty"`
	AutoExecute     bool               `json:"auto_execute,omitempty"`
	Paths           []*BranchPath      `json:"paths,omitempty"`
	Outcomes        []*DecisionOutcome `json:"outcomes,omitempty"`
	GotoTargetID    string             `json:"goto_target_id,omitempty"`
	TerminateStatus TerminateStatus    `json:"terminate_status,omitempty"`
}

// BranchPath is one alternative step sequence under a branch step.
type BranchPath struct {
	PathID    string    `json:"path_id" validate:"required"`
	Condition Condition `json:"condition"`
	Steps     []*Step   `json:"steps"`
}

// DecisionOutcome is one labeled alternative under a DECISION step, chosen
// by the submitted decision rather than by condition evaluation.
type DecisionOutcome struct {
	OutcomeID string  `json:"outcome_id" validate:"required"`
	Label     string  `json:"label"`
	Steps     []*Step `json:"steps"`
}

// IsBranch reports whether the step forks into alternative paths.
func (s *Step) IsBranch() bool {
	switch s.Type {
	case StepTypeSingleChoiceBranch, StepTypeMultiChoiceBranch, StepTypeParallelBranch:
		return true
	default:
		return false
	}
}

// IsContainer reports whether the step owns nested step sequences.
func (s *Step) IsContainer() bool {
	return s.IsBranch() || s.Type == StepTypeDecision
}

// IsAutomation reports whether the step completes without a human action.
func (s *Step) IsAutomation() bool {
	switch s.Type {
	case StepTypeHTTPRequest, StepTypeWebhook:
		return true
	default:
		return s.AutoExecute
	}
}

// IsGroupAssigned reports whether the step fans out to multiple
// simultaneous assignees sharing one step id.
func (s *Step) IsGroupAssigned() bool {
	return len(s.Assignees) > 1
}

// Path returns the branch path with the given id, or nil.
func (s *Step) Path(pathID string) *BranchPath {
	for _, p := range s.Paths {
		if p.PathID == pathID {
			return p
		}
	}

	return nil
}

// Outcome returns the decision outcome with the given id, or nil.
func (s *Step) Outcome(outcomeID string) *DecisionOutcome {
	for _, o := range s.Outcomes {
		if o.OutcomeID == outcomeID {
			return o
		}
	}

	return nil
}
