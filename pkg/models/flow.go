package models

import (
	"sort"
	"time"
)

// FlowStatus represents the lifecycle state of a flow document.
type FlowStatus string

const (
	FlowStatusDraft       FlowStatus = "draft"       // Editable, not executable
	FlowStatusPublished   FlowStatus = "published"   // Current active, executable
	FlowStatusUnpublished FlowStatus = "unpublished" // Historical, not executable
)

// Milestone is a named phase marker grouping contiguous main-path steps.
// The milestone list is always kept sorted ascending by Sequence.
type Milestone struct {
	ID       string `json:"id"   validate:"required"`
	Name     string `json:"name" validate:"required"`
	Sequence int    `json:"sequence"`
}

// FlowDocument is the editable tree describing a process template. Steps is
// the ordered main path; branch paths and decision outcomes nest their own
// sequences below it. Step ids are globally unique across the whole tree
// because GOTO targets and milestone assignments resolve by id alone.
type FlowDocument struct {
	ID          string       `json:"id"   validate:"required"`
	Name        string       `json:"name" validate:"required,min=3"`
	Description string       `json:"description,omitempty"`
	Status      FlowStatus   `json:"status"`
	Milestones  []*Milestone `json:"milestones,omitempty"`
	Steps       []*Step      `json:"steps"`
	Owner       string       `json:"owner,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
}

// Milestone returns the milestone with the given id, or nil.
func (f *FlowDocument) Milestone(id string) *Milestone {
	for _, m := range f.Milestones {
		if m.ID == id {
			return m
		}
	}

	return nil
}

// SortMilestones re-establishes the ascending Sequence order. The sort is
// stable so equal sequences keep their insertion order.
func (f *FlowDocument) SortMilestones() {
	sort.SliceStable(f.Milestones, func(i, j int) bool {
		return f.Milestones[i].Sequence < f.Milestones[j].Sequence
	})
}

// MilestoneInUse reports whether any main-path step still references the
// milestone. Milestones only apply to main-path steps.
func (f *FlowDocument) MilestoneInUse(milestoneID string) bool {
	for _, s := range f.Steps {
		if s.MilestoneID == milestoneID {
			return true
		}
	}

	return false
}

// Walk visits every step of the tree depth-first, in document order. The
// visit stops as soon as fn returns false.
func (f *FlowDocument) Walk(fn func(*Step) bool) {
	WalkSteps(f.Steps, fn)
}

// WalkSteps visits a step sequence and everything nested below it,
// depth-first. Shared by the document helpers and the operation engine's
// duplicate-id guard, which walks subtrees before they are attached.
func WalkSteps(steps []*Step, fn func(*Step) bool) bool {
	for _, s := range steps {
		if !fn(s) {
			return false
		}

		for _, p := range s.Paths {
			if !WalkSteps(p.Steps, fn) {
				return false
			}
		}

		for _, o := range s.Outcomes {
			if !WalkSteps(o.Steps, fn) {
				return false
			}
		}
	}

	return true
}

// FindStep resolves a step anywhere in the tree by id.
func (f *FlowDocument) FindStep(id string) *Step {
	var found *Step

	f.Walk(func(s *Step) bool {
		if s.ID == id {
			found = s

			return false
		}

		return true
	})

	return found
}

// MainPathStep resolves a step on the main path only. GOTO destinations
// must live there, so GOTO resolution goes through this instead of FindStep.
func (f *FlowDocument) MainPathStep(id string) (*Step, int) {
	for i, s := range f.Steps {
		if s.ID == id {
			return s, i
		}
	}

	return nil, -1
}

// StepIDs collects every step id in the tree, in document order.
func (f *FlowDocument) StepIDs() []string {
	ids := make([]string, 0)

	f.Walk(func(s *Step) bool {
		ids = append(ids, s.ID)

		return true
	})

	return ids
}

// HasStep reports whether any step in the tree carries the id.
func (f *FlowDocument) HasStep(id string) bool {
	return f.FindStep(id) != nil
}

// Scope identifies one ordered step sequence of the tree: the main path
// (Container nil) or the sequence inside one branch path or one decision
// outcome of the Container step.
type Scope struct {
	Container *Step
	Path      *BranchPath
	Outcome   *DecisionOutcome
	Steps     []*Step
}

// IsMainPath reports whether the scope is the document's main path.
func (sc Scope) IsMainPath() bool {
	return sc.Container == nil
}

// IndexOf returns the position of the step id within the scope, or -1.
func (sc Scope) IndexOf(stepID string) int {
	for i, s := range sc.Steps {
		if s.ID == stepID {
			return i
		}
	}

	return -1
}

// ScopeChain returns the chain of scopes from the main path down to the
// scope directly containing stepID. The last element contains the step;
// nil means the step is nowhere in the tree.
func (f *FlowDocument) ScopeChain(stepID string) []Scope {
	root := Scope{Steps: f.Steps}

	return scopeChain(root, stepID)
}

func scopeChain(sc Scope, stepID string) []Scope {
	for _, s := range sc.Steps {
		if s.ID == stepID {
			return []Scope{sc}
		}

		for _, p := range s.Paths {
			child := Scope{Container: s, Path: p, Steps: p.Steps}
			if chain := scopeChain(child, stepID); chain != nil {
				return append([]Scope{sc}, chain...)
			}
		}

		for _, o := range s.Outcomes {
			child := Scope{Container: s, Outcome: o, Steps: o.Steps}
			if chain := scopeChain(child, stepID); chain != nil {
				return append([]Scope{sc}, chain...)
			}
		}
	}

	return nil
}

// ReplaceScopeSteps writes a new step sequence back into the owner of the
// given scope: the branch path, the decision outcome, or the main path.
func (f *FlowDocument) ReplaceScopeSteps(sc Scope, steps []*Step) {
	switch {
	case sc.Path != nil:
		sc.Path.Steps = steps
	case sc.Outcome != nil:
		sc.Outcome.Steps = steps
	default:
		f.Steps = steps
	}
}
