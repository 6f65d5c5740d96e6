package models

// Deep copies of the document tree. The operation engine clones at batch
// entry so a failed batch can never alias back into the caller's document.

// Clone returns a deep copy of the flow document.
func (f *FlowDocument) Clone() *FlowDocument {
	if f == nil {
		return nil
	}

	clone := *f

	clone.Milestones = make([]*Milestone, len(f.Milestones))
	for i, m := range f.Milestones {
		clone.Milestones[i] = m.Clone()
	}

	clone.Steps = cloneSteps(f.Steps)

	if f.PublishedAt != nil {
		t := *f.PublishedAt
		clone.PublishedAt = &t
	}

	return &clone
}

// Clone returns a deep copy of the milestone.
func (m *Milestone) Clone() *Milestone {
	if m == nil {
		return nil
	}

	clone := *m

	return &clone
}

// Clone returns a deep copy of the step and everything nested under it.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Config = cloneValueMap(s.Config)

	if s.Assignees != nil {
		clone.Assignees = make([]Assignee, len(s.Assignees))
		copy(clone.Assignees, s.Assignees)
	}

	if s.Due != nil {
		due := *s.Due
		clone.Due = &due
	}

	if s.Review != nil {
		review := *s.Review
		clone.Review = &review
	}

	if s.Paths != nil {
		clone.Paths = make([]*BranchPath, len(s.Paths))
		for i, p := range s.Paths {
			clone.Paths[i] = p.Clone()
		}
	}

	if s.Outcomes != nil {
		clone.Outcomes = make([]*DecisionOutcome, len(s.Outcomes))
		for i, o := range s.Outcomes {
			clone.Outcomes[i] = o.Clone()
		}
	}

	return &clone
}

// Clone returns a deep copy of the branch path.
func (p *BranchPath) Clone() *BranchPath {
	if p == nil {
		return nil
	}

	clone := *p
	clone.Steps = cloneSteps(p.Steps)

	return &clone
}

// Clone returns a deep copy of the decision outcome.
func (o *DecisionOutcome) Clone() *DecisionOutcome {
	if o == nil {
		return nil
	}

	clone := *o
	clone.Steps = cloneSteps(o.Steps)

	return &clone
}

func cloneSteps(steps []*Step) []*Step {
	if steps == nil {
		return nil
	}

	out := make([]*Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}

	return out
}

// cloneValueMap deep-copies a JSON-shaped value map. Nested maps and slices
// are copied; scalar values are shared, which is safe since they are
// immutable once decoded.
func cloneValueMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneValueMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}
