package operations

import (
	"fmt"

	"github.com/voyflow/voyflow/pkg/models"
)

// Shared slice primitives. The main path and every nested scope mutate
// through the same four entry points, so positioning semantics cannot drift
// between scopes.

// insertAfter inserts step after the step with id *afterID. A nil afterID
// prepends.
func insertAfter(steps []*models.Step, afterID *string, step *models.Step) ([]*models.Step, error) {
	if afterID == nil {
		return append([]*models.Step{step}, steps...), nil
	}

	idx := indexOf(steps, *afterID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, *afterID)
	}

	out := make([]*models.Step, 0, len(steps)+1)
	out = append(out, steps[:idx+1]...)
	out = append(out, step)
	out = append(out, steps[idx+1:]...)

	return out, nil
}

// removeByID removes the step with the given id and returns it.
func removeByID(steps []*models.Step, id string) ([]*models.Step, *models.Step, error) {
	idx := indexOf(steps, id)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrStepNotFound, id)
	}

	removed := steps[idx]
	out := make([]*models.Step, 0, len(steps)-1)
	out = append(out, steps[:idx]...)
	out = append(out, steps[idx+1:]...)

	return out, removed, nil
}

// moveAfter removes the step with the given id and re-inserts it after
// *afterID (or at the start when afterID is nil).
func moveAfter(steps []*models.Step, id string, afterID *string) ([]*models.Step, error) {
	if afterID != nil && *afterID == id {
		return nil, fmt.Errorf("%w: cannot move step %s after itself", ErrInvalidMove, id)
	}

	without, moved, err := removeByID(steps, id)
	if err != nil {
		return nil, err
	}

	return insertAfter(without, afterID, moved)
}

func indexOf(steps []*models.Step, id string) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}

	return -1
}
