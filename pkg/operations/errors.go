package operations

import (
	"errors"
	"fmt"
)

// Standard failure reasons surfaced in per-operation results. Callers match
// them with errors.Is after unwrapping.
var (
	ErrStepNotFound        = errors.New("step not found")
	ErrInvalidMove         = errors.New("invalid move")
	ErrBranchStepNotFound  = errors.New("branch step not found")
	ErrDecisionNotFound    = errors.New("decision step not found")
	ErrPathNotFound        = errors.New("path not found")
	ErrOutcomeNotFound     = errors.New("outcome not found")
	ErrDuplicateStepID     = errors.New("duplicate step id")
	ErrDuplicatePathID     = errors.New("duplicate path id")
	ErrDuplicateOutcomeID  = errors.New("duplicate outcome id")
	ErrNotTerminateStep    = errors.New("step is not a TERMINATE step")
	ErrNotGotoStep         = errors.New("step is not a GOTO step")
	ErrMilestoneNotFound   = errors.New("milestone not found")
	ErrDuplicateMilestone  = errors.New("duplicate milestone id")
	ErrMilestoneInUse      = errors.New("milestone still referenced by steps")
	ErrMissingPayload      = errors.New("operation payload missing")
	ErrUnknownOperation    = errors.New("unknown operation type")
)

// OperationError wraps an operation failure with its position in the batch.
type OperationError struct {
	Index int
	Type  OperationType
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s) failed: %v", e.Index, e.Type, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func (e *OperationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
