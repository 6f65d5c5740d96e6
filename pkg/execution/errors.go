package execution

import "errors"

var (
	// ErrGotoTargetNotFound means a GOTO referenced a step id that is not
	// on the main path.
	ErrGotoTargetNotFound = errors.New("goto target not found on main path")

	// ErrOutcomeNotMatched means a DECISION completed without a submitted
	// decision matching any of its outcomes.
	ErrOutcomeNotMatched = errors.New("no decision outcome matched submitted result")

	// ErrControlCycle means GOTO resolution revisited a control step, which
	// can only happen with a cycle of control steps carrying no work.
	ErrControlCycle = errors.New("control step cycle detected")
)
