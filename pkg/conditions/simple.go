package conditions

import (
	"fmt"
	"strconv"
)

// SimpleInterpreter treats the expression as a boolean literal. It exists
// for authored flows where a path is toggled on or off rather than
// computed from data.
type SimpleInterpreter struct{}

func (s *SimpleInterpreter) Evaluate(expression string, _ map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}

	result, err := strconv.ParseBool(expression)
	if err != nil {
		return false, fmt.Errorf("cannot convert %q to boolean: %w", expression, err)
	}

	return result, nil
}
