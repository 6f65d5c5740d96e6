package conditions

import (
	"fmt"

	"github.com/dop251/goja"
)

// JavaScriptInterpreter evaluates the expression in an embedded JS runtime
// with the result data bound as the global `$`. The expression's value is
// coerced to a boolean with JS truthiness rules.
type JavaScriptInterpreter struct{}

func (j *JavaScriptInterpreter) Evaluate(expression string, data map[string]any) (bool, error) {
	vm := goja.New()

	if err := vm.Set("$", data); err != nil {
		return false, fmt.Errorf("cannot bind result data: %w", err)
	}

	value, err := vm.RunString(expression)
	if err != nil {
		return false, fmt.Errorf("error evaluating javascript condition: %w", err)
	}

	return value.ToBoolean(), nil
}
