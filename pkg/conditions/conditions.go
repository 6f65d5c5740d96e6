// Package conditions evaluates branch path conditions against a step's
// submitted result data. Three expression languages are supported: simple
// boolean literals, jsonpath lookups, and javascript expressions.
package conditions

import (
	"fmt"

	"github.com/voyflow/voyflow/pkg/models"
)

const (
	LanguageSimple     = "simple"
	LanguageJSONPath   = "jsonpath"
	LanguageJavaScript = "javascript"
)

// Interpreter evaluates one expression language.
type Interpreter interface {
	Evaluate(expression string, data map[string]any) (bool, error)
}

// ForLanguage returns the interpreter for the given language. An empty
// language means simple. Unknown languages return nil.
func ForLanguage(language string) Interpreter {
	switch language {
	case LanguageSimple, "":
		return &SimpleInterpreter{}
	case LanguageJSONPath:
		return &JSONPathInterpreter{}
	case LanguageJavaScript:
		return &JavaScriptInterpreter{}
	default:
		return nil
	}
}

// Evaluate runs a branch path condition against result data. An empty
// condition always matches.
func Evaluate(cond models.Condition, data map[string]any) (bool, error) {
	if cond.Expression == "" {
		return true, nil
	}

	interp := ForLanguage(cond.Language)
	if interp == nil {
		return false, fmt.Errorf("unsupported condition language: %s", cond.Language)
	}

	return interp.Evaluate(cond.Expression, data)
}
